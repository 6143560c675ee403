package pdfdecode

import (
	"errors"
	"fmt"
)

// ErrMissingPassword signals an encrypted document whose filename matched no
// registry entry with a configured password. The attachment is skipped.
var ErrMissingPassword = errors.New("encrypted document with no resolvable password")

// DecryptionFailedError signals a wrong or unusable password. Terminal for
// the attachment; the decoder never retries with other registry entries.
type DecryptionFailedError struct {
	Filename string
	Err      error
}

func (e *DecryptionFailedError) Error() string {
	return fmt.Sprintf("decrypting %s: %v", e.Filename, e.Err)
}

func (e *DecryptionFailedError) Unwrap() error {
	return e.Err
}

// DecodingError signals a non-encryption failure at any stage of the chain.
type DecodingError struct {
	Filename string
	Err      error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Filename, e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}
