package pdfdecode

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/statement"
)

// recordingResolver counts how many times Resolve is consulted.
type recordingResolver struct {
	cfg   *statement.Config
	calls int
}

func (r *recordingResolver) Resolve(filename string) *statement.Config {
	r.calls++
	return r.cfg
}

func TestDecode_CorruptDataNeverConsultsResolver(t *testing.T) {
	// Any failure other than the encryption signal is terminal at stage
	// one; the password path must not be reached.
	resolver := &recordingResolver{cfg: &statement.Config{Name: "idfc", Password: "pw"}}
	d := NewDecoder(resolver, zerolog.Nop())

	_, err := d.Decode(context.Background(), []byte("this is not a pdf"), "idfc-statement.pdf")
	if err == nil {
		t.Fatal("Decode() succeeded on garbage input")
	}

	var decodeErr *DecodingError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Decode() error = %T, want *DecodingError", err)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver consulted %d times on a non-encrypted failure, want 0", resolver.calls)
	}
}

func TestErrorTypes(t *testing.T) {
	inner := errors.New("boom")

	var err error = &DecryptionFailedError{Filename: "a.pdf", Err: inner}
	if !errors.Is(err, inner) {
		t.Errorf("DecryptionFailedError must unwrap to its cause")
	}

	err = &DecodingError{Filename: "a.pdf", Err: inner}
	if !errors.Is(err, inner) {
		t.Errorf("DecodingError must unwrap to its cause")
	}

	wrapped := &DecryptionFailedError{Filename: "a.pdf", Err: ErrMissingPassword}
	if !errors.Is(wrapped, ErrMissingPassword) {
		t.Errorf("sentinel must survive wrapping")
	}
}
