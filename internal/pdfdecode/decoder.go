// Package pdfdecode turns raw PDF bytes into plain statement text, handling
// encrypted documents through an ordered fallback chain: direct extraction,
// then password-aware decoding, then external qpdf decryption.
package pdfdecode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/statement"
)

// Document is the result of decoding one attachment.
type Document struct {
	// Text is the extracted plain text. May be empty; callers treat
	// blank text as "no content", not as an error.
	Text         string
	PageCount    int
	WasEncrypted bool

	// Config is the registry entry used for decryption, nil when the
	// document was not encrypted or nothing matched.
	Config *statement.Config
}

// Resolver resolves a statement config for an attachment filename.
type Resolver interface {
	Resolve(filename string) *statement.Config
}

// Decoder decodes statement PDFs. Safe for concurrent use.
type Decoder struct {
	resolver    Resolver
	qpdf        *QPDFDecryptor
	qpdfTimeout time.Duration
	log         zerolog.Logger
}

// NewDecoder creates a Decoder backed by the given password resolver.
func NewDecoder(resolver Resolver, log zerolog.Logger) *Decoder {
	return &Decoder{
		resolver:    resolver,
		qpdf:        NewQPDFDecryptor(),
		qpdfTimeout: 30 * time.Second,
		log:         log,
	}
}

// Decode extracts text from raw PDF bytes.
//
// The chain is strictly ordered: a stage is attempted only when the prior
// stage signalled "encrypted" specifically. Any other failure is terminal
// immediately and never falls into the password path.
func (d *Decoder) Decode(ctx context.Context, data []byte, filename string) (*Document, error) {
	// Stage 1: assume no encryption. The resolver is not consulted here.
	reader, err := newReader(data)
	if err == nil {
		doc, extractErr := d.extract(reader, nil)
		if extractErr != nil {
			return nil, &DecodingError{Filename: filename, Err: extractErr}
		}
		return doc, nil
	}
	if !isEncryptedErr(err) {
		return nil, &DecodingError{Filename: filename, Err: err}
	}

	// Stage 2: encrypted; resolve a password by filename keyword.
	cfg := d.resolver.Resolve(filename)
	if cfg == nil || cfg.Password == "" {
		return nil, fmt.Errorf("decode %s: %w", filename, ErrMissingPassword)
	}

	d.log.Debug().
		Str("filename", filename).
		Str("statement", cfg.Name).
		Msg("Encrypted PDF, password resolved")

	// Stage 3a: password-aware decode path.
	reader, err = newReaderEncrypted(data, cfg.Password)
	if err == nil {
		doc, extractErr := d.extract(reader, cfg)
		if extractErr != nil {
			return nil, &DecodingError{Filename: filename, Err: extractErr}
		}
		doc.WasEncrypted = true
		return doc, nil
	}

	// Stage 3b: external qpdf decryption to a temporary unencrypted copy.
	qpdfCtx, cancel := context.WithTimeout(ctx, d.qpdfTimeout)
	defer cancel()

	decrypted, qpdfErr := d.qpdf.Decrypt(qpdfCtx, data, filename, cfg.Password)
	if qpdfErr != nil {
		return nil, &DecryptionFailedError{Filename: filename, Err: qpdfErr}
	}

	reader, err = newReader(decrypted)
	if err != nil {
		// Still encrypted or corrupted after qpdf: terminal, no retry
		// with other registry entries.
		return nil, &DecryptionFailedError{Filename: filename, Err: err}
	}

	doc, extractErr := d.extract(reader, cfg)
	if extractErr != nil {
		return nil, &DecodingError{Filename: filename, Err: extractErr}
	}
	doc.WasEncrypted = true
	return doc, nil
}

// extract pulls text from an open reader, honoring the page cap and the
// column-layout hint of the resolved config.
func (d *Decoder) extract(r *pdf.Reader, cfg *statement.Config) (doc *Document, err error) {
	// The pdf library panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf library panic: %v", rec)
		}
	}()

	pageCount := r.NumPage()
	pages := pageCount
	if cfg != nil && cfg.PagesToParse > 0 && cfg.PagesToParse < pages {
		pages = cfg.PagesToParse
	}

	var text string
	if cfg != nil && cfg.UseColumnLayout {
		text = extractByPosition(r, pages)
	} else {
		text = extractByRow(r, pages)
	}

	return &Document{
		Text:      text,
		PageCount: pageCount,
		Config:    cfg,
	}, nil
}

func newReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf library panic: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func newReaderEncrypted(data []byte, password string) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf library panic: %v", rec)
		}
	}()
	return pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), func() string {
		return password
	})
}

// isEncryptedErr reports whether the library failure means "encrypted". The
// library surfaces this as ErrInvalidPassword when opened without a password.
// An unrecognized error is treated as fatal, never as a reason to try the
// password path.
func isEncryptedErr(err error) bool {
	return errors.Is(err, pdf.ErrInvalidPassword)
}
