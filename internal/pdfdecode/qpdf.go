package pdfdecode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// QPDFDecryptor rewrites an encrypted PDF to an unencrypted copy by invoking
// the external qpdf utility. Each invocation works inside its own temporary
// directory, removed on every exit path.
type QPDFDecryptor struct {
	// Binary is the qpdf executable name or path.
	Binary string
}

func NewQPDFDecryptor() *QPDFDecryptor {
	return &QPDFDecryptor{Binary: "qpdf"}
}

// Decrypt writes data to a temp file, runs qpdf --decrypt with the given
// password, and returns the decrypted bytes.
//
// qpdf exits with status 3 when it succeeds with warnings; that is treated as
// success as long as the output file was produced. Any other non-zero status
// is a hard failure.
func (q *QPDFDecryptor) Decrypt(ctx context.Context, data []byte, filename, password string) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "statement-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("qpdf: create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inputPath := filepath.Join(tempDir, filepath.Base(filename))
	outputPath := filepath.Join(tempDir, "decrypted-"+filepath.Base(filename))

	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("qpdf: write input file: %w", err)
	}

	cmd := exec.CommandContext(ctx, q.Binary, "--password="+password, "--decrypt", inputPath, outputPath)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if !warningExit(err, stderr.String()) {
			return nil, fmt.Errorf("qpdf: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		// Exit status 3 with a warning-class message still counts as
		// success when the output file exists.
		if _, statErr := os.Stat(outputPath); statErr != nil {
			return nil, fmt.Errorf("qpdf: warning exit but no output file: %s", strings.TrimSpace(stderr.String()))
		}
	}

	decrypted, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("qpdf: read output file: %w", err)
	}
	return decrypted, nil
}

func warningExit(err error, stderr string) bool {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	return exitErr.ExitCode() == 3 && strings.Contains(stderr, "WARNING")
}
