package pdfdecode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeFakeQPDF installs a shell script that mimics qpdf's argument order:
// --password=... --decrypt INPUT OUTPUT.
func writeFakeQPDF(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake qpdf script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "qpdf")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake qpdf: %v", err)
	}
	return path
}

func TestQPDFDecryptor_Success(t *testing.T) {
	q := &QPDFDecryptor{Binary: writeFakeQPDF(t, `cp "$3" "$4"`)}

	got, err := q.Decrypt(context.Background(), []byte("pdf-bytes"), "statement.pdf", "secret")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(got) != "pdf-bytes" {
		t.Errorf("Decrypt() = %q, want input passthrough", got)
	}
}

func TestQPDFDecryptor_WarningExitWithOutputIsSuccess(t *testing.T) {
	q := &QPDFDecryptor{Binary: writeFakeQPDF(t, `echo "WARNING: file is damaged" >&2; cp "$3" "$4"; exit 3`)}

	got, err := q.Decrypt(context.Background(), []byte("pdf-bytes"), "statement.pdf", "secret")
	if err != nil {
		t.Fatalf("Decrypt() error = %v, exit 3 with warnings and an output file is success", err)
	}
	if string(got) != "pdf-bytes" {
		t.Errorf("Decrypt() = %q, want input passthrough", got)
	}
}

func TestQPDFDecryptor_WarningExitWithoutOutputFails(t *testing.T) {
	q := &QPDFDecryptor{Binary: writeFakeQPDF(t, `echo "WARNING: check failed" >&2; exit 3`)}

	_, err := q.Decrypt(context.Background(), []byte("pdf-bytes"), "statement.pdf", "secret")
	if err == nil {
		t.Fatal("Decrypt() succeeded without an output file")
	}
}

func TestQPDFDecryptor_HardFailure(t *testing.T) {
	q := &QPDFDecryptor{Binary: writeFakeQPDF(t, `echo "invalid password" >&2; exit 2`)}

	_, err := q.Decrypt(context.Background(), []byte("pdf-bytes"), "statement.pdf", "wrong")
	if err == nil {
		t.Fatal("Decrypt() succeeded on a hard failure exit")
	}
	if !strings.Contains(err.Error(), "invalid password") {
		t.Errorf("error %q should carry qpdf stderr", err)
	}
}

func TestWarningExit(t *testing.T) {
	exit3 := runExit(t, 3)
	exit2 := runExit(t, 2)

	tests := []struct {
		name   string
		err    error
		stderr string
		want   bool
	}{
		{"exit 3 with warning", exit3, "WARNING: damaged", true},
		{"exit 3 without warning", exit3, "operation failed", false},
		{"exit 2 with warning", exit2, "WARNING: damaged", false},
		{"non exit error", os.ErrNotExist, "WARNING", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := warningExit(tt.err, tt.stderr); got != tt.want {
				t.Errorf("warningExit() = %v, want %v", got, tt.want)
			}
		})
	}
}

// runExit produces a genuine *exec.ExitError with the given code.
func runExit(t *testing.T, code int) error {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	err := exec.Command("sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	if err == nil {
		t.Fatalf("expected exit error for code %d", code)
	}
	return err
}
