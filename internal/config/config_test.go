package config

import (
	"testing"
	"time"
)

func TestLoadPDFPasswords(t *testing.T) {
	environ := []string{
		"PDF_PASSWORD_IDFC=secret1",
		"PDF_PASSWORD_AXIS=secret2",
		"PDF_PASSWORD_HDFC=",   // empty values excluded
		"PDF_PASSWORD_=orphan", // empty identifier excluded
		"PATH=/usr/bin",
		"PDF_PASSWORDX=not-a-password",
	}

	got := loadPDFPasswords(environ)

	if len(got) != 2 {
		t.Fatalf("loadPDFPasswords() returned %d entries, want 2: %v", len(got), got)
	}
	if got["idfc"] != "secret1" {
		t.Errorf("identifiers must be lowercased, got %v", got)
	}
	if got["axis"] != "secret2" {
		t.Errorf("missing axis entry: %v", got)
	}
	if _, ok := got["hdfc"]; ok {
		t.Errorf("empty password must be excluded")
	}
}

func TestLoadPDFPasswords_ValueWithEquals(t *testing.T) {
	got := loadPDFPasswords([]string{"PDF_PASSWORD_ICICI=pa=ss=word"})
	if got["icici"] != "pa=ss=word" {
		t.Errorf("password with '=' mangled: %q", got["icici"])
	}
}

func TestLoad_RequiredVariables(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("GOOGLE_SHEET_ID", "sheet-id")

	if _, err := Load(); err == nil {
		t.Error("Load() succeeded without LLM_PROVIDER")
	}

	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_SHEET_ID", "")

	if _, err := Load(); err == nil {
		t.Error("Load() succeeded without GOOGLE_SHEET_ID")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_SHEET_ID", "sheet-id")
	t.Setenv("PORT", "")
	t.Setenv("LLM_TIMEOUT", "")
	t.Setenv("BQ_DATASET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.LLM.Timeout != 120*time.Second {
		t.Errorf("LLM timeout = %v, want 120s", cfg.LLM.Timeout)
	}
	if cfg.Audit.Dataset != "statements" {
		t.Errorf("Dataset = %q, want statements", cfg.Audit.Dataset)
	}
	if cfg.Jobs.QueueBuffer != 100 || cfg.Jobs.Workers != 1 {
		t.Errorf("Jobs = %+v, want buffer 100 and 1 worker", cfg.Jobs)
	}
}

func TestLoad_ParsesJobSizing(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_SHEET_ID", "sheet-id")
	t.Setenv("JOB_QUEUE_BUFFER", "250")
	t.Setenv("JOB_WORKERS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Jobs.QueueBuffer != 250 {
		t.Errorf("QueueBuffer = %d, want 250", cfg.Jobs.QueueBuffer)
	}
	if cfg.Jobs.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Jobs.Workers)
	}
}

func TestLoad_BadJobSizingFallsBack(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_SHEET_ID", "sheet-id")
	t.Setenv("JOB_QUEUE_BUFFER", "lots")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Jobs.QueueBuffer != 100 {
		t.Errorf("QueueBuffer = %d, want fallback 100", cfg.Jobs.QueueBuffer)
	}
}

func TestLoad_ParsesDuration(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("GOOGLE_SHEET_ID", "sheet-id")
	t.Setenv("LLM_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Timeout != 45*time.Second {
		t.Errorf("LLM timeout = %v, want 45s", cfg.LLM.Timeout)
	}
}
