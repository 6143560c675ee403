// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PasswordEnvPrefix is the prefix for per-statement decryption secrets.
// Each entry is keyed by a statement identifier, e.g. PDF_PASSWORD_IDFC.
const PasswordEnvPrefix = "PDF_PASSWORD_"

// Config holds all application configuration, read once at startup.
type Config struct {
	Server ServerConfig
	Jobs   JobsConfig
	LLM    LLMConfig
	Ledger LedgerConfig
	Audit  AuditConfig

	// PDFPasswords maps lowercase statement identifiers to decryption
	// passwords, sourced from PDF_PASSWORD_* environment variables.
	// Entries with empty values are excluded.
	PDFPasswords map[string]string
}

type ServerConfig struct {
	Port string
	// WebhookToken is the shared secret expected on inbound webhook
	// requests. Empty disables the check.
	WebhookToken string
}

type JobsConfig struct {
	// QueueBuffer is the in-memory job channel capacity.
	QueueBuffer int
	// Workers is the number of concurrent job consumers. Batches are
	// sequential internally, so one worker is usually enough.
	Workers int
}

type LLMConfig struct {
	// Provider selects the backend: "gemini", "openai" or "claude".
	Provider string
	Model    string
	Timeout  time.Duration
}

type LedgerConfig struct {
	// SpreadsheetID identifies the Google Sheet used as the ledger.
	SpreadsheetID string
	// CredentialsJSON is the service-account key, passed verbatim to the
	// Sheets client. Empty means Application Default Credentials.
	CredentialsJSON string
}

type AuditConfig struct {
	// BigQueryProject enables the processing-run audit trail when set.
	BigQueryProject string
	Dataset         string
	// GCSBucket enables archival of processed PDFs when set.
	GCSBucket string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			WebhookToken: getEnv("WEBHOOK_TOKEN", ""),
		},
		Jobs: JobsConfig{
			QueueBuffer: getEnvAsInt("JOB_QUEUE_BUFFER", 100),
			Workers:     getEnvAsInt("JOB_WORKERS", 1),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ""),
			Model:    getEnv("LLM_MODEL", ""),
			Timeout:  getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
		},
		Ledger: LedgerConfig{
			SpreadsheetID:   getEnv("GOOGLE_SHEET_ID", ""),
			CredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		},
		Audit: AuditConfig{
			BigQueryProject: getEnv("BQ_PROJECT_ID", ""),
			Dataset:         getEnv("BQ_DATASET", "statements"),
			GCSBucket:       getEnv("GCS_BUCKET", ""),
		},
		PDFPasswords: loadPDFPasswords(os.Environ()),
	}

	if cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("config: LLM_PROVIDER is not set")
	}
	if cfg.Ledger.SpreadsheetID == "" {
		return nil, fmt.Errorf("config: GOOGLE_SHEET_ID is not set")
	}

	return cfg, nil
}

// loadPDFPasswords extracts PDF_PASSWORD_* entries from the given environment
// in "KEY=value" form. Identifiers are lowercased; empty values are dropped.
func loadPDFPasswords(environ []string) map[string]string {
	passwords := make(map[string]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, PasswordEnvPrefix) {
			continue
		}
		id := strings.ToLower(strings.TrimPrefix(key, PasswordEnvPrefix))
		if id == "" || value == "" {
			continue
		}
		passwords[id] = value
	}
	return passwords
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
