package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/config"
)

// Backend is the single operation a provider variant must implement. Variants
// differ only in how they invoke their model; parsing and repair are shared.
type Backend interface {
	// Complete sends a prompt and returns the raw text response.
	Complete(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider for logs and errors.
	Name() string
}

// Extractor extracts transaction candidates from statement text.
type Extractor interface {
	Extract(ctx context.Context, text string, expenseCategories, incomeCategories []string) ([]Candidate, error)
}

// Client funnels any Backend through the shared prompt builder and response
// parser, with a single repair round-trip on malformed output.
type Client struct {
	backend Backend
	timeout time.Duration
	log     zerolog.Logger
}

// NewClient constructs the provider variant selected by cfg.Provider. An
// unrecognized provider is a fatal configuration error, as is a missing
// credential for the selected provider.
func NewClient(ctx context.Context, cfg config.LLMConfig, log zerolog.Logger) (*Client, error) {
	var (
		backend Backend
		err     error
	)
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		backend, err = newGeminiBackend(ctx, cfg.Model)
	case "openai":
		backend, err = newOpenAIBackend(cfg.Model)
	case "claude":
		backend, err = newClaudeBackend(cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("constructing %s backend: %w", cfg.Provider, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{backend: backend, timeout: timeout, log: log}, nil
}

// newClientWithBackend is the test seam for injecting fake backends.
func newClientWithBackend(backend Backend, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{backend: backend, timeout: timeout, log: log}
}

// Extract builds the extraction prompt, invokes the backend, and parses the
// response. On a parse failure it issues exactly one repair round-trip; a
// second failure is terminal.
func (c *Client) Extract(ctx context.Context, text string, expenseCategories, incomeCategories []string) ([]Candidate, error) {
	prompt := BuildExtractionPrompt(text, expenseCategories, incomeCategories)

	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	candidates, parseErr := ParseResponse(raw)
	if parseErr == nil {
		return candidates, nil
	}

	c.log.Warn().
		Str("provider", c.backend.Name()).
		Err(parseErr).
		Msg("Model response unparsable, issuing repair round-trip")

	repaired, err := c.complete(ctx, buildRepairPrompt(raw))
	if err != nil {
		return nil, err
	}

	candidates, parseErr = ParseResponse(repaired)
	if parseErr != nil {
		return nil, &ExtractionParseError{Raw: repaired, Err: parseErr}
	}
	return candidates, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.backend.Complete(ctx, prompt)
	if err != nil {
		return "", &ProviderError{Provider: c.backend.Name(), Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return "", &ProviderError{Provider: c.backend.Name(), Err: fmt.Errorf("empty response from model")}
	}
	return raw, nil
}
