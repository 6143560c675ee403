package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeBackend replays canned responses and records the prompts it was given.
type fakeBackend struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeBackend) Complete(ctx context.Context, prompt string) (string, error) {
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if call < len(f.errs) && f.errs[call] != nil {
		return "", f.errs[call]
	}
	if call < len(f.responses) {
		return f.responses[call], nil
	}
	return "", errors.New("unexpected extra call")
}

func (f *fakeBackend) Name() string { return "fake" }

func newTestClient(backend Backend) *Client {
	return newClientWithBackend(backend, 5*time.Second, zerolog.Nop())
}

var (
	validResponse = `{"transactions": [{"date": "2024-01-15", "description": "UBER", "amount": 250.00, "direction": "debit", "category": "Taxi", "isPayment": false}]}`

	expenseCategories = []string{"Grocery", "Taxi"}
	incomeCategories  = []string{"Salary"}
)

func TestClient_Extract_FirstTrySucceeds(t *testing.T) {
	backend := &fakeBackend{responses: []string{validResponse}}
	client := newTestClient(backend)

	got, err := client.Extract(context.Background(), "statement text", expenseCategories, incomeCategories)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Extract() returned %d candidates, want 1", len(got))
	}
	if len(backend.prompts) != 1 {
		t.Errorf("backend called %d times, want 1", len(backend.prompts))
	}
	if !strings.Contains(backend.prompts[0], "statement text") {
		t.Errorf("extraction prompt must embed the statement text")
	}
}

func TestClient_Extract_RepairRecovers(t *testing.T) {
	malformed := "Sure, here are the transactions you asked for."
	backend := &fakeBackend{responses: []string{malformed, validResponse}}
	client := newTestClient(backend)

	got, err := client.Extract(context.Background(), "text", expenseCategories, incomeCategories)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Extract() returned %d candidates, want 1", len(got))
	}
	if len(backend.prompts) != 2 {
		t.Fatalf("backend called %d times, want 2", len(backend.prompts))
	}
	if !strings.Contains(backend.prompts[1], malformed) {
		t.Errorf("repair prompt must embed the malformed response")
	}
}

func TestClient_Extract_SecondFailureIsTerminal(t *testing.T) {
	backend := &fakeBackend{responses: []string{"garbage one", "garbage two", validResponse}}
	client := newTestClient(backend)

	_, err := client.Extract(context.Background(), "text", expenseCategories, incomeCategories)
	if err == nil {
		t.Fatal("Extract() succeeded, want terminal parse error")
	}

	var parseErr *ExtractionParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Extract() error = %T, want *ExtractionParseError", err)
	}
	if parseErr.Raw != "garbage two" {
		t.Errorf("ExtractionParseError.Raw = %q, want the repaired response", parseErr.Raw)
	}

	// Exactly one repair round-trip, never a second.
	if len(backend.prompts) != 2 {
		t.Errorf("backend called %d times, want 2", len(backend.prompts))
	}
}

func TestClient_Extract_BackendErrors(t *testing.T) {
	t.Run("first call fails", func(t *testing.T) {
		backend := &fakeBackend{errs: []error{errors.New("rate limited")}}
		client := newTestClient(backend)

		_, err := client.Extract(context.Background(), "text", expenseCategories, incomeCategories)
		var provErr *ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("Extract() error = %T, want *ProviderError", err)
		}
		if provErr.Provider != "fake" {
			t.Errorf("Provider = %q, want %q", provErr.Provider, "fake")
		}
	})

	t.Run("repair call fails", func(t *testing.T) {
		backend := &fakeBackend{
			responses: []string{"not json", ""},
			errs:      []error{nil, errors.New("rate limited")},
		}
		client := newTestClient(backend)

		_, err := client.Extract(context.Background(), "text", expenseCategories, incomeCategories)
		var provErr *ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("Extract() error = %T, want *ProviderError", err)
		}
	})

	t.Run("empty response", func(t *testing.T) {
		backend := &fakeBackend{responses: []string{"   \n"}}
		client := newTestClient(backend)

		_, err := client.Extract(context.Background(), "text", expenseCategories, incomeCategories)
		var provErr *ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("Extract() error = %T, want *ProviderError", err)
		}
	})
}
