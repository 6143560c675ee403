package llm

import "fmt"

// ProviderError signals a transport or auth failure talking to the model
// backend. Configuration problems (bad or missing credentials) are raised at
// client construction instead.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ExtractionParseError signals a response that could not be repaired into
// valid structured data. Raw carries the offending text for diagnosis.
type ExtractionParseError struct {
	Raw string
	Err error
}

func (e *ExtractionParseError) Error() string {
	return fmt.Sprintf("unparsable model response: %v", e.Err)
}

func (e *ExtractionParseError) Unwrap() error {
	return e.Err
}
