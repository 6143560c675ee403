// Package statement holds the static registry of known statement issuers:
// decryption passwords, statement types, and per-issuer decoding hints.
package statement

import "strings"

// Type distinguishes the two statement shapes the classifier cares about.
type Type string

const (
	TypeCreditCard    Type = "credit_card"
	TypeBankStatement Type = "bank_statement"
	TypeUnknown       Type = ""
)

// Config is one registry entry. Entries are constructed once at startup and
// never mutated; the registry is safe for unsynchronized concurrent reads.
type Config struct {
	// Name is the identifier matching the PDF_PASSWORD_<NAME> secret.
	Name string

	// Keywords are lowercase substrings matched against attachment
	// filenames. Must be non-empty.
	Keywords []string

	// Password is the decryption secret, filled from the environment.
	Password string

	Type Type

	// UseColumnLayout requests positional row reconstruction for
	// multi-column statement pages.
	UseColumnLayout bool

	// PagesToParse caps the number of leading pages decoded. 0 = all.
	PagesToParse int
}

// knownStatements lists every issuer layout the decoder understands. An entry
// only becomes active when a matching PDF_PASSWORD_<NAME> secret is set.
var knownStatements = []Config{
	{
		Name:            "idfc",
		Keywords:        []string{"idfc"},
		Type:            TypeCreditCard,
		UseColumnLayout: true,
	},
	{
		Name:     "axis",
		Keywords: []string{"axis"},
		Type:     TypeCreditCard,
	},
	{
		Name:         "hdfc",
		Keywords:     []string{"hdfc"},
		Type:         TypeBankStatement,
		PagesToParse: 4,
	},
	{
		Name:     "icici",
		Keywords: []string{"icici"},
		Type:     TypeBankStatement,
	},
	{
		Name:            "amazon",
		Keywords:        []string{"amazon", "retail_amazon"},
		Type:            TypeCreditCard,
		UseColumnLayout: true,
	},
}

// Registry resolves attachment filenames to statement configs.
type Registry struct {
	entries []Config
}

// NewRegistry builds the active registry from the known statement table and
// the password secrets loaded from the environment. Entries without a
// configured password are excluded.
func NewRegistry(passwords map[string]string) *Registry {
	return newRegistryFrom(knownStatements, passwords)
}

func newRegistryFrom(known []Config, passwords map[string]string) *Registry {
	entries := make([]Config, 0, len(known))
	for _, cfg := range known {
		pw, ok := passwords[cfg.Name]
		if !ok || pw == "" {
			continue
		}
		cfg.Password = pw
		entries = append(entries, cfg)
	}
	return &Registry{entries: entries}
}

// Resolve returns the first registry entry (in registration order) with any
// keyword contained in the filename, case-insensitive. First match wins even
// when a later entry would also match. Returns nil when nothing matches;
// callers must still attempt unencrypted decoding in that case.
func (r *Registry) Resolve(filename string) *Config {
	name := strings.ToLower(filename)
	for i := range r.entries {
		for _, kw := range r.entries[i].Keywords {
			if strings.Contains(name, kw) {
				cfg := r.entries[i]
				return &cfg
			}
		}
	}
	return nil
}

// Len reports the number of active entries.
func (r *Registry) Len() int {
	return len(r.entries)
}
