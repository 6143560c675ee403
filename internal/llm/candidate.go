// Package llm extracts structured transaction candidates from statement text
// through a provider-agnostic model client. All provider variants share one
// prompt builder and one response parser, so downstream classification never
// sees provider-specific quirks.
package llm

import "github.com/shopspring/decimal"

// Direction is whether money left or entered the account.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// PaymentCategory is the fixed sentinel category assigned to credit-card
// bill-payment credits.
const PaymentCategory = "CC Payment"

// Candidate is one model-extracted transaction before classification.
// Amount is always the unsigned magnitude at this stage; sign is assigned by
// the classifier.
type Candidate struct {
	// Date in canonical ISO form "YYYY-MM-DD", or the raw model value
	// when it could not be normalized. Empty when the model returned null.
	Date string `json:"date"`

	Description string `json:"description"`

	// Amount is invalid when the model returned null or a non-number.
	Amount decimal.NullDecimal `json:"amount"`

	// Direction is empty when missing or unrecognized.
	Direction Direction `json:"direction"`

	// Category is empty when the model returned null.
	Category string `json:"category"`

	// IsPayment is true only for credit-card bill payments.
	IsPayment bool `json:"isPayment"`
}
