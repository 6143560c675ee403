// Package classify post-processes extracted transaction candidates: it drops
// the mirror-image legs of inter-account card-bill payments, splits bank
// credits into income vs expense refunds, and normalizes amount signs.
package classify

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/llm"
	"github.com/dvloznov/statement-ingest/internal/statement"
)

// Bucket is the final ledger placement of a transaction.
type Bucket string

const (
	BucketExpense Bucket = "expense"
	BucketIncome  Bucket = "income"
)

// FinalTransaction is a classified candidate plus provenance.
type FinalTransaction struct {
	Date        string
	Description string

	// SignedAmount is negative for an expense-bucket credit (a refund
	// reducing total spend), positive otherwise. Income amounts are the
	// unsigned magnitude.
	SignedAmount decimal.Decimal

	Category  string
	Direction llm.Direction
	Bucket    Bucket

	SourceFile  string
	ProcessedAt time.Time
}

// Classifier applies the post-extraction rules. Classification never fails
// for data-shape reasons: malformed candidates are dropped with a warning,
// never aborting the batch.
type Classifier struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Classifier {
	return &Classifier{log: log}
}

// Classify splits candidates into expense and income rows, preserving
// extraction order within each bucket.
//
// An attachment with no resolved statement config is treated as a bank
// statement: credits on such documents are income, and credit-card-specific
// payment filtering only applies when the registry says credit_card.
func (c *Classifier) Classify(candidates []llm.Candidate, cfg *statement.Config, sourceFile string, processedAt time.Time) (expenses, incomes []FinalTransaction) {
	stype := statementType(cfg)

	for _, cand := range candidates {
		if cand.Direction == "" || !cand.Amount.Valid {
			c.log.Warn().
				Str("source_file", sourceFile).
				Str("description", cand.Description).
				Msg("Dropping malformed candidate: missing amount or direction")
			continue
		}

		if isPaymentLeg(cand, stype) {
			continue
		}

		tx := FinalTransaction{
			Date:        cand.Date,
			Description: cand.Description,
			Category:    cand.Category,
			Direction:   cand.Direction,
			SourceFile:  sourceFile,
			ProcessedAt: processedAt,
		}

		amount := cand.Amount.Decimal.Abs()

		if stype == statement.TypeBankStatement && cand.Direction == llm.DirectionCredit {
			tx.Bucket = BucketIncome
			tx.SignedAmount = amount
			incomes = append(incomes, tx)
			continue
		}

		// Everything else is an expense row. A credit here is a refund
		// reducing total spend, stored negative.
		tx.Bucket = BucketExpense
		if cand.Direction == llm.DirectionCredit {
			tx.SignedAmount = amount.Neg()
		} else {
			tx.SignedAmount = amount
		}
		expenses = append(expenses, tx)
	}

	return expenses, incomes
}

// isPaymentLeg reports whether the candidate is one of the two legs of an
// inter-account card-bill payment: the credit on the card statement or the
// debit on the bank statement. Dropping both prevents double-counting the
// payment as an expense and an outflow event.
func isPaymentLeg(cand llm.Candidate, stype statement.Type) bool {
	if !cand.IsPayment {
		return false
	}
	switch stype {
	case statement.TypeCreditCard:
		return cand.Direction == llm.DirectionCredit
	case statement.TypeBankStatement:
		return cand.Direction == llm.DirectionDebit
	}
	return false
}

func statementType(cfg *statement.Config) statement.Type {
	if cfg == nil || cfg.Type == statement.TypeUnknown {
		return statement.TypeBankStatement
	}
	return cfg.Type
}
