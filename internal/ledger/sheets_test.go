package ledger

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ingest/internal/classify"
	"github.com/dvloznov/statement-ingest/internal/llm"
)

var processedAt = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestExpenseRow(t *testing.T) {
	tx := classify.FinalTransaction{
		Date:         "2024-02-03",
		Description:  "MYNTRA REFUND",
		SignedAmount: decimal.NewFromInt(-1200),
		Category:     "Clothing",
		Direction:    llm.DirectionCredit,
		Bucket:       classify.BucketExpense,
		SourceFile:   "axis-card.pdf",
		ProcessedAt:  processedAt,
	}

	got := expenseRow(tx)
	want := []interface{}{"2024-02-03", "MYNTRA REFUND", "-1200.00", "Clothing", "axis-card.pdf", "2024-03-01", "credit"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expenseRow() = %v, want %v", got, want)
	}
}

func TestIncomeRow(t *testing.T) {
	tx := classify.FinalTransaction{
		Date:         "2024-02-01",
		Description:  "SALARY",
		SignedAmount: decimal.NewFromFloat(150000.5),
		Category:     "Salary",
		Direction:    llm.DirectionCredit,
		Bucket:       classify.BucketIncome,
		SourceFile:   "idfc-bank.pdf",
		ProcessedAt:  processedAt,
	}

	got := incomeRow(tx)
	want := []interface{}{"2024-02-01", "SALARY", "150000.50", "Salary", "idfc-bank.pdf", "2024-03-01"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("incomeRow() = %v, want %v", got, want)
	}
}
