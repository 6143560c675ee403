// Package ledger appends classified transactions to a Google Sheets
// spreadsheet and supplies the category taxonomy the extraction prompt is
// built from.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/dvloznov/statement-ingest/internal/classify"
	"github.com/dvloznov/statement-ingest/internal/config"
)

// ErrNoCategories signals that the category source returned nothing. The
// whole batch is aborted; callers never fall back to an empty category set.
var ErrNoCategories = errors.New("category source returned no categories")

// Sheet ranges. Column B of the setup tab holds expense categories, column D
// income categories. Appends target the Expenses and Income tabs.
const (
	expenseCategoryRange = "Category Setup!B3:B40"
	incomeCategoryRange  = "Category Setup!D3:D40"
	expenseAppendRange   = "Expenses!B:H"
	incomeAppendRange    = "Income!B:G"
)

// Categories are the two lists supplied to the extraction prompt.
type Categories struct {
	Expense []string
	Income  []string
}

// Sheets is the Google Sheets ledger sink. The underlying service is created
// lazily on first use and cached for the process lifetime; a credential
// rotation requires a restart.
type Sheets struct {
	spreadsheetID string
	credentials   string

	once    sync.Once
	svc     *sheets.Service
	initErr error

	log zerolog.Logger
}

func NewSheets(cfg config.LedgerConfig, log zerolog.Logger) *Sheets {
	return &Sheets{
		spreadsheetID: cfg.SpreadsheetID,
		credentials:   cfg.CredentialsJSON,
		log:           log,
	}
}

func (s *Sheets) service(ctx context.Context) (*sheets.Service, error) {
	s.once.Do(func() {
		opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
		if s.credentials != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(s.credentials)))
		}
		svc, err := sheets.NewService(ctx, opts...)
		if err != nil {
			s.initErr = fmt.Errorf("create sheets service: %w", err)
			return
		}
		s.svc = svc
	})
	return s.svc, s.initErr
}

// GetCategories fetches the expense and income category lists. Called once
// per attachment-processing batch.
func (s *Sheets) GetCategories(ctx context.Context) (*Categories, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	expense, err := s.readColumn(ctx, svc, expenseCategoryRange)
	if err != nil {
		return nil, fmt.Errorf("GetCategories: %w", err)
	}
	income, err := s.readColumn(ctx, svc, incomeCategoryRange)
	if err != nil {
		return nil, fmt.Errorf("GetCategories: %w", err)
	}

	if len(expense) == 0 || len(income) == 0 {
		return nil, fmt.Errorf("GetCategories: %w", ErrNoCategories)
	}
	return &Categories{Expense: expense, Income: income}, nil
}

func (s *Sheets) readColumn(ctx context.Context, svc *sheets.Service, readRange string) ([]string, error) {
	resp, err := svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", readRange, err)
	}

	var values []string
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if v, ok := row[0].(string); ok && v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

// AppendExpenses appends expense-bucket rows to the Expenses tab, preserving
// extraction order.
func (s *Sheets) AppendExpenses(ctx context.Context, txs []classify.FinalTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(txs))
	for _, tx := range txs {
		values = append(values, expenseRow(tx))
	}

	if err := s.append(ctx, expenseAppendRange, values); err != nil {
		return fmt.Errorf("AppendExpenses: %w", err)
	}
	s.log.Info().Int("rows", len(values)).Msg("Expense transactions appended to ledger")
	return nil
}

// AppendIncome appends income-bucket rows to the Income tab.
func (s *Sheets) AppendIncome(ctx context.Context, txs []classify.FinalTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(txs))
	for _, tx := range txs {
		values = append(values, incomeRow(tx))
	}

	if err := s.append(ctx, incomeAppendRange, values); err != nil {
		return fmt.Errorf("AppendIncome: %w", err)
	}
	s.log.Info().Int("rows", len(values)).Msg("Income transactions appended to ledger")
	return nil
}

// expenseRow renders one Expenses-tab row: date, description, signed amount,
// category, source file, processed date, direction.
func expenseRow(tx classify.FinalTransaction) []interface{} {
	return []interface{}{
		tx.Date,
		tx.Description,
		tx.SignedAmount.StringFixed(2),
		tx.Category,
		tx.SourceFile,
		tx.ProcessedAt.Format("2006-01-02"),
		string(tx.Direction),
	}
}

// incomeRow renders one Income-tab row; the Income tab has no direction
// column, every row there is a credit.
func incomeRow(tx classify.FinalTransaction) []interface{} {
	return []interface{}{
		tx.Date,
		tx.Description,
		tx.SignedAmount.StringFixed(2),
		tx.Category,
		tx.SourceFile,
		tx.ProcessedAt.Format("2006-01-02"),
	}
}

func (s *Sheets) append(ctx context.Context, appendRange string, values [][]interface{}) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	_, err = svc.Spreadsheets.Values.
		Append(s.spreadsheetID, appendRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", appendRange, err)
	}
	return nil
}
