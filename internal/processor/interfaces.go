package processor

import (
	"context"

	"github.com/dvloznov/statement-ingest/internal/classify"
	"github.com/dvloznov/statement-ingest/internal/ledger"
	"github.com/dvloznov/statement-ingest/internal/pdfdecode"
)

// Decoder turns raw PDF bytes into plain statement text.
type Decoder interface {
	Decode(ctx context.Context, data []byte, filename string) (*pdfdecode.Document, error)
}

// Ledger is the external transaction sink and category source.
type Ledger interface {
	// GetCategories is called once per attachment-processing batch. An
	// empty result aborts the batch before any model calls.
	GetCategories(ctx context.Context) (*ledger.Categories, error)

	// AppendExpenses and AppendIncome append classified rows; within a
	// batch, append order matches extraction order.
	AppendExpenses(ctx context.Context, txs []classify.FinalTransaction) error
	AppendIncome(ctx context.Context, txs []classify.FinalTransaction) error
}

// Auditor records per-attachment processing runs. Optional; a nil Auditor
// disables the audit trail.
type Auditor interface {
	StartRun(ctx context.Context, batchID, filename string) (string, error)
	MarkSucceeded(ctx context.Context, runID string, transactionCount int) error
	MarkFailed(ctx context.Context, runID string, runErr error) error
}

// Archiver stores the raw PDF after successful processing. Optional; a nil
// Archiver disables archival.
type Archiver interface {
	Archive(ctx context.Context, filename string, data []byte) (string, error)
}
