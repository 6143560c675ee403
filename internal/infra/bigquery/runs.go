// Package bigquery records a processing-run audit trail: one row per
// attachment, with RUNNING / SUCCESS / FAILED status transitions.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const runsTable = "processing_runs"

// RunRow is one attachment-processing audit record.
type RunRow struct {
	RunID   string `bigquery:"run_id"`
	BatchID string `bigquery:"batch_id"`

	Filename string `bigquery:"filename"`

	StartedAt  time.Time              `bigquery:"started_ts"`
	FinishedAt bigquery.NullTimestamp `bigquery:"finished_ts"`

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	ProcessedDate bigquery.NullDate  `bigquery:"processed_date"`
	Transactions  bigquery.NullInt64 `bigquery:"transaction_count"`
}

// AuditRepository writes and reads processing runs. Created once at startup
// when a BigQuery project is configured.
type AuditRepository struct {
	client  *bigquery.Client
	dataset string
}

func NewAuditRepository(ctx context.Context, projectID, dataset string) (*AuditRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewAuditRepository: bigquery client: %w", err)
	}
	return &AuditRepository{client: client, dataset: dataset}, nil
}

func (r *AuditRepository) Close() error {
	return r.client.Close()
}

// StartRun inserts a RUNNING row for the attachment and returns the run ID.
func (r *AuditRepository) StartRun(ctx context.Context, batchID, filename string) (string, error) {
	runID := uuid.NewString()

	row := &RunRow{
		RunID:     runID,
		BatchID:   batchID,
		Filename:  filename,
		StartedAt: time.Now(),
		Status:    "RUNNING",
	}

	inserter := r.client.Dataset(r.dataset).Table(runsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("StartRun: inserting row: %w", err)
	}
	return runID, nil
}

// MarkSucceeded updates a run to SUCCESS with the number of ledger rows
// written.
func (r *AuditRepository) MarkSucceeded(ctx context.Context, runID string, transactionCount int) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    processed_date = @processed_date,
		    transaction_count = @transaction_count,
		    error_message = ""
		WHERE run_id = @run_id
	`, r.dataset, runsTable))

	now := time.Now()
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: now},
		{Name: "processed_date", Value: civil.DateOf(now)},
		{Name: "transaction_count", Value: int64(transactionCount)},
		{Name: "run_id", Value: runID},
	}

	return r.runQuery(ctx, q, "MarkSucceeded")
}

// MarkFailed updates a run to FAILED with a truncated error message.
func (r *AuditRepository) MarkFailed(ctx context.Context, runID string, runErr error) error {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	return r.runQuery(ctx, q, "MarkFailed")
}

// ListRecentRuns returns the most recent runs, newest first.
func (r *AuditRepository) ListRecentRuns(ctx context.Context, limit int) ([]*RunRow, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT run_id, batch_id, filename, started_ts, finished_ts,
		       status, error_message, processed_date, transaction_count
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, r.dataset, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentRuns: running query: %w", err)
	}

	var rows []*RunRow
	for {
		var row RunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentRuns: reading row: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

func (r *AuditRepository) runQuery(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running update query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}
