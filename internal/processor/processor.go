// Package processor orchestrates the per-attachment pipeline: decode the PDF,
// extract transaction candidates through the model client, classify them, and
// append the results to the ledger.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/classify"
	"github.com/dvloznov/statement-ingest/internal/jobs"
	"github.com/dvloznov/statement-ingest/internal/llm"
	"github.com/dvloznov/statement-ingest/internal/pdfdecode"
)

// Processor runs attachment batches. Attachments within a batch are processed
// strictly sequentially, each completing through ledger append before the
// next begins.
type Processor struct {
	decoder    Decoder
	extractor  llm.Extractor
	ledger     Ledger
	classifier *classify.Classifier
	auditor    Auditor
	archiver   Archiver
	log        zerolog.Logger
}

func New(decoder Decoder, extractor llm.Extractor, sink Ledger, log zerolog.Logger) *Processor {
	return &Processor{
		decoder:    decoder,
		extractor:  extractor,
		ledger:     sink,
		classifier: classify.New(log),
		log:        log,
	}
}

// WithAuditor enables the processing-run audit trail.
func (p *Processor) WithAuditor(a Auditor) *Processor {
	p.auditor = a
	return p
}

// WithArchiver enables archival of successfully processed PDFs.
func (p *Processor) WithArchiver(a Archiver) *Processor {
	p.archiver = a
	return p
}

// ProcessBatch processes one inbound email's attachments. The category lists
// are fetched once for the batch; a failed or empty fetch aborts the whole
// batch before any model calls. Per-attachment failures are logged and
// skipped, never aborting the batch.
func (p *Processor) ProcessBatch(ctx context.Context, batchID string, attachments []jobs.Attachment) error {
	categories, err := p.ledger.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("ProcessBatch %s: fetching categories: %w", batchID, err)
	}

	for _, att := range attachments {
		p.processAttachment(ctx, batchID, att, categories.Expense, categories.Income)
	}
	return nil
}

func (p *Processor) processAttachment(ctx context.Context, batchID string, att jobs.Attachment, expenseCategories, incomeCategories []string) {
	log := p.log.With().
		Str("batch_id", batchID).
		Str("filename", att.Filename).
		Logger()

	runID := p.startRun(ctx, batchID, att.Filename, log)

	doc, err := p.decoder.Decode(ctx, att.Content, att.Filename)
	if err != nil {
		p.markFailed(ctx, runID, err, log)
		logDecodeFailure(log, err)
		return
	}

	if strings.TrimSpace(doc.Text) == "" {
		// No content is a skip, not an error.
		log.Info().Int("pages", doc.PageCount).Msg("Decoded PDF contains no text, skipping")
		p.markSucceeded(ctx, runID, 0, log)
		return
	}

	log.Info().
		Int("pages", doc.PageCount).
		Bool("was_encrypted", doc.WasEncrypted).
		Msg("PDF decoded")

	candidates, err := p.extractor.Extract(ctx, doc.Text, expenseCategories, incomeCategories)
	if err != nil {
		p.markFailed(ctx, runID, err, log)
		logExtractFailure(log, err)
		return
	}

	if len(candidates) == 0 {
		log.Info().Msg("Model found no transactions, skipping")
		p.markSucceeded(ctx, runID, 0, log)
		return
	}

	expenses, incomes := p.classifier.Classify(candidates, doc.Config, att.Filename, time.Now())

	if err := p.ledger.AppendExpenses(ctx, expenses); err != nil {
		p.markFailed(ctx, runID, err, log)
		log.Error().Err(err).Msg("Failed to append expense rows")
		return
	}
	if err := p.ledger.AppendIncome(ctx, incomes); err != nil {
		p.markFailed(ctx, runID, err, log)
		log.Error().Err(err).Msg("Failed to append income rows")
		return
	}

	if p.archiver != nil {
		uri, err := p.archiver.Archive(ctx, att.Filename, att.Content)
		if err != nil {
			// Archival is best-effort; the ledger writes already landed.
			log.Warn().Err(err).Msg("Failed to archive processed PDF")
		} else {
			log.Info().Str("uri", uri).Msg("Processed PDF archived")
		}
	}

	total := len(expenses) + len(incomes)
	p.markSucceeded(ctx, runID, total, log)
	log.Info().
		Int("expenses", len(expenses)).
		Int("incomes", len(incomes)).
		Msg("Attachment processed")
}

func logDecodeFailure(log zerolog.Logger, err error) {
	var decryptErr *pdfdecode.DecryptionFailedError
	switch {
	case errors.Is(err, pdfdecode.ErrMissingPassword):
		log.Warn().Err(err).Msg("Encrypted PDF with no resolvable password, skipping")
	case errors.As(err, &decryptErr):
		log.Warn().Err(err).Msg("PDF decryption failed, skipping")
	default:
		log.Error().Err(err).Msg("PDF decoding failed, skipping")
	}
}

func logExtractFailure(log zerolog.Logger, err error) {
	var parseErr *llm.ExtractionParseError
	if errors.As(err, &parseErr) {
		// Include the offending raw text for diagnosis.
		log.Error().Err(err).Str("raw_response", parseErr.Raw).Msg("Model response unparsable after repair, skipping")
		return
	}
	log.Error().Err(err).Msg("Transaction extraction failed, skipping")
}

func (p *Processor) startRun(ctx context.Context, batchID, filename string, log zerolog.Logger) string {
	if p.auditor == nil {
		return ""
	}
	runID, err := p.auditor.StartRun(ctx, batchID, filename)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record processing run start")
		return ""
	}
	return runID
}

func (p *Processor) markSucceeded(ctx context.Context, runID string, count int, log zerolog.Logger) {
	if p.auditor == nil || runID == "" {
		return
	}
	if err := p.auditor.MarkSucceeded(ctx, runID, count); err != nil {
		log.Warn().Err(err).Msg("Failed to record processing run success")
	}
}

func (p *Processor) markFailed(ctx context.Context, runID string, runErr error, log zerolog.Logger) {
	if p.auditor == nil || runID == "" {
		return
	}
	if err := p.auditor.MarkFailed(ctx, runID, runErr); err != nil {
		log.Warn().Err(err).Msg("Failed to record processing run failure")
	}
}
