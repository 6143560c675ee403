package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-ingest/internal/archive"
	"github.com/dvloznov/statement-ingest/internal/config"
	infraBQ "github.com/dvloznov/statement-ingest/internal/infra/bigquery"
	"github.com/dvloznov/statement-ingest/internal/jobs"
	"github.com/dvloznov/statement-ingest/internal/jobs/inmemory"
	"github.com/dvloznov/statement-ingest/internal/ledger"
	"github.com/dvloznov/statement-ingest/internal/llm"
	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/pdfdecode"
	"github.com/dvloznov/statement-ingest/internal/processor"
	"github.com/dvloznov/statement-ingest/internal/statement"
)

// Standalone consumer process. With the in-memory queue this only sees jobs
// published from this process; it exists as the slot-in point for a durable
// queue backend (Cloud Tasks or Pub/Sub).
func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := statement.NewRegistry(cfg.PDFPasswords)
	decoder := pdfdecode.NewDecoder(registry, log)

	extractor, err := llm.NewClient(ctx, cfg.LLM, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}

	sheet := ledger.NewSheets(cfg.Ledger, log)
	proc := processor.New(decoder, extractor, sheet, log)

	if cfg.Audit.BigQueryProject != "" {
		auditor, err := infraBQ.NewAuditRepository(ctx, cfg.Audit.BigQueryProject, cfg.Audit.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create audit repository")
		}
		defer auditor.Close()
		proc.WithAuditor(auditor)
	}
	if cfg.Audit.GCSBucket != "" {
		proc.WithArchiver(archive.NewGCSArchiver(cfg.Audit.GCSBucket))
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Jobs.QueueBuffer, cfg.Jobs.Workers, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job jobs.Job) error {
		emailJob, ok := job.(*jobs.ProcessEmailJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", emailJob.JobID).
			Str("batch_id", emailJob.BatchID).
			Int("attachments", len(emailJob.Attachments)).
			Msg("Processing inbound email")

		return proc.ProcessBatch(ctx, emailJob.BatchID, emailJob.Attachments)
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker exited")
}
