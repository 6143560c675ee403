package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/statement-ingest/internal/api/handlers"
	"github.com/dvloznov/statement-ingest/internal/api/middleware"
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

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Processing pipeline
	registry := statement.NewRegistry(cfg.PDFPasswords)
	log.Info().Int("statements", registry.Len()).Msg("Statement registry loaded")

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
	} else {
		log.Warn().Msg("No BigQuery project configured - audit trail disabled")
	}

	if cfg.Audit.GCSBucket != "" {
		proc.WithArchiver(archive.NewGCSArchiver(cfg.Audit.GCSBucket))
	} else {
		log.Warn().Msg("No GCS bucket configured - PDF archival disabled")
	}

	// Job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Jobs.QueueBuffer, cfg.Jobs.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		emailJob, ok := job.(*jobs.ProcessEmailJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", emailJob.JobID).
			Str("batch_id", emailJob.BatchID).
			Int("attachments", len(emailJob.Attachments)).
			Msg("Processing inbound email")

		if err := proc.ProcessBatch(ctx, emailJob.BatchID, emailJob.Attachments); err != nil {
			log.Error().
				Err(err).
				Str("job_id", emailJob.JobID).
				Str("batch_id", emailJob.BatchID).
				Msg("Batch processing failed")
			return err
		}

		log.Info().
			Str("job_id", emailJob.JobID).
			Str("batch_id", emailJob.BatchID).
			Msg("Batch processing completed")

		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// HTTP surface
	inboundHandler := handlers.NewInboundHandler(jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	// Token auth guards only the webhook; /health and the job endpoints
	// stay open for load balancers and operators.
	mux.Handle("/api/inbound/email", middleware.WebhookAuth(cfg.Server.WebhookToken)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				inboundHandler.ReceiveEmail(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		}),
	))

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
