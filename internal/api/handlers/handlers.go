package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/api/middleware"
	"github.com/dvloznov/statement-ingest/internal/jobs"
)

// maxInboundBytes caps the multipart payload of one inbound email.
const maxInboundBytes = 64 << 20 // 64 MiB

// InboundHandler handles the inbound-email webhook.
type InboundHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewInboundHandler creates a new inbound email handler.
func NewInboundHandler(publisher jobs.Publisher, log zerolog.Logger) *InboundHandler {
	return &InboundHandler{
		publisher: publisher,
		log:       log,
	}
}

// ReceiveEmail handles POST /api/inbound/email.
//
// The request is a multipart form as sent by email-forwarding webhooks; any
// part that is a PDF attachment is queued for processing. The response is
// returned immediately, before any PDF is decoded. An email with no PDF
// attachments is acknowledged with 200 and nothing is queued.
func (h *InboundHandler) ReceiveEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxInboundBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	email, err := readInboundEmail(mr)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read inbound email")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}
	subject := email.Subject
	sender := email.From
	attachments := email.Attachments

	if len(attachments) == 0 {
		h.log.Info().
			Str("subject", subject).
			Str("from", sender).
			Msg("Inbound email has no PDF attachments, ignoring")
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ignored",
			"attachments": 0,
		})
		return
	}

	job := &jobs.ProcessEmailJob{
		BatchID:     uuid.New().String(),
		Attachments: attachments,
	}

	if err := h.publisher.PublishProcessEmail(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue email-processing job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue processing job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("batch_id", job.BatchID).
		Str("subject", subject).
		Int("attachments", len(attachments)).
		Msg("Email-processing job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":      job.JobID,
		"batch_id":    job.BatchID,
		"status":      string(job.Status),
		"attachments": len(attachments),
	})
}

// inboundEmail is the decoded payload of one forwarded email.
type inboundEmail struct {
	Subject     string
	From        string
	Attachments []jobs.Attachment
}

// readInboundEmail streams the multipart parts in wire order, so attachments
// keep the order they were received in. Non-PDF file parts are silently
// skipped.
func readInboundEmail(mr *multipart.Reader) (*inboundEmail, error) {
	email := &inboundEmail{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return email, nil
		}
		if err != nil {
			return nil, err
		}

		if part.FileName() == "" {
			value, err := io.ReadAll(part)
			if err != nil {
				return nil, err
			}
			switch part.FormName() {
			case "subject":
				email.Subject = string(value)
			case "from":
				email.From = string(value)
			}
			continue
		}

		if !isPDF(part.FileName(), part.Header.Get("Content-Type")) {
			continue
		}
		content, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		email.Attachments = append(email.Attachments, jobs.Attachment{
			Filename:    filepath.Base(part.FileName()),
			ContentType: part.Header.Get("Content-Type"),
			Content:     content,
		})
	}
}

// isPDF accepts a part by declared content type or filename suffix. Webhook
// providers are inconsistent about which of the two they set.
func isPDF(filename, contentType string) bool {
	if contentType != "" {
		if mt, _, ok := strings.Cut(contentType, ";"); ok {
			contentType = mt
		}
		if strings.EqualFold(strings.TrimSpace(contentType), "application/pdf") {
			return true
		}
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		BatchID: query.Get("batch_id"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
