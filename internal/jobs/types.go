// Package jobs defines the asynchronous work items behind the inbound-email
// endpoint and the queue abstractions that carry them.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeProcessEmail represents one inbound email's attachments.
	JobTypeProcessEmail JobType = "process_email"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// Attachment is one PDF file carried by an inbound email.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
}

// ProcessEmailJob carries the PDF attachments of one inbound email through
// the queue. Attachments within a job are processed strictly sequentially.
type ProcessEmailJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// BatchID groups all audit records produced by this email.
	BatchID string `json:"batch_id"`

	// Attachments are the PDF files to process, in receipt order.
	Attachments []Attachment `json:"attachments"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed. Zero by
	// default: a failed batch is not replayed, because completed ledger
	// appends within it must not be repeated.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ProcessEmailJob) GetID() string {
	return j.JobID
}

func (j *ProcessEmailJob) GetType() JobType {
	return JobTypeProcessEmail
}

func (j *ProcessEmailJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
// This abstraction allows for different queue implementations.
type Publisher interface {
	// PublishProcessEmail publishes an email-processing job.
	PublishProcessEmail(ctx context.Context, job *ProcessEmailJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	SaveJob(ctx context.Context, job *ProcessEmailJob) error
	GetJob(ctx context.Context, jobID string) (*ProcessEmailJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessEmailJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// BatchID filters jobs by batch ID.
	BatchID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
