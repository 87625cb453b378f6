package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeScanStatement extracts candidate transactions from a statement image or PDF.
	JobTypeScanStatement JobType = "scan_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is queued again.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a published job does not set MaxRetries.
const DefaultMaxRetries = 2

// ScanJob asks for one statement to be scanned into import lines for an
// account. The statement is either inline (Data) or a gs:// object (SourceURI).
type ScanJob struct {
	JobID     string `json:"job_id"`
	AccountID string `json:"account_id"`

	SourceURI string `json:"source_uri,omitempty"`
	MIMEType  string `json:"mime_type"`
	Data      []byte `json:"-"`

	// Lines holds the extracted candidates once the job completes.
	Lines []domain.ImportLine `json:"lines,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ScanJob) GetID() string        { return j.JobID }
func (j *ScanJob) GetType() JobType     { return JobTypeScanStatement }
func (j *ScanJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs.
type Publisher interface {
	PublishScan(ctx context.Context, job *ScanJob) error
	Close() error
}

// Consumer processes queued jobs.
type Consumer interface {
	// Start begins consuming jobs; handler is called for each one.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the attempt as failed
// and the job is retried while retries remain.
type JobHandler func(ctx context.Context, job Job) error

// JobStore keeps job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *ScanJob) error
	GetJob(ctx context.Context, jobID string) (*ScanJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ScanJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs. Zero fields match everything.
type JobFilter struct {
	AccountID string
	Status    JobStatus
	Limit     int
	Offset    int
}
