package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeDeleteArtifact removes a transient object from the object store.
	JobTypeDeleteArtifact JobType = "delete_artifact"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting for its visibility time.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. Failed jobs are not retried.
	JobStatusFailed JobStatus = "failed"
)

// ArtifactKind describes what a transient object was used for.
type ArtifactKind string

const (
	ArtifactGeneratedImage ArtifactKind = "generated_image"
	ArtifactAnalyzedImage  ArtifactKind = "analyzed_image"
	ArtifactSourcePDF      ArtifactKind = "source_pdf"
	ArtifactSwept          ArtifactKind = "swept"
)

// DeleteArtifactJob is a delayed deletion of one object from the object store.
type DeleteArtifactJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// ObjectName is the name of the object in the bucket.
	ObjectName string `json:"object_name"`

	Kind ArtifactKind `json:"kind"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// VisibleAt is the earliest time the job may run.
	VisibleAt time.Time `json:"visible_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *DeleteArtifactJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *DeleteArtifactJob) GetType() JobType {
	return JobTypeDeleteArtifact
}

// GetStatus implements the Job interface.
func (j *DeleteArtifactJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing delayed jobs.
// Implementations must not block the caller until the job becomes visible.
type Publisher interface {
	// PublishDeleteArtifact enqueues a deletion that becomes visible at job.VisibleAt.
	PublishDeleteArtifact(ctx context.Context, job *DeleteArtifactJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called once for each job when it becomes visible.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for the in-flight job to complete.
	// Jobs that are not yet visible are dropped.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// A returned error marks the job failed; it is never retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *DeleteArtifactJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*DeleteArtifactJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*DeleteArtifactJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// ObjectName filters jobs by object name.
	ObjectName string

	// Status filters jobs by status.
	Status JobStatus

	// Kind filters jobs by the kind of artifact they delete.
	Kind ArtifactKind

	// OverdueAt, when set, keeps only pending jobs that should already have
	// run at that time, e.g. deletions stranded by a stopped worker.
	OverdueAt time.Time

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// ErrJobNotFound is returned by JobStore implementations for unknown IDs.
var ErrJobNotFound = errors.New("job not found")
