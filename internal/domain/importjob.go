package domain

import "context"

// ImportJobState is the lifecycle state of an import job run.
type ImportJobState string

const (
	ImportIdle      ImportJobState = "idle"
	ImportRunning   ImportJobState = "running"
	ImportCompleted ImportJobState = "completed"
	ImportFailed    ImportJobState = "failed"
)

// ImportJobStatus is the transient record describing the latest import run
// for one data family. Each run overwrites the previous status; no history
// is kept.
type ImportJobStatus struct {
	Status           ImportJobState `json:"status"`
	Message          string         `json:"message,omitempty"`
	LastRun          string         `json:"last_run,omitempty"`
	RecordsProcessed int            `json:"records_processed"`
	RecordsFailed    int            `json:"records_failed"`
	FilesProcessed   int            `json:"files_processed,omitempty"`
	FileName         string         `json:"file_name,omitempty"`
	JobID            string         `json:"job_id,omitempty"`
}

// JobStatusStore persists import job status under a per-family key with a
// bounded lifetime.
type JobStatusStore interface {
	Set(ctx context.Context, key string, status *ImportJobStatus) error
	Get(ctx context.Context, key string) (*ImportJobStatus, error)
}
