package domain

import (
	"time"
)

// JobID is a unique identifier for a generation job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// GenerationJob is one scheduled video-generation run for a session.
// The handler enqueues it and returns; a worker consumes it and drives
// the pipeline to a terminal publication status.
type GenerationJob struct {
	ID        JobID
	SessionID SessionID
	Script    Script
	Status    JobStatus
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGenerationJob creates a queued job for a session's script.
func NewGenerationJob(id JobID, sessionID SessionID, script Script) *GenerationJob {
	now := time.Now()
	return &GenerationJob{
		ID:        id,
		SessionID: sessionID,
		Script:    script,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessing updates the job status to processing.
func (j *GenerationJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = time.Now()
}

// MarkCompleted updates the job status to completed.
func (j *GenerationJob) MarkCompleted() {
	j.Status = JobStatusCompleted
	j.UpdatedAt = time.Now()
}

// MarkFailed records the terminal failure of a job. The pipeline has
// already persisted the session's error status by the time this is
// called; whole jobs are not retried.
func (j *GenerationJob) MarkFailed(err string) {
	j.Status = JobStatusFailed
	j.LastError = err
	j.UpdatedAt = time.Now()
}
