package repository

import (
	"context"
	"time"

	"github.com/iconidentify/scriptcast/internal/domain"
)

// SessionRepository manages persisted chat sessions. Session rows are
// created by the chat component; this service mostly reads and updates
// the script and publication fields.
type SessionRepository interface {
	// Create inserts a new session row.
	Create(ctx context.Context, session *domain.Session) error
	// Get retrieves a session by ID.
	Get(ctx context.Context, id domain.SessionID) (*domain.Session, error)
	// UpdateScript stores the extracted two-part script.
	UpdateScript(ctx context.Context, id domain.SessionID, script domain.Script) error
	// UpdatePublication sets the publication status and, for a public
	// URL, the publication timestamp.
	UpdatePublication(ctx context.Context, id domain.SessionID, status string, publishedAt *time.Time) error
	// AcquireLease claims the session for one generation run. Returns
	// domain.ErrGenerationInFlight when a live lease is already held.
	AcquireLease(ctx context.Context, id domain.SessionID, owner string, ttl time.Duration) error
	// ReleaseLease clears the lease if still held by owner.
	ReleaseLease(ctx context.Context, id domain.SessionID, owner string) error
}

// ConfigRepository is a key-value store for runtime configuration such
// as the chat system prompt.
type ConfigRepository interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// JobRepository manages the video generation job queue.
type JobRepository interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *domain.GenerationJob) error
	// Dequeue retrieves the next queued job (FIFO).
	Dequeue(ctx context.Context) (*domain.GenerationJob, error)
	// Update modifies job state.
	Update(ctx context.Context, job *domain.GenerationJob) error
	// Get retrieves a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.GenerationJob, error)
	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)
}

// QueueStats holds counts of jobs by status.
type QueueStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
