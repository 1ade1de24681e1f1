package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/iconidentify/scriptcast/internal/domain"
)

func TestJobRepository_EnqueueDequeueFIFO(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	for _, id := range []domain.JobID{"j1", "j2", "j3"} {
		job := domain.NewGenerationJob(id, domain.SessionID("s-"+string(id)), domain.Script{})
		if err := repo.Enqueue(ctx, job); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	for _, want := range []domain.JobID{"j1", "j2", "j3"} {
		job, err := repo.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if job.ID != want {
			t.Errorf("dequeued %q, want %q", job.ID, want)
		}
	}

	if _, err := repo.Dequeue(ctx); !errors.Is(err, domain.ErrNoJobs) {
		t.Fatalf("expected ErrNoJobs on empty queue, got %v", err)
	}
}

func TestJobRepository_DequeueSkipsNonQueued(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	j1 := domain.NewGenerationJob("j1", "s1", domain.Script{})
	j2 := domain.NewGenerationJob("j2", "s2", domain.Script{})
	repo.Enqueue(ctx, j1)
	repo.Enqueue(ctx, j2)

	j1.MarkProcessing()
	if err := repo.Update(ctx, j1); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	job, err := repo.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if job.ID != "j2" {
		t.Errorf("dequeued %q, want j2", job.ID)
	}
}

func TestJobRepository_UpdateNotFound(t *testing.T) {
	repo := NewInMemoryJobRepository()

	job := domain.NewGenerationJob("ghost", "s1", domain.Script{})
	if err := repo.Update(context.Background(), job); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobRepository_GetBySessionID(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	repo.Enqueue(ctx, domain.NewGenerationJob("j1", "s1", domain.Script{}))
	repo.Enqueue(ctx, domain.NewGenerationJob("j2", "s1", domain.Script{}))

	job, err := repo.GetBySessionID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetBySessionID failed: %v", err)
	}
	if job.ID != "j2" {
		t.Errorf("job = %q, want the most recent j2", job.ID)
	}

	if _, err := repo.GetBySessionID(ctx, "unknown"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobRepository_Stats(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	queued := domain.NewGenerationJob("j1", "s1", domain.Script{})
	processing := domain.NewGenerationJob("j2", "s2", domain.Script{})
	failed := domain.NewGenerationJob("j3", "s3", domain.Script{})
	repo.Enqueue(ctx, queued)
	repo.Enqueue(ctx, processing)
	repo.Enqueue(ctx, failed)

	processing.MarkProcessing()
	repo.Update(ctx, processing)
	failed.MarkFailed("boom")
	repo.Update(ctx, failed)

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Queued != 1 || stats.Processing != 1 || stats.Failed != 1 || stats.Completed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
