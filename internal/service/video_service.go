package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/scriptcast/internal/config"
	"github.com/iconidentify/scriptcast/internal/domain"
	"github.com/iconidentify/scriptcast/internal/downloader"
	"github.com/iconidentify/scriptcast/internal/repository"
	"github.com/iconidentify/scriptcast/pkg/heygen"
	"github.com/iconidentify/scriptcast/pkg/vimeo"
)

// VideoService orchestrates the video generation and publication
// pipeline: submit the job, poll it to completion, pull the rendered
// file down, push it to the hosting provider, and persist the outcome
// on the session.
type VideoService struct {
	sessions   repository.SessionRepository
	jobs       repository.JobRepository
	heygen     heygen.Client
	vimeo      vimeo.Client
	downloader downloader.Downloader
	storageCfg config.StorageConfig
	workerCfg  config.WorkerConfig
	poller     *poller
	logger     *slog.Logger
}

// NewVideoService creates a new video service.
func NewVideoService(
	sessions repository.SessionRepository,
	jobs repository.JobRepository,
	heygenClient heygen.Client,
	vimeoClient vimeo.Client,
	dl downloader.Downloader,
	storageCfg config.StorageConfig,
	workerCfg config.WorkerConfig,
	heygenCfg config.HeyGenConfig,
	logger *slog.Logger,
) *VideoService {
	return &VideoService{
		sessions:   sessions,
		jobs:       jobs,
		heygen:     heygenClient,
		vimeo:      vimeoClient,
		downloader: dl,
		storageCfg: storageCfg,
		workerCfg:  workerCfg,
		poller:     newPoller(heygenClient, heygenCfg.PollInterval, heygenCfg.PollAttempts),
		logger:     logger,
	}
}

// TriggerResponse is returned after scheduling a generation run.
type TriggerResponse struct {
	JobID   domain.JobID
	Message string
}

// Trigger authorizes the caller, claims the session's generation
// lease, marks it "generating", and enqueues the run. It returns
// before any external call is made; the worker pool carries the run to
// its terminal status.
func (s *VideoService) Trigger(ctx context.Context, sessionID domain.SessionID, ownerID string, script domain.Script) (*TriggerResponse, error) {
	if _, err := loadOwnedSession(ctx, s.sessions, sessionID, ownerID); err != nil {
		return nil, err
	}

	if script.Script1 == "" {
		script.Script1 = domain.NoScriptFound
	}
	if script.Script2 == "" {
		script.Script2 = domain.NoScriptFound
	}

	jobID := domain.JobID("gen_" + uuid.New().String()[:8])

	if err := s.sessions.AcquireLease(ctx, sessionID, jobID.String(), s.workerCfg.LeaseTTL); err != nil {
		return nil, err
	}

	if err := s.sessions.UpdatePublication(ctx, sessionID, domain.StatusGenerating, nil); err != nil {
		if relErr := s.sessions.ReleaseLease(ctx, sessionID, jobID.String()); relErr != nil {
			s.logger.Error("failed to release lease", "session_id", sessionID, "error", relErr)
		}
		return nil, fmt.Errorf("mark generating: %w", err)
	}

	job := domain.NewGenerationJob(jobID, sessionID, script)
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		if rbErr := s.sessions.UpdatePublication(ctx, sessionID, domain.StatusUnset, nil); rbErr != nil {
			s.logger.Error("failed to reset publication status", "session_id", sessionID, "error", rbErr)
		}
		if relErr := s.sessions.ReleaseLease(ctx, sessionID, jobID.String()); relErr != nil {
			s.logger.Error("failed to release lease", "session_id", sessionID, "error", relErr)
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("generation scheduled",
		"session_id", sessionID,
		"job_id", jobID,
	)

	return &TriggerResponse{
		JobID:   jobID,
		Message: "script received",
	}, nil
}

// Outcome is the result of one generation run. HostedLink is the
// public URL on success and "error" on failure.
type Outcome struct {
	LocalFile  string
	HostedURI  string
	HostedLink string
}

// Generate runs the full pipeline for one job. It never returns an
// error and never panics past this boundary: every failure funnels
// through one handler that marks the session "error", logs the cause,
// and yields the error outcome. The session's lease is released when
// the run ends either way.
func (s *VideoService) Generate(ctx context.Context, job *domain.GenerationJob) (outcome Outcome) {
	logger := s.logger.With("session_id", job.SessionID, "job_id", job.ID)

	// Terminal writes use a detached context: shutdown cancels the
	// run's context, and a returning run must still persist its state.
	defer func() {
		if err := s.sessions.ReleaseLease(context.WithoutCancel(ctx), job.SessionID, job.ID.String()); err != nil {
			logger.Error("failed to release lease", "error", err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", "panic", r, "stack", string(debug.Stack()))
			outcome = s.failRun(ctx, logger, job.SessionID, fmt.Errorf("panic: %v", r))
		}
	}()

	// Step 1: submit the generation job
	videoID, err := s.heygen.Submit(ctx, job.Script)
	if err != nil {
		return s.failRun(ctx, logger, job.SessionID, fmt.Errorf("%w: %v", domain.ErrGenerationRequest, err))
	}
	logger = logger.With("video_id", videoID)
	logger.Info("generation job submitted")

	// Step 2: poll until terminal
	videoURL, err := s.poller.Await(ctx, videoID)
	if err != nil {
		return s.failRun(ctx, logger, job.SessionID, err)
	}

	// Step 3: download the rendered video. The unix suffix keeps
	// re-runs for the same video ID from colliding.
	localFile := filepath.Join(s.storageCfg.TempPath, fmt.Sprintf("%s_%d.mp4", videoID, time.Now().Unix()))
	if err := s.downloader.DownloadFile(ctx, videoURL, localFile); err != nil {
		return s.failRun(ctx, logger, job.SessionID, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err))
	}
	defer func() {
		if err := os.Remove(localFile); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove temp file", "path", localFile, "error", err)
		}
	}()

	// Step 4: publish to the hosting provider
	uri, link, err := s.publish(ctx, localFile, job.Script)
	if err != nil {
		return s.failRun(ctx, logger, job.SessionID, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err))
	}

	// Step 5: persist the public link
	now := time.Now().UTC()
	if err := s.sessions.UpdatePublication(context.WithoutCancel(ctx), job.SessionID, link, &now); err != nil {
		return s.failRun(ctx, logger, job.SessionID, fmt.Errorf("persist outcome: %w", err))
	}

	logger.Info("video published", "link", link)

	return Outcome{
		LocalFile:  localFile,
		HostedURI:  uri,
		HostedLink: link,
	}
}

// publish uploads the file, opens its visibility for viewing and
// embedding, and resolves the shareable link.
func (s *VideoService) publish(ctx context.Context, path string, script domain.Script) (uri, link string, err error) {
	meta := vimeo.Metadata{
		Name:        "Generated Video",
		Description: fmt.Sprintf("Script1: %s, Script2: %s", script.Script1, script.Script2),
	}

	uri, err = s.vimeo.Upload(ctx, path, meta)
	if err != nil {
		return "", "", fmt.Errorf("upload: %w", err)
	}
	if err = s.vimeo.SetPrivacy(ctx, uri, "view", "anybody"); err != nil {
		return "", "", fmt.Errorf("set view privacy: %w", err)
	}
	if err = s.vimeo.SetPrivacy(ctx, uri, "embed", "public"); err != nil {
		return "", "", fmt.Errorf("set embed privacy: %w", err)
	}
	link, err = s.vimeo.Link(ctx, uri)
	if err != nil {
		return "", "", fmt.Errorf("resolve link: %w", err)
	}

	return uri, link, nil
}

// failRun is the single failure handler for the pipeline: record the
// error status, log the cause keyed by session, return the error
// outcome.
func (s *VideoService) failRun(ctx context.Context, logger *slog.Logger, sessionID domain.SessionID, cause error) Outcome {
	logger.Error("video generation failed", "error", domain.NewSessionError(sessionID, "generate", cause))

	if err := s.sessions.UpdatePublication(context.WithoutCancel(ctx), sessionID, domain.StatusError, nil); err != nil {
		logger.Error("failed to mark session error", "error", err)
	}

	return Outcome{HostedLink: domain.StatusError}
}
