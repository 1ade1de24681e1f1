package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iconidentify/scriptcast/internal/domain"
	"github.com/iconidentify/scriptcast/pkg/heygen"
)

// poller waits for a generation job to reach a terminal status,
// checking at a fixed interval up to a fixed attempt budget. Each
// failure mode maps to its own sentinel so callers and tests can tell
// a failed check, an unknown status, and an exhausted budget apart.
type poller struct {
	client   heygen.Client
	interval time.Duration
	attempts int
}

func newPoller(client heygen.Client, interval time.Duration, attempts int) *poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if attempts <= 0 {
		attempts = 150
	}
	return &poller{
		client:   client,
		interval: interval,
		attempts: attempts,
	}
}

// Await blocks until the job completes, fails, or the attempt budget
// runs out. Sleeping is done on a timer select so a long poll never
// stalls other sessions' runs, and cancellation is observed between
// checks. On success it returns the downloadable media URL.
func (p *poller) Await(ctx context.Context, videoID string) (string, error) {
	for attempt := 0; attempt < p.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.interval):
		}

		res, err := p.client.Check(ctx, videoID)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrStatusCheck, err)
		}

		switch {
		case res.Status == heygen.StatusCompleted:
			return res.VideoURL, nil
		case res.Status.Pending():
			// keep polling
		default:
			return "", fmt.Errorf("%w: %q", domain.ErrUnexpectedStatus, res.Status)
		}
	}

	return "", domain.ErrPollTimeout
}
