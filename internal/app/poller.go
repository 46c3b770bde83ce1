package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/manavault/internal/logging"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// Refresher is what the poller drives.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// StartPoller launches a background goroutine that refreshes the storefront.
// After a failure the next attempt is delayed by calculateBackoff. It
// returns immediately.
func StartPoller(ctx context.Context, r Refresher, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	logger = logging.OrNop(logger)
	go func() {
		failures := 0
		for {
			wait := interval
			if failures > 0 {
				wait = calculateBackoff(failures, interval)
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if ctx.Err() != nil {
				return
			}

			if err := r.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("refresh failed", zap.Int("failures", failures), zap.Error(err))
				continue
			}
			failures = 0
		}
	}()
}

// calculateBackoff doubles base per consecutive failure, capped at
// maxBackoff. A base already above the cap is returned unchanged.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
