package manager

import (
	"context"
	"time"

	"file-drop-service/pkg/logger"
)

// Sweeper periodically reclaims expired files in the background
type Sweeper struct {
	lifecycle Lifecycle
	interval  time.Duration
	logger    *logger.Logger
}

// NewSweeper creates a sweeper that runs ReclaimExpired every interval
func NewSweeper(lifecycle Lifecycle, interval time.Duration) *Sweeper {
	return &Sweeper{
		lifecycle: lifecycle,
		interval:  interval,
		logger:    logger.NewWithComponent("sweeper"),
	}
}

// Run blocks, sweeping on every tick until ctx is canceled. Safe to run
// alongside concurrent ingests and retrievals: deletes are idempotent
// and the record store serializes writes.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoWithFields("Sweeper started", map[string]interface{}{
		"interval": s.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.lifecycle.ReclaimExpired(ctx, time.Now()); err != nil {
				s.logger.ErrorWithError("Scheduled sweep failed", err)
			}
		}
	}
}
