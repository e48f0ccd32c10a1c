package quota

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically evicts stale quota records so memory does not grow
// with every identity ever seen.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(tracker *Tracker, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{tracker: tracker, interval: interval, logger: logger}
}

// Run blocks until ctx is done. It never returns a non-nil error so it can
// share an errgroup with the HTTP server.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Quota sweeper stopping")
			return nil
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	removed, err := s.tracker.Sweep(ctx)
	if err != nil {
		s.logger.Warn("Quota sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("Quota records swept", zap.Int("removed", removed))
	}
}
