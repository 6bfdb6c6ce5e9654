package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	logpkg "github.com/signlingo/api/internal/logger"
)

// Scheduler runs the dispatcher on a fixed interval. One sweep runs
// immediately at start so a freshly deployed server does not wait a full
// interval before catching up.
type Scheduler struct {
	dispatcher *Dispatcher
	interval   time.Duration
	logger     *zap.Logger
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(dispatcher *Dispatcher, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
	}
}

// Start blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if _, err := s.dispatcher.RunNow(ctx); err != nil {
		s.logger.Error("reminder_sweep_failed", zap.String("error", logpkg.SanitizeError(err)))
	}
}
