package reminder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logpkg "github.com/signlingo/api/internal/logger"
	"github.com/signlingo/api/internal/models"
	"github.com/signlingo/api/internal/queue"
)

// DueReminderSource selects users whose inactivity has crossed the
// threshold and who have not been reminded since their last activity.
type DueReminderSource interface {
	DueReminders(ctx context.Context, inactiveDays, limit int) ([]*models.User, error)
}

// Dispatcher finds users due a reminder and enqueues one job per user. The
// worker sends the mail; the dispatcher never talks SMTP itself, so a slow
// relay cannot back up the sweep.
type Dispatcher struct {
	source       DueReminderSource
	jobs         queue.JobQueue
	inactiveDays int
	batchLimit   int
	logger       *zap.Logger
}

// NewDispatcher creates a reminder dispatcher.
func NewDispatcher(source DueReminderSource, jobs queue.JobQueue, inactiveDays, batchLimit int, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		source:       source,
		jobs:         jobs,
		inactiveDays: inactiveDays,
		batchLimit:   batchLimit,
		logger:       logger,
	}
}

// RunNow performs one sweep and returns how many jobs were enqueued. A
// failed enqueue skips the user; they stay due and the next sweep retries.
func (d *Dispatcher) RunNow(ctx context.Context) (int, error) {
	users, err := d.source.DueReminders(ctx, d.inactiveDays, d.batchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to select due reminders: %w", err)
	}

	enqueued := 0
	for _, user := range users {
		job := queue.NewReminderEmailJob(user.ID, user.Email, user.Name)
		if err := d.jobs.Enqueue(ctx, job); err != nil {
			d.logger.Warn("reminder_enqueue_failed",
				zap.String("user_id", user.ID.String()),
				zap.String("error", logpkg.SanitizeError(err)),
			)
			continue
		}
		enqueued++
	}

	d.logger.Info("reminder_sweep_complete",
		zap.Int("due", len(users)),
		zap.Int("enqueued", enqueued),
	)
	return enqueued, nil
}
