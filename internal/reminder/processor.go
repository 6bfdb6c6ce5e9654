package reminder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	logpkg "github.com/signlingo/api/internal/logger"
	"github.com/signlingo/api/internal/queue"
)

// MailSender delivers one reminder email.
type MailSender interface {
	SendHTML(to []string, subject, htmlBody, textBody string) error
}

// SentMarker stamps last_reminder_sent after a successful delivery.
type SentMarker interface {
	MarkReminderSent(ctx context.Context, userID uuid.UUID) error
}

// Processor consumes reminder jobs and sends the emails. Failed sends are
// retried up to the job's retry budget, then dead-lettered.
type Processor struct {
	jobs   queue.JobQueue
	mail   MailSender
	marker SentMarker
	appURL string
	logger *zap.Logger
}

// NewProcessor creates a reminder processor. appURL is the front-end link
// embedded in the email.
func NewProcessor(jobs queue.JobQueue, mail MailSender, marker SentMarker, appURL string, logger *zap.Logger) *Processor {
	return &Processor{
		jobs:   jobs,
		mail:   mail,
		marker: marker,
		appURL: appURL,
		logger: logger,
	}
}

// Run consumes jobs until the context is cancelled. Prefetch of one keeps
// dispatch fair when several workers share the queue.
func (p *Processor) Run(ctx context.Context) error {
	messages, errs, err := p.jobs.Consume(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case consumeErr, ok := <-errs:
			if !ok {
				return nil
			}
			p.logger.Error("reminder_consume_error", zap.String("error", logpkg.SanitizeError(consumeErr)))
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			p.handle(ctx, msg)
		}
	}
}

func (p *Processor) handle(ctx context.Context, msg queue.MessageInterface) {
	job := msg.GetJob()
	if job.Type != queue.JobTypeReminderEmail {
		p.logger.Warn("unexpected_job_type", zap.String("type", string(job.Type)))
		_ = msg.Nack(false)
		return
	}

	if err := p.send(job); err != nil {
		p.logger.Warn("reminder_send_failed",
			zap.String("user_id", job.UserID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		p.retry(ctx, msg, job)
		return
	}

	// Stamp before ack: re-sending on a crash between the stamp and the ack
	// is suppressed by the dispatcher query, a lost stamp would not be.
	if err := p.marker.MarkReminderSent(ctx, job.UserID); err != nil {
		p.logger.Error("reminder_mark_failed",
			zap.String("user_id", job.UserID.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}

	if err := msg.Ack(); err != nil {
		p.logger.Warn("reminder_ack_failed", zap.String("error", logpkg.SanitizeError(err)))
	}
}

func (p *Processor) send(job *queue.Job) error {
	html, text, err := renderReminderEmail(job.Name, p.appURL)
	if err != nil {
		return err
	}
	return p.mail.SendHTML([]string{job.Email}, reminderSubject, html, text)
}

// retry re-enqueues the job with a bumped retry count, or dead-letters it
// once the budget is spent. The original delivery is always acked or
// rejected so it never sits unacknowledged.
func (p *Processor) retry(ctx context.Context, msg queue.MessageInterface, job *queue.Job) {
	if !job.CanRetry() {
		p.logger.Error("reminder_retries_exhausted", zap.String("user_id", job.UserID.String()))
		_ = msg.Nack(false)
		return
	}

	job.IncrementRetry()
	if err := p.jobs.Enqueue(ctx, job); err != nil {
		p.logger.Error("reminder_requeue_failed",
			zap.String("user_id", job.UserID.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		// Fall back to the broker's requeue so the job is not lost.
		_ = msg.Nack(true)
		return
	}
	_ = msg.Ack()
}
