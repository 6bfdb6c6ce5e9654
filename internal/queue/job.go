package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeReminderEmail is a job for sending one inactivity reminder email
	JobTypeReminderEmail JobType = "reminder_email"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       JobType    `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	NotAfter   *time.Time `json:"not_after,omitempty"` // Latest time to process job (nil = no expiration)
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewReminderEmailJob creates a reminder email job for one user. The job
// expires after a day; a reminder delivered later than that is noise.
func NewReminderEmailJob(userID uuid.UUID, email, name string) *Job {
	notAfter := time.Now().Add(24 * time.Hour)
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeReminderEmail,
		UserID:     userID,
		Email:      email,
		Name:       name,
		NotAfter:   &notAfter,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
