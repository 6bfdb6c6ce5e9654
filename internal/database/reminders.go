package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/signlingo/api/internal/models"
)

// ReminderRepository selects accounts due an inactivity reminder and stamps
// sends. Read by the reminder dispatcher; the auth core never touches
// last_reminder_sent.
type ReminderRepository struct {
	db *DB
}

// NewReminderRepository creates a new reminder repository.
func NewReminderRepository(db *DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// DueReminders returns up to limit accounts that have been inactive for at
// least inactiveDays and have not been reminded since their last activity.
// Accounts with no recorded activity at all sort first.
func (r *ReminderRepository) DueReminders(ctx context.Context, inactiveDays, limit int) ([]*models.User, error) {
	query := `
		SELECT id, name, email, last_activity, last_reminder_sent
		FROM users
		WHERE (
			last_activity IS NULL
			OR last_activity <= now() - ($1::int * INTERVAL '1 day')
		)
		AND (
			last_reminder_sent IS NULL
			OR (last_activity IS NOT NULL AND last_reminder_sent < last_activity)
		)
		ORDER BY last_activity NULLS FIRST, id
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, inactiveDays, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.LastActivity, &u.LastReminderSent); err != nil {
			return nil, fmt.Errorf("failed to scan due reminder: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due reminders: %w", err)
	}

	return users, nil
}

// MarkReminderSent stamps last_reminder_sent after a successful send.
func (r *ReminderRepository) MarkReminderSent(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_reminder_sent = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}
