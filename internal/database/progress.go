package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ProgressRepository handles lesson-progress persistence.
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// OpenModule records that a learner opened a lesson module, updating the
// timestamp on repeat opens.
func (r *ProgressRepository) OpenModule(ctx context.Context, userID uuid.UUID, moduleID string) error {
	query := `
		INSERT INTO user_progress (user_id, module_id, last_opened_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, module_id)
		DO UPDATE SET last_opened_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, moduleID); err != nil {
		return fmt.Errorf("failed to record module open: %w", err)
	}
	return nil
}

// CompleteVideo marks a lesson video as completed.
func (r *ProgressRepository) CompleteVideo(ctx context.Context, userID uuid.UUID, videoID string) error {
	query := `
		INSERT INTO user_progress (user_id, video_id, completed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, video_id)
		DO UPDATE SET completed_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, videoID); err != nil {
		return fmt.Errorf("failed to record video completion: %w", err)
	}
	return nil
}

// SubmitQuiz stores a quiz attempt. Every attempt is kept; there is no
// upsert.
func (r *ProgressRepository) SubmitQuiz(ctx context.Context, userID uuid.UUID, quizID string, score *int, answers json.RawMessage) error {
	if answers == nil {
		answers = json.RawMessage("[]")
	}
	query := `
		INSERT INTO quiz_results (user_id, quiz_id, score, answers, submitted_at)
		VALUES ($1, $2, $3, $4, now())
	`
	if _, err := r.db.ExecContext(ctx, query, userID, quizID, score, []byte(answers)); err != nil {
		return fmt.Errorf("failed to record quiz submission: %w", err)
	}
	return nil
}
