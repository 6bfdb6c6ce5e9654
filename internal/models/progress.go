package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ModuleProgress records when a learner last opened a lesson module.
type ModuleProgress struct {
	UserID       uuid.UUID `json:"user_id"`
	ModuleID     string    `json:"module_id"`
	LastOpenedAt time.Time `json:"last_opened_at"`
}

// VideoProgress records completion of a lesson video.
type VideoProgress struct {
	UserID      uuid.UUID `json:"user_id"`
	VideoID     string    `json:"video_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// QuizResult records a submitted quiz attempt. Answers are stored as raw
// JSON so the backend stays agnostic of the quiz format.
type QuizResult struct {
	ID          int64           `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	QuizID      string          `json:"quiz_id"`
	Score       *int            `json:"score,omitempty"`
	Answers     json.RawMessage `json:"answers,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}
