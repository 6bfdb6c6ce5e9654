package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	logpkg "github.com/signlingo/api/internal/logger"
)

// ReminderRunner triggers one reminder dispatch sweep and reports how many
// reminder jobs were enqueued.
type ReminderRunner interface {
	RunNow(ctx context.Context) (int, error)
}

// ReminderHandler exposes the manual reminder trigger for operators
type ReminderHandler struct {
	runner      ReminderRunner
	adminSecret string
	logger      *zap.Logger
}

// NewReminderHandler creates a new reminder handler. With an empty
// adminSecret the trigger is disabled entirely.
func NewReminderHandler(runner ReminderRunner, adminSecret string, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{runner: runner, adminSecret: adminSecret, logger: logger}
}

// RunNow handles POST /api/reminders/run-now, guarded by X-Admin-Secret.
func (h *ReminderHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if h.adminSecret == "" {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Manual reminder trigger is disabled")
		return
	}

	provided := r.Header.Get("X-Admin-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.adminSecret)) != 1 {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Invalid admin secret")
		return
	}

	enqueued, err := h.runner.RunNow(r.Context())
	if err != nil {
		h.logger.Error("manual_reminder_run_failed", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Reminder run failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"enqueued": enqueued})
}
