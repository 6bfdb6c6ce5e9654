package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

type fakeRunner struct {
	enqueued int
	err      error
	calls    int
}

func (f *fakeRunner) RunNow(context.Context) (int, error) {
	f.calls++
	return f.enqueued, f.err
}

func TestReminderRunNow(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{enqueued: 4}
	h := NewReminderHandler(runner, "s3cret", zap.NewNop())

	req := httptest.NewRequest("POST", "/api/reminders/run-now", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	w := httptest.NewRecorder()

	h.RunNow(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if runner.calls != 1 {
		t.Errorf("runner called %d times, want 1", runner.calls)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, _ := body["data"].(map[string]any)
	if data["enqueued"] != float64(4) {
		t.Errorf("enqueued = %v, want 4", data["enqueued"])
	}
}

func TestReminderRunNow_WrongSecret(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	h := NewReminderHandler(runner, "s3cret", zap.NewNop())

	req := httptest.NewRequest("POST", "/api/reminders/run-now", nil)
	req.Header.Set("X-Admin-Secret", "guess")
	w := httptest.NewRecorder()

	h.RunNow(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if runner.calls != 0 {
		t.Error("runner invoked despite a wrong secret")
	}
}

func TestReminderRunNow_Disabled(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	h := NewReminderHandler(runner, "", zap.NewNop())

	req := httptest.NewRequest("POST", "/api/reminders/run-now", nil)
	w := httptest.NewRecorder()

	h.RunNow(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestReminderRunNow_RunnerError(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: errors.New("queue unavailable")}
	h := NewReminderHandler(runner, "s3cret", zap.NewNop())

	req := httptest.NewRequest("POST", "/api/reminders/run-now", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	w := httptest.NewRecorder()

	h.RunNow(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
