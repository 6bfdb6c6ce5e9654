package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/signlingo/api/internal/database"
	logpkg "github.com/signlingo/api/internal/logger"
	"github.com/signlingo/api/internal/request"
	"github.com/signlingo/api/internal/validation"
)

// ProgressHandler records lesson progress events
type ProgressHandler struct {
	progressRepo *database.ProgressRepository
	logger       *zap.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressRepo *database.ProgressRepository, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{progressRepo: progressRepo, logger: logger}
}

// RegisterRoutes registers content progress routes on the given router.
// The router should already carry the /content prefix and the auth chain.
func (h *ProgressHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/modules/{id}/open", h.OpenModule).Methods("POST")
	r.HandleFunc("/videos/{id}/complete", h.CompleteVideo).Methods("POST")
	r.HandleFunc("/quizzes/{id}/submit", h.SubmitQuiz).Methods("POST")
}

// SubmitQuizRequest represents a quiz submission
type SubmitQuizRequest struct {
	Score   *int            `json:"score,omitempty" validate:"omitempty,min=0,max=100"`
	Answers json.RawMessage `json:"answers,omitempty"`
}

// OpenModule handles POST /api/content/modules/{id}/open
func (h *ProgressHandler) OpenModule(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	moduleID := mux.Vars(r)["id"]
	if moduleID == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "module id is required")
		return
	}

	if err := h.progressRepo.OpenModule(r.Context(), user.ID, moduleID); err != nil {
		h.logger.Error("open_module_failed",
			zap.String("user_id", user.ID.String()),
			zap.String("module_id", moduleID),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record progress")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"module_id": moduleID, "status": "opened"})
}

// CompleteVideo handles POST /api/content/videos/{id}/complete
func (h *ProgressHandler) CompleteVideo(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	videoID := mux.Vars(r)["id"]
	if videoID == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "video id is required")
		return
	}

	if err := h.progressRepo.CompleteVideo(r.Context(), user.ID, videoID); err != nil {
		h.logger.Error("complete_video_failed",
			zap.String("user_id", user.ID.String()),
			zap.String("video_id", videoID),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record progress")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"video_id": videoID, "status": "completed"})
}

// SubmitQuiz handles POST /api/content/quizzes/{id}/submit
func (h *ProgressHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	quizID := mux.Vars(r)["id"]
	if quizID == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "quiz id is required")
		return
	}

	var req SubmitQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	if err := h.progressRepo.SubmitQuiz(r.Context(), user.ID, quizID, req.Score, req.Answers); err != nil {
		h.logger.Error("submit_quiz_failed",
			zap.String("user_id", user.ID.String()),
			zap.String("quiz_id", quizID),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record quiz result")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"quiz_id": quizID, "status": "submitted"})
}
