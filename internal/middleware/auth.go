package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signlingo/api/internal/auth"
	"github.com/signlingo/api/internal/database"
	"github.com/signlingo/api/internal/models"
	"github.com/signlingo/api/internal/request"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "token"

// UserGetter is the lookup the auth middleware needs to refresh the
// authenticated user on every request.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// extractToken pulls the session token from the request. The cookie wins;
// the Authorization header is the fallback for non-browser clients.
func extractToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Auth creates authentication middleware that validates session tokens.
// Token claims only identify the account; the user row is re-read so the
// handlers always see current data.
func Auth(tokens *auth.TokenService, users UserGetter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractToken(r)
			if raw == "" {
				respondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					respondError(w, http.StatusUnauthorized, "Session expired, please log in again")
					return
				}
				respondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := r.Context()
			user, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					respondError(w, http.StatusNotFound, "User not found")
					return
				}
				logger.Error("auth_user_lookup_failed",
					zap.String("user_id", claims.UserID.String()),
					zap.Error(err),
				)
				respondError(w, http.StatusInternalServerError, "Database error")
				return
			}

			ctx = request.WithClaims(ctx, claims)
			ctx = request.WithUser(ctx, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	_ = json.NewEncoder(w).Encode(response)
}
