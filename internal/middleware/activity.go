package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signlingo/api/internal/request"
)

const (
	// activityMinInterval bounds how often a user's last_activity is
	// rewritten. Requests inside the interval skip the write entirely.
	activityMinInterval = 60 * time.Second

	activityTouchTimeout = 10 * time.Second
)

// ActivityToucher stamps last_activity, skipping the write when the stored
// value is newer than minInterval ago.
type ActivityToucher interface {
	TouchLastActivity(ctx context.Context, id uuid.UUID, minInterval time.Duration) error
}

// ActivityTracking records that the authenticated user was just seen. It
// runs after Auth; requests without a user pass through untouched. The
// write happens off the request path and a failure never fails the request.
func ActivityTracking(store ActivityToucher, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := request.UserFromContext(r); user != nil {
				go func(parent context.Context, id uuid.UUID) {
					touchCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), activityTouchTimeout)
					defer cancel()
					if err := store.TouchLastActivity(touchCtx, id, activityMinInterval); err != nil {
						logger.Warn("failed_to_touch_last_activity",
							zap.String("user_id", id.String()),
							zap.Error(err),
						)
					}
				}(r.Context(), user.ID)
			}

			next.ServeHTTP(w, r)
		})
	}
}
