package middleware

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/signlingo/api/internal/models"
	"github.com/signlingo/api/internal/request"
)

// FixedWindowLimit is the per-endpoint cap for one scope.
type FixedWindowLimit struct {
	Scope       string
	MaxRequests int64
	Window      time.Duration
}

// LoginLimit and RegisterLimit are the defaults seeded when the database
// holds no config for those scopes.
var (
	LoginLimit    = FixedWindowLimit{Scope: models.RateLimitScopeLogin, MaxRequests: 50, Window: 15 * time.Minute}
	RegisterLimit = FixedWindowLimit{Scope: models.RateLimitScopeRegister, MaxRequests: 3, Window: 60 * time.Minute}
)

// FixedWindow counts requests per client IP in fixed windows aligned to the
// window size and rejects the request once the cap is reached. Counting is
// done in Redis so every server instance shares the same view. A Redis
// failure lets the request through; the limiter protects capacity, it is
// not an auth control.
func FixedWindow(redisLimiter *RedisRateLimiter, limit FixedWindowLimit, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			now := time.Now()
			windowStart := now.Truncate(limit.Window)
			key := fmt.Sprintf("ratelimit:%s:%s:%d", limit.Scope, request.ClientIP(r), windowStart.Unix())

			pipe := redisLimiter.client.Pipeline()
			incr := pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, limit.Window+time.Second)
			if _, err := pipe.Exec(ctx); err != nil {
				logger.Warn("rate_limit_backend_unavailable",
					zap.String("scope", limit.Scope),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			count := incr.Val()
			remaining := limit.MaxRequests - count
			if remaining < 0 {
				remaining = 0
			}
			reset := windowStart.Add(limit.Window)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))

			if count > limit.MaxRequests {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(time.Until(reset).Seconds())+1))
				respondError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
