package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/signlingo/api/internal/database"
	"github.com/signlingo/api/internal/models"
	"github.com/signlingo/api/internal/request"
)

// Default global cap applied when the database holds no config yet.
const (
	DefaultGlobalMaxRequests int64 = 300
	DefaultGlobalWindow            = time.Minute
)

// RedisRateLimiter wraps the Redis client shared by the rate limiters.
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter connects to Redis and verifies the connection.
func NewRedisRateLimiter(redisURL string) (*RedisRateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRateLimiter{client: client}, nil
}

// Close closes the Redis connection.
func (r *RedisRateLimiter) Close() error {
	return r.client.Close()
}

// Ping checks if Redis is reachable.
func (r *RedisRateLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// RateLimitFromDB returns middleware that applies the global per-IP cap
// through ulule/limiter backed by Redis. The cap comes from the
// ratelimit_config row for the global scope; when none exists the given
// default is stored and used.
func RateLimitFromDB(redisLimiter *RedisRateLimiter, repo *database.RatelimitConfigRepository) (func(http.Handler) http.Handler, error) {
	ctx := context.Background()
	cfg, err := repo.GetOrDefault(ctx, models.RateLimitScopeGlobal, DefaultGlobalMaxRequests, DefaultGlobalWindow)
	if err != nil {
		return nil, err
	}

	rate := limiter.Rate{
		Period: cfg.Window(),
		Limit:  cfg.MaxRequests,
	}
	store, err := redisstore.NewStore(redisLimiter.client)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(store, rate)
	keyGetter := func(r *http.Request) string {
		return request.ClientIP(r)
	}
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(keyGetter))
	return mw.Handler, nil
}
