package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/signlingo/api/internal/models"
)

// RatelimitConfigRepository stores per-scope fixed-window caps. The server
// loads them at startup; the configure CLI updates them.
type RatelimitConfigRepository struct {
	db *DB
}

// NewRatelimitConfigRepository creates a new ratelimit config repository.
func NewRatelimitConfigRepository(db *DB) *RatelimitConfigRepository {
	return &RatelimitConfigRepository{db: db}
}

// Get retrieves the cap for one scope, or nil if none is stored.
func (r *RatelimitConfigRepository) Get(ctx context.Context, scope string) (*models.RateLimit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT scope, max_requests, window_seconds, created_at, updated_at
		FROM ratelimit_config WHERE scope = $1
	`, scope)
	c := &models.RateLimit{}
	err := row.Scan(&c.Scope, &c.MaxRequests, &c.WindowSeconds, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ratelimit config: %w", err)
	}
	return c, nil
}

// GetOrDefault retrieves the stored cap for scope, seeding and returning the
// given default when none exists yet.
func (r *RatelimitConfigRepository) GetOrDefault(ctx context.Context, scope string, maxRequests int64, window time.Duration) (*models.RateLimit, error) {
	c, err := r.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}
	c = &models.RateLimit{
		Scope:         scope,
		MaxRequests:   maxRequests,
		WindowSeconds: int64(window.Seconds()),
	}
	if err := r.Set(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Set upserts the cap for one scope.
func (r *RatelimitConfigRepository) Set(ctx context.Context, c *models.RateLimit) error {
	if c.Scope == "" {
		return fmt.Errorf("scope cannot be empty")
	}
	if c.MaxRequests <= 0 || c.WindowSeconds <= 0 {
		return fmt.Errorf("max_requests and window_seconds must be positive")
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratelimit_config (scope, max_requests, window_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scope) DO UPDATE SET
			max_requests = EXCLUDED.max_requests,
			window_seconds = EXCLUDED.window_seconds,
			updated_at = EXCLUDED.updated_at
	`, c.Scope, c.MaxRequests, c.WindowSeconds, now, now)
	if err != nil {
		return fmt.Errorf("set ratelimit config: %w", err)
	}
	return nil
}
