package models

import "time"

// Rate limit scopes. Each scope has its own window and cap, stored in the
// ratelimit_config table and keyed per client IP at enforcement time.
const (
	RateLimitScopeGlobal   = "global"
	RateLimitScopeLogin    = "login"
	RateLimitScopeRegister = "register"
)

// RateLimit is a fixed-window cap for one scope.
type RateLimit struct {
	Scope         string    `json:"scope"`
	MaxRequests   int64     `json:"max_requests"`
	WindowSeconds int64     `json:"window_seconds"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Window returns the window length as a duration.
func (r *RateLimit) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}
