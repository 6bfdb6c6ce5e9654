// Package client is a Go client for the SignLingo API. It keeps the session
// cookie in a jar, mirrors the authenticated user, and expires the session
// locally after a period of inactivity the way the web front end does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/signlingo/api/internal/models"
)

// DefaultInactivityLimit is how long a session survives without API calls
// before the client expires it locally.
const DefaultInactivityLimit = 10 * time.Minute

var (
	// ErrUnauthenticated is returned when the server rejects the session or
	// no user is logged in.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSessionExpired is returned after the inactivity timer has fired.
	ErrSessionExpired = errors.New("session expired due to inactivity")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Session is a stateful API client. Safe for concurrent use.
type Session struct {
	base *url.URL
	http *http.Client

	mu       sync.Mutex
	user     *models.User
	expired  bool
	timer    *time.Timer
	limit    time.Duration
	onExpire func()
}

// Option customizes a Session.
type Option func(*Session)

// WithHTTPClient substitutes the underlying HTTP client. A cookie jar is
// attached if the client has none.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.http = c }
}

// WithInactivityLimit overrides the inactivity window.
func WithInactivityLimit(d time.Duration) Option {
	return func(s *Session) { s.limit = d }
}

// WithExpiryHandler registers a callback invoked when the inactivity timer
// expires the session. Called from the timer goroutine.
func WithExpiryHandler(fn func()) Option {
	return func(s *Session) { s.onExpire = fn }
}

// NewSession creates a client session against baseURL.
func NewSession(baseURL string, opts ...Option) (*Session, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	s := &Session{
		base:  base,
		limit: DefaultInactivityLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.http == nil {
		s.http = &http.Client{Timeout: 30 * time.Second}
	}
	if s.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		s.http.Jar = jar
	}

	return s, nil
}

// RegisterParams carries a registration request.
type RegisterParams struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          *string `json:"phone,omitempty"`
	Password       string  `json:"password,omitempty"`
	IsGoogleAuth   bool    `json:"is_google_auth,omitempty"`
	GoogleID       string  `json:"google_id,omitempty"`
	ProfilePicture string  `json:"profile_picture,omitempty"`
}

type sessionData struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates an account and starts a session.
func (s *Session) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	var data sessionData
	if err := s.do(ctx, http.MethodPost, "/api/auth/register", params, &data); err != nil {
		return nil, err
	}
	s.startSession(data.User)
	return data.User, nil
}

// Login authenticates with email and password.
func (s *Session) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]any{"email": email, "password": password}
	var data sessionData
	if err := s.do(ctx, http.MethodPost, "/api/auth/login", body, &data); err != nil {
		return nil, err
	}
	s.startSession(data.User)
	return data.User, nil
}

// LoginGoogle authenticates with a Google identity. idToken may be empty
// when the deployment does not verify tokens server side.
func (s *Session) LoginGoogle(ctx context.Context, email, googleID, idToken string) (*models.User, error) {
	body := map[string]any{
		"email":          email,
		"is_google_auth": true,
		"google_id":      googleID,
	}
	if idToken != "" {
		body["id_token"] = idToken
	}
	var data sessionData
	if err := s.do(ctx, http.MethodPost, "/api/auth/login", body, &data); err != nil {
		return nil, err
	}
	s.startSession(data.User)
	return data.User, nil
}

// Load probes the server for an existing session, as a page load does with
// whatever cookie the jar holds. A valid cookie installs the user and arms
// the inactivity timer; a 401 settles on unauthenticated without error.
func (s *Session) Load(ctx context.Context) (*models.User, error) {
	var user models.User
	err := s.do(ctx, http.MethodGet, "/api/auth/profile", nil, &user)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			s.clearSession()
			return nil, nil
		}
		return nil, err
	}
	s.startSession(&user)
	return &user, nil
}

// Profile fetches the current profile from the server.
func (s *Session) Profile(ctx context.Context) (*models.User, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	var user models.User
	if err := s.do(ctx, http.MethodGet, "/api/auth/profile", nil, &user); err != nil {
		return nil, err
	}
	s.setUser(&user)
	return &user, nil
}

// UpdateProfile changes name, email and phone. The server rotates the
// session cookie on an email change; the jar picks it up automatically.
func (s *Session) UpdateProfile(ctx context.Context, name, email string, phone *string) (*models.User, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	body := map[string]any{"name": name, "email": email}
	if phone != nil {
		body["phone"] = *phone
	}
	var user models.User
	if err := s.do(ctx, http.MethodPut, "/api/auth/profile", body, &user); err != nil {
		return nil, err
	}
	s.setUser(&user)
	return &user, nil
}

// Logout ends the session on the server and locally.
func (s *Session) Logout(ctx context.Context) error {
	err := s.do(ctx, http.MethodPost, "/api/auth/logout", struct{}{}, nil)
	s.clearSession()
	return err
}

// CurrentUser returns the locally cached user, or nil without a session.
func (s *Session) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Touch resets the inactivity timer, mirroring user interaction that does
// not hit the API.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetTimerLocked()
}

// startSession installs the user and arms the inactivity timer.
func (s *Session) startSession(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.expired = false
	s.resetTimerLocked()
}

func (s *Session) setUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.resetTimerLocked()
}

func (s *Session) clearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.expired = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) requireSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return ErrSessionExpired
	}
	if s.user == nil {
		return ErrUnauthenticated
	}
	return nil
}

// resetTimerLocked re-arms the inactivity timer. Callers hold s.mu.
func (s *Session) resetTimerLocked() {
	if s.user == nil || s.limit <= 0 {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.limit, s.expire)
}

// expire ends the session after inactivity. The server logout is best
// effort; the cookie expires on its own either way.
func (s *Session) expire() {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	s.user = nil
	s.expired = true
	s.timer = nil
	onExpire := s.onExpire
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.do(ctx, http.MethodPost, "/api/auth/logout", struct{}{}, nil)

	if onExpire != nil {
		onExpire()
	}
}

// envelope is the server's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// do issues one request and decodes the envelope. A 2xx refreshes the
// inactivity timer.
func (s *Session) do(ctx context.Context, method, path string, body, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	target := s.base.ResolveReference(ref)

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthenticated, env.Error)
		}
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	s.mu.Lock()
	s.resetTimerLocked()
	s.mu.Unlock()

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
