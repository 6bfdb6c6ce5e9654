package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/signlingo/api/internal/models"
)

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   status < 400,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func respondErr(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   msg,
	})
}

// newTestServer mimics the auth surface well enough for client tests: login
// sets the cookie, profile requires it.
func newTestServer(t *testing.T) (*httptest.Server, *models.User) {
	t.Helper()
	user := &models.User{ID: uuid.New(), Name: "Asha", Email: "asha@example.com"}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "Sup3r$ecret" {
			respondErr(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "session-token", Path: "/"})
		respond(w, http.StatusOK, map[string]any{"user": user, "token": "session-token"})
	})
	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("token")
		if err != nil || c.Value != "session-token" {
			respondErr(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		respond(w, http.StatusOK, user)
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
		respond(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, user
}

func TestSessionLoad(t *testing.T) {
	t.Parallel()

	srv, want := newTestServer(t)
	s, err := NewSession(srv.URL)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	// Without a cookie the probe settles on unauthenticated, silently.
	user, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load without cookie returned error: %v", err)
	}
	if user != nil {
		t.Errorf("Load without cookie returned user %v, want nil", user)
	}
	if s.CurrentUser() != nil {
		t.Error("CurrentUser set after unauthenticated Load")
	}

	// Log in to fill the jar, drop the local state, then reload from the
	// cookie alone.
	if _, err := s.Login(ctx, "asha@example.com", "Sup3r$ecret"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	s.clearSession()
	if s.CurrentUser() != nil {
		t.Fatal("CurrentUser not cleared")
	}

	user, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load with cookie returned error: %v", err)
	}
	if user == nil || user.ID != want.ID {
		t.Errorf("Load returned %v, want user %s", user, want.ID)
	}
	if s.CurrentUser() == nil {
		t.Error("CurrentUser is nil after Load re-established the session")
	}
}

func TestSessionLoginAndProfile(t *testing.T) {
	t.Parallel()

	srv, want := newTestServer(t)
	s, err := NewSession(srv.URL)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	user, err := s.Login(ctx, "asha@example.com", "Sup3r$ecret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.ID != want.ID {
		t.Errorf("user id = %s, want %s", user.ID, want.ID)
	}
	if s.CurrentUser() == nil {
		t.Error("CurrentUser is nil after login")
	}

	// The jar carries the cookie; profile works without re-auth.
	got, err := s.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if got.Email != want.Email {
		t.Errorf("email = %q, want %q", got.Email, want.Email)
	}
}

func TestSessionLoginFailure(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	s, err := NewSession(srv.URL)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	_, err = s.Login(context.Background(), "asha@example.com", "wrong")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Login error = %v, want ErrUnauthenticated", err)
	}
	if s.CurrentUser() != nil {
		t.Error("CurrentUser set after a failed login")
	}
}

func TestSessionProfileWithoutLogin(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	s, err := NewSession(srv.URL)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	if _, err := s.Profile(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Profile error = %v, want ErrUnauthenticated", err)
	}
}

func TestSessionLogout(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	s, err := NewSession(srv.URL)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Login(ctx, "asha@example.com", "Sup3r$ecret"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if s.CurrentUser() != nil {
		t.Error("CurrentUser set after logout")
	}
}

func TestSessionInactivityExpiry(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	var expired atomic.Bool
	s, err := NewSession(srv.URL,
		WithInactivityLimit(50*time.Millisecond),
		WithExpiryHandler(func() { expired.Store(true) }),
	)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Login(ctx, "asha@example.com", "Sup3r$ecret"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !expired.Load() {
		if time.Now().After(deadline) {
			t.Fatal("expiry handler never fired")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if s.CurrentUser() != nil {
		t.Error("CurrentUser still set after expiry")
	}
	if _, err := s.Profile(ctx); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Profile error = %v, want ErrSessionExpired", err)
	}
}

func TestSessionTouchDefersExpiry(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	var expired atomic.Bool
	s, err := NewSession(srv.URL,
		WithInactivityLimit(120*time.Millisecond),
		WithExpiryHandler(func() { expired.Store(true) }),
	)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Login(ctx, "asha@example.com", "Sup3r$ecret"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	// Keep touching for longer than the limit; the session must survive.
	for i := 0; i < 5; i++ {
		time.Sleep(50 * time.Millisecond)
		s.Touch()
	}
	if expired.Load() {
		t.Error("session expired despite activity")
	}
	if s.CurrentUser() == nil {
		t.Error("CurrentUser lost despite activity")
	}
}
