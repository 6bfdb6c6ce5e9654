package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

func newFixedWindowFixture(t *testing.T, limit FixedWindowLimit) (*miniredis.Miniredis, http.Handler) {
	t.Helper()

	mr := miniredis.RunT(t)
	limiter, err := NewRedisRateLimiter("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisRateLimiter returned error: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close() })

	handler := FixedWindow(limiter, limit, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	return mr, handler
}

func hitFrom(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestFixedWindowCapsPerClient(t *testing.T) {
	t.Parallel()

	limit := FixedWindowLimit{Scope: "login", MaxRequests: 3, Window: time.Minute}
	_, handler := newFixedWindowFixture(t, limit)

	for i := 1; i <= 3; i++ {
		w := hitFrom(handler, "10.0.0.1:1234")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}

	w := hitFrom(handler, "10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("over-cap status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 429")
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}

	// Another client shares nothing with the capped one.
	if w := hitFrom(handler, "10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}

func TestFixedWindowResetsAfterWindow(t *testing.T) {
	t.Parallel()

	limit := FixedWindowLimit{Scope: "register", MaxRequests: 1, Window: time.Second}
	_, handler := newFixedWindowFixture(t, limit)

	if w := hitFrom(handler, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}
	if w := hitFrom(handler, "10.0.0.1:1234"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w.Code)
	}

	// Crossing the window boundary starts a fresh counter.
	time.Sleep(limit.Window + 100*time.Millisecond)
	if w := hitFrom(handler, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Errorf("post-window status = %d, want 200", w.Code)
	}
}

func TestFixedWindowFailsOpen(t *testing.T) {
	t.Parallel()

	limit := FixedWindowLimit{Scope: "login", MaxRequests: 1, Window: time.Minute}
	mr, handler := newFixedWindowFixture(t, limit)

	mr.Close()

	// With the backend gone the request is let through.
	if w := hitFrom(handler, "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when the counter backend is down", w.Code)
	}
}
