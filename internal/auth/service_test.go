package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signlingo/api/internal/database"
	"github.com/signlingo/api/internal/models"
)

// memStore is an in-memory UserStore for orchestrator tests.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User

	lastLoginTouches int
}

func newMemStore() *memStore {
	return &memStore{users: map[uuid.UUID]*models.User{}}
}

func (m *memStore) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return database.ErrDuplicateEmail
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memStore) GetByEmail(_ context.Context, email string, includeCredential bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			if !includeCredential {
				clone.PasswordHash = ""
			}
			return &clone, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone, nil
}

func (m *memStore) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Phone != nil && *u.Phone == phone {
			clone := *u
			clone.PasswordHash = ""
			return &clone, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) UpdateProfile(_ context.Context, id uuid.UUID, name, email string, phone *string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	for otherID, other := range m.users {
		if otherID != id && strings.EqualFold(other.Email, email) {
			return nil, database.ErrDuplicateEmail
		}
	}
	u.Name = name
	u.Email = email
	u.Phone = phone
	clone := *u
	clone.PasswordHash = ""
	return &clone, nil
}

func (m *memStore) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		now := time.Now()
		u.LastLogin = &now
	}
	m.lastLoginTouches++
	return nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewService(
		store,
		NewPasswordHasher(),
		NewTokenService("test-secret-at-least-32-bytes-long", time.Hour),
		zap.NewNop(),
	)
	return svc, store
}

func TestRegisterPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	phone := "+919876543210"
	user, token, err := svc.Register(ctx, RegisterInput{
		Name:     "Asha Verma",
		Email:    "Asha@Example.com",
		Phone:    &phone,
		Password: "Sup3r$ecret",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if token == "" {
		t.Error("Register returned an empty token")
	}
	if user.ID == uuid.Nil {
		t.Error("Register left the user id unset")
	}
	if user.IsGoogleAuth {
		t.Error("password registration flagged as google auth")
	}

	claims, err := svc.tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token subject = %s, want %s", claims.UserID, user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	in := RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "Sup3r$ecret"}
	if _, _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	// Same address with different case must still collide.
	in.Email = "ASHA@example.com"
	if _, _, err := svc.Register(ctx, in); !errors.Is(err, ErrEmailExists) {
		t.Errorf("second Register error = %v, want ErrEmailExists", err)
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	phone := "+919876543210"
	first := RegisterInput{Name: "Asha", Email: "asha@example.com", Phone: &phone, Password: "Sup3r$ecret"}
	if _, _, err := svc.Register(ctx, first); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	second := RegisterInput{Name: "Ravi", Email: "ravi@example.com", Phone: &phone, Password: "Sup3r$ecret"}
	if _, _, err := svc.Register(ctx, second); !errors.Is(err, ErrPhoneExists) {
		t.Errorf("second Register error = %v, want ErrPhoneExists", err)
	}
}

func TestRegisterGoogle(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, RegisterInput{
		Name:          "Asha Verma",
		Email:         "asha@example.com",
		IsGoogleAuth:  true,
		GoogleID:      "google-subject-123",
		GooglePicture: "https://lh3.example.com/p.jpg",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if token == "" {
		t.Error("Register returned an empty token")
	}
	if !user.IsGoogleAuth {
		t.Error("google registration not flagged is_google_auth")
	}
	if user.GoogleID == nil || *user.GoogleID != "google-subject-123" {
		t.Error("google subject id not stored")
	}
	if user.ProfilePicture == nil {
		t.Error("profile picture not stored")
	}

	stored, err := store.GetByEmail(ctx, "asha@example.com", true)
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if stored.PasswordHash == "" {
		t.Error("google account stored without a surrogate digest")
	}
}

func TestLoginPassword(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "Sup3r$ecret"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	user, token, err := svc.LoginPassword(ctx, "asha@example.com", "Sup3r$ecret")
	if err != nil {
		t.Fatalf("LoginPassword returned error: %v", err)
	}
	if token == "" {
		t.Error("LoginPassword returned an empty token")
	}
	if user.PasswordHash != "" {
		t.Error("LoginPassword leaked the password digest")
	}

	// last_login is stamped off the request path.
	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		touched := store.lastLoginTouches
		store.mu.Unlock()
		if touched > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("last_login was never touched")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLoginPasswordFailures(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "Sup3r$ecret"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, _, err := svc.Register(ctx, RegisterInput{
		Name: "Ravi", Email: "ravi@example.com",
		IsGoogleAuth: true, GoogleID: "google-subject-9",
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "Sup3r$ecret"},
		{"wrong password", "asha@example.com", "Wr0ng$ecret"},
		{"google-only account", "ravi@example.com", "google-subject-9"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := svc.LoginPassword(ctx, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("LoginPassword error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

type rejectingVerifier struct{ err error }

func (v rejectingVerifier) VerifyIDToken(context.Context, string, string) error { return v.err }

func TestLoginGoogle(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{
		Name: "Asha", Email: "asha@example.com",
		IsGoogleAuth: true, GoogleID: "google-subject-123",
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	user, token, err := svc.LoginGoogle(ctx, GoogleLoginInput{
		Email:    "asha@example.com",
		GoogleID: "google-subject-123",
	})
	if err != nil {
		t.Fatalf("LoginGoogle returned error: %v", err)
	}
	if token == "" {
		t.Error("LoginGoogle returned an empty token")
	}
	if user.Email != "asha@example.com" {
		t.Errorf("Email = %q, want asha@example.com", user.Email)
	}
}

func TestLoginGoogleUnregistered(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, _, err := svc.LoginGoogle(context.Background(), GoogleLoginInput{
		Email:    "nobody@example.com",
		GoogleID: "google-subject-123",
	})
	if !errors.Is(err, ErrNoGoogleAccount) {
		t.Errorf("LoginGoogle error = %v, want ErrNoGoogleAccount", err)
	}
}

func TestLoginGoogleSubjectMismatch(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{
		Name: "Asha", Email: "asha@example.com",
		IsGoogleAuth: true, GoogleID: "google-subject-123",
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, _, err := svc.LoginGoogle(ctx, GoogleLoginInput{
		Email:    "asha@example.com",
		GoogleID: "a-different-subject",
	})
	if !errors.Is(err, ErrGoogleMismatch) {
		t.Errorf("LoginGoogle error = %v, want ErrGoogleMismatch", err)
	}
}

func TestLoginGoogleRejectedIDToken(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := NewService(
		store,
		NewPasswordHasher(),
		NewTokenService("test-secret-at-least-32-bytes-long", time.Hour),
		zap.NewNop(),
		WithGoogleVerifier(rejectingVerifier{err: errors.New("bad audience")}),
	)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{
		Name: "Asha", Email: "asha@example.com",
		IsGoogleAuth: true, GoogleID: "google-subject-123",
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, _, err := svc.LoginGoogle(ctx, GoogleLoginInput{
		Email:    "asha@example.com",
		GoogleID: "google-subject-123",
		IDToken:  "some-id-token",
	})
	if !errors.Is(err, ErrGoogleMismatch) {
		t.Errorf("LoginGoogle error = %v, want ErrGoogleMismatch", err)
	}
}

func TestProfile(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	created, _, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "Sup3r$ecret"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	user, err := svc.Profile(ctx, created.ID)
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if user.Email != "asha@example.com" {
		t.Errorf("Email = %q, want asha@example.com", user.Email)
	}
	if user.PasswordHash != "" {
		t.Error("Profile leaked the password digest")
	}

	if _, err := svc.Profile(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Profile error for unknown id = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	created, _, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "Sup3r$ecret"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	// Name-only change keeps the session token as-is.
	user, token, err := svc.UpdateProfile(ctx, created.ID, "Asha V", "asha@example.com", nil)
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if token != "" {
		t.Error("UpdateProfile minted a token without an email change")
	}
	if user.Name != "Asha V" {
		t.Errorf("Name = %q, want %q", user.Name, "Asha V")
	}

	// Email case change alone is not an email change.
	if _, token, err = svc.UpdateProfile(ctx, created.ID, "Asha V", "ASHA@example.com", nil); err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if token != "" {
		t.Error("UpdateProfile minted a token for a case-only email change")
	}

	// A real email change mints a fresh token carrying the new address.
	phone := "+919876543210"
	user, token, err = svc.UpdateProfile(ctx, created.ID, "Asha V", "asha.v@example.com", &phone)
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if token == "" {
		t.Fatal("UpdateProfile did not mint a token for an email change")
	}
	claims, err := svc.tokens.Verify(token)
	if err != nil {
		t.Fatalf("minted token failed verification: %v", err)
	}
	if claims.Email != "asha.v@example.com" {
		t.Errorf("token email = %q, want asha.v@example.com", claims.Email)
	}
	if user.Phone == nil || *user.Phone != phone {
		t.Error("phone update not applied")
	}
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	first, _, err := svc.Register(ctx, RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "Sup3r$ecret"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, _, err := svc.Register(ctx, RegisterInput{Name: "Ravi", Email: "ravi@example.com", Password: "Sup3r$ecret"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, _, err = svc.UpdateProfile(ctx, first.ID, "Asha", "ravi@example.com", nil)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("UpdateProfile error = %v, want ErrEmailExists", err)
	}
}
