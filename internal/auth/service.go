package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/signlingo/api/internal/database"
	"github.com/signlingo/api/internal/models"
	"go.uber.org/zap"
)

// UserStore is the persistence surface the orchestrator needs. Implemented
// by database.UserRepository; tests substitute an in-memory store.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string, includeCredential bool) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email string, phone *string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// GoogleVerifier checks an externally-issued Google ID token against the
// asserted email. Optional; when absent the orchestrator trusts the identity
// the front end asserts.
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, idToken, email string) error
}

// Service is the request-level auth orchestrator. It combines the store,
// the hasher and the token service to perform register, login, profile and
// update flows and decides which taxonomy error a failure maps to.
type Service struct {
	store  UserStore
	hasher *PasswordHasher
	tokens *TokenService
	google GoogleVerifier
	log    *zap.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithGoogleVerifier enables server-side verification of Google ID tokens.
func WithGoogleVerifier(v GoogleVerifier) ServiceOption {
	return func(s *Service) { s.google = v }
}

// NewService creates the auth orchestrator.
func NewService(store UserStore, hasher *PasswordHasher, tokens *TokenService, log *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput carries a validated registration request. Shape validation
// (name length, email format, password policy) happens at the HTTP boundary;
// the service owns the business rules.
type RegisterInput struct {
	Name          string
	Email         string
	Phone         *string
	Password      string
	IsGoogleAuth  bool
	GoogleID      string
	GooglePicture string
}

// GoogleLoginInput carries a Google-path login request.
type GoogleLoginInput struct {
	Email    string
	GoogleID string
	IDToken  string
}

// Register creates an account and returns it with a freshly issued token.
// The email pre-check is a fast-path UX improvement only; the storage
// uniqueness constraint is what makes concurrent registration safe.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	if _, err := s.store.GetByEmail(ctx, in.Email, false); err == nil {
		return nil, "", ErrEmailExists
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, "", err
	}

	if in.Phone != nil && *in.Phone != "" {
		if _, err := s.store.GetByPhone(ctx, *in.Phone); err == nil {
			return nil, "", ErrPhoneExists
		} else if !errors.Is(err, database.ErrNotFound) {
			return nil, "", err
		}
	}

	// Google accounts get a digest of the subject id so password_hash is
	// never null. They are flagged is_google_auth and the password login
	// path rejects them, so the surrogate digest is not a usable
	// credential.
	secret := in.Password
	if in.IsGoogleAuth {
		secret = in.GoogleID
	}
	digest, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: digest,
		IsGoogleAuth: in.IsGoogleAuth,
	}
	if in.IsGoogleAuth {
		user.GoogleID = &in.GoogleID
		if in.GooglePicture != "" {
			user.ProfilePicture = &in.GooglePicture
		}
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, "", ErrEmailExists
		}
		return nil, "", err
	}

	token, err := s.issueFor(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// LoginPassword authenticates the password path. Unknown email, wrong
// password and Google-only accounts are indistinguishable to the caller.
func (s *Service) LoginPassword(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.GetByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	// Google-originated accounts cannot authenticate by password, even if
	// the subject-id surrogate digest were known.
	if user.IsGoogleAuth {
		return nil, "", ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	s.touchLastLogin(ctx, user.ID)

	token, err := s.issueFor(user)
	if err != nil {
		return nil, "", err
	}
	user.PasswordHash = ""
	return user, token, nil
}

// LoginGoogle authenticates the Google path. The account is matched by
// email, the durable natural key; a stored google_id that disagrees with
// the presented one is rejected to prevent identity confusion when an email
// is reused across providers.
func (s *Service) LoginGoogle(ctx context.Context, in GoogleLoginInput) (*models.User, string, error) {
	if s.google != nil && in.IDToken != "" {
		if err := s.google.VerifyIDToken(ctx, in.IDToken, in.Email); err != nil {
			s.log.Warn("google_id_token_rejected", zap.Error(err))
			return nil, "", ErrGoogleMismatch
		}
	}

	user, err := s.store.GetByEmail(ctx, in.Email, false)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, "", ErrNoGoogleAccount
		}
		return nil, "", err
	}

	if user.IsGoogleAuth && user.GoogleID != nil && *user.GoogleID != in.GoogleID {
		return nil, "", ErrGoogleMismatch
	}

	s.touchLastLogin(ctx, user.ID)

	token, err := s.issueFor(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Profile re-reads the account for the given id. Token claims identify the
// row; everything served comes from this fresh read.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes name/email/phone. When the email changes a fresh
// token is minted so the session cookie stops carrying stale claims; the
// returned token is empty otherwise.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string, phone *string) (*models.User, string, error) {
	current, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", err
	}

	emailChanged := !strings.EqualFold(current.Email, email)
	if emailChanged {
		if _, err := s.store.GetByEmail(ctx, email, false); err == nil {
			return nil, "", ErrEmailExists
		} else if !errors.Is(err, database.ErrNotFound) {
			return nil, "", err
		}
	}

	user, err := s.store.UpdateProfile(ctx, userID, name, email, phone)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return nil, "", ErrUserNotFound
		case errors.Is(err, database.ErrDuplicateEmail):
			return nil, "", ErrEmailExists
		default:
			return nil, "", err
		}
	}

	token := ""
	if emailChanged {
		if token, err = s.issueFor(user); err != nil {
			return nil, "", err
		}
	}
	return user, token, nil
}

func (s *Service) issueFor(user *models.User) (string, error) {
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}
	if user.Phone != nil {
		claims.Phone = *user.Phone
	}
	return s.tokens.Issue(claims)
}

// touchLastLogin stamps last_login without delaying or failing the login.
func (s *Service) touchLastLogin(ctx context.Context, id uuid.UUID) {
	go func(parent context.Context) {
		touchCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), 10*time.Second)
		defer cancel()
		if err := s.store.TouchLastLogin(touchCtx, id); err != nil {
			s.log.Warn("failed_to_touch_last_login",
				zap.String("user_id", id.String()),
				zap.Error(err),
			)
		}
	}(ctx)
}

