package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims are the identity fields embedded in an issued token. Only the user
// id is authoritative; handlers re-read the row and never trust the other
// fields for data access.
type Claims struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Phone  string
}

// TokenService signs and verifies compact, time-limited identity
// assertions (HS256 JWTs).
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a token service. ttl applies to every issued
// token; the same lifetime is used for cookie and bearer transport.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token carrying the given claims, expiring after the
// configured lifetime.
func (s *TokenService) Issue(claims Claims) (string, error) {
	now := time.Now()
	builder := jwt.NewBuilder().
		Subject(claims.UserID.String()).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Claim("email", claims.Email).
		Claim("name", claims.Name)
	if claims.Phone != "" {
		builder = builder.Claim("phone", claims.Phone)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify checks signature and expiry and returns the embedded claims.
// Expired tokens yield ErrTokenExpired; every other failure, including
// unparseable input and bad signatures, yields ErrTokenInvalid.
func (s *TokenService) Verify(raw string) (*Claims, error) {
	token, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, s.secret), jwt.WithValidate(true))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(token.Subject())
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{UserID: userID}
	if v, ok := token.Get("email"); ok {
		if s, ok := v.(string); ok {
			claims.Email = s
		}
	}
	if v, ok := token.Get("name"); ok {
		if s, ok := v.(string); ok {
			claims.Name = s
		}
	}
	if v, ok := token.Get("phone"); ok {
		if s, ok := v.(string); ok {
			claims.Phone = s
		}
	}

	return claims, nil
}
