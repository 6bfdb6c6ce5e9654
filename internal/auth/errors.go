package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// password attempts against Google-only accounts. One error for all
	// three so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists is returned when registering an email that is taken.
	ErrEmailExists = errors.New("user already exists with this email")
	// ErrPhoneExists is returned when registering a phone that is taken.
	ErrPhoneExists = errors.New("user already exists with this phone")
	// ErrNoGoogleAccount asks the caller to register before Google login.
	ErrNoGoogleAccount = errors.New("no account found with this Google email, please register first")
	// ErrGoogleMismatch guards against an email reused across Google
	// identities.
	ErrGoogleMismatch = errors.New("Google account mismatch")
	// ErrUserNotFound is returned when a token references a row that no
	// longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrTokenExpired and ErrTokenInvalid classify verification failures.
	// Any parse failure that is not an expiry collapses to ErrTokenInvalid.
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)
