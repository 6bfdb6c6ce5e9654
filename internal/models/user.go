package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a learner account. PasswordHash is never serialized;
// repositories only populate it when the caller explicitly asks for the
// credential projection.
type User struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            *string    `json:"phone,omitempty"`
	PasswordHash     string     `json:"-"`
	GoogleID         *string    `json:"-"`
	IsGoogleAuth     bool       `json:"is_google_auth"`
	ProfilePicture   *string    `json:"profile_picture,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
	LastActivity     *time.Time `json:"last_activity,omitempty"`
	LastReminderSent *time.Time `json:"-"`
}

// Profile is the caller-visible projection of a user account.
type Profile struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// Profile returns the public projection of the account.
func (u *User) Profile() Profile {
	return Profile{
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
	}
}
