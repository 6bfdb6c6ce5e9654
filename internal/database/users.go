package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/signlingo/api/internal/models"
)

// UserRepository handles user account persistence.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, phone, google_id, is_google_auth, profile_picture,
		created_at, last_login, last_activity, last_reminder_sent`

func scanUser(row *sql.Row, u *models.User, includeCredential bool) error {
	if includeCredential {
		return row.Scan(
			&u.ID, &u.Name, &u.Email, &u.Phone, &u.GoogleID, &u.IsGoogleAuth,
			&u.ProfilePicture, &u.CreatedAt, &u.LastLogin, &u.LastActivity,
			&u.LastReminderSent, &u.PasswordHash,
		)
	}
	return row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.GoogleID, &u.IsGoogleAuth,
		&u.ProfilePicture, &u.CreatedAt, &u.LastLogin, &u.LastActivity,
		&u.LastReminderSent,
	)
}

// Create inserts a new account. The email is stored lower-cased; a
// unique-constraint violation is reported as ErrDuplicateEmail so concurrent
// registrations for the same address are race-safe.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(user.Email)

	query := `
		INSERT INTO users (id, name, email, phone, password_hash, google_id, is_google_auth, profile_picture, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.GoogleID,
		user.IsGoogleAuth,
		user.ProfilePicture,
	).Scan(&user.CreatedAt)

	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves an account by email, case-insensitively.
// includeCredential controls whether the password hash is projected; callers
// that only render profiles must leave it false.
func (r *UserRepository) GetByEmail(ctx context.Context, email string, includeCredential bool) (*models.User, error) {
	cols := userColumns
	if includeCredential {
		cols += ", password_hash"
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1)`, cols)

	user := &models.User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, email), user, includeCredential)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetByID retrieves an account by its id.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user := &models.User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, id), user, false)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByPhone retrieves an account by phone number. Used only as a
// registration pre-check; phone uniqueness has no storage constraint, so a
// concurrent-registration race is possible and accepted.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE phone = $1`, userColumns)

	user := &models.User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, phone), user, false)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return user, nil
}

// UpdateProfile updates the mutable profile fields of an account. Email
// conflicts surface as ErrDuplicateEmail, a missing row as ErrNotFound.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string, phone *string) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET name = $2, email = $3, phone = $4
		WHERE id = $1
		RETURNING %s`, userColumns)

	user := &models.User{}
	err := scanUser(r.db.QueryRowContext(ctx, query, id, name, strings.ToLower(email), phone), user, false)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// TouchLastLogin stamps last_login. Best effort: callers treat failures as
// non-fatal.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch last_login: %w", err)
	}
	return nil
}

// TouchLastActivity stamps last_activity, but only when the previous stamp
// is older than minInterval. The throttle bounds write volume under high
// request rates; the WHERE clause makes it a single atomic statement.
func (r *UserRepository) TouchLastActivity(ctx context.Context, id uuid.UUID, minInterval time.Duration) error {
	query := `
		UPDATE users SET last_activity = now()
		WHERE id = $1
		  AND (last_activity IS NULL OR last_activity <= now() - $2::bigint * INTERVAL '1 second')
	`
	_, err := r.db.ExecContext(ctx, query, id, int64(minInterval.Seconds()))
	if err != nil {
		return fmt.Errorf("failed to touch last_activity: %w", err)
	}
	return nil
}
