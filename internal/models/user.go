package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-identity/internal/password"
)

// User represents a user record in the database
// swagger:model User
type User struct {
	ID             uuid.UUID  `json:"id" db:"id"`                           // Primary key, immutable
	Email          string     `json:"email" db:"email"`                     // Unique email
	Username       string     `json:"username" db:"username"`               // Unique username
	HashedPassword string     `json:"-" db:"hashed_password"`               // bcrypt hash, never serialized
	IsAdmin        bool       `json:"is_admin" db:"is_admin"`               // Admin flag
	IsActive       bool       `json:"is_active" db:"is_active"`             // Active flag
	DateJoined     time.Time  `json:"date_joined" db:"date_joined"`         // Creation timestamp
	LastLogin      *time.Time `json:"last_login,omitempty" db:"last_login"` // Last successful login
}

// Hasher hashes a validated raw password.
type Hasher interface {
	Hash(raw string) (string, error)
}

// UserCreate is the validated input for creating a user. The raw password
// is never kept: only its hash survives construction.
type UserCreate struct {
	Email          string
	Username       string
	HashedPassword string
}

// NewUserCreate validates the input in order (email, username, password
// length, password policy) and hashes the password once everything passed.
// Validation failures are returned as ValidationErrors.
func NewUserCreate(email, username, raw string, hasher Hasher) (*UserCreate, error) {
	email = NormalizeEmail(email)

	var errs ValidationErrors
	if err := ValidateEmail(email); err != nil {
		errs.add("email", err)
	}
	if err := ValidateUsername(username); err != nil {
		errs.add("username", err)
	}
	if raw == "" {
		errs.add("password", ErrRequired)
	} else if err := password.CheckLength(raw); err != nil {
		errs.add("password", err)
	} else if err := password.Validate(raw); err != nil {
		errs.add("password", err)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	hashed, err := hasher.Hash(raw)
	if err != nil {
		return nil, err
	}

	return &UserCreate{
		Email:          email,
		Username:       username,
		HashedPassword: hashed,
	}, nil
}

// Entity builds a new User with a fresh id and join date.
func (c UserCreate) Entity() User {
	return User{
		ID:             uuid.New(),
		Email:          c.Email,
		Username:       c.Username,
		HashedPassword: c.HashedPassword,
		DateJoined:     time.Now().UTC(),
	}
}
