package models

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// UsernameMinLength is the shortest accepted username.
const UsernameMinLength = 3

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

var (
	ErrInvalidEmail     = errors.New("value is not a valid email address")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters long")
	ErrInvalidUsername  = errors.New("username may only contain letters, digits and underscores")
	ErrRequired         = errors.New("field required")
	ErrNull             = errors.New("field may not be null")
)

// ValidateEmail checks email syntax.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrRequired
	}
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateUsername checks the username length and pattern.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrRequired
	}
	if utf8.RuneCountInString(username) < UsernameMinLength {
		return ErrUsernameTooShort
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// NormalizeEmail trims surrounding space and lowercases the domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
