package password

import (
	"crypto/rand"
	"errors"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Length bounds for a raw password, counted in characters.
const (
	MinLength = 8
	MaxLength = 32
)

// bcrypt ignores everything past this many bytes.
const maxBytes = 72

// Error variables
var (
	ErrTooShort     = errors.New("password must be at least 8 characters long")
	ErrTooLong      = errors.New("password must be at most 32 characters long")
	ErrTooManyBytes = errors.New("password must be at most 72 bytes long")
	ErrNoUppercase  = errors.New("password must have at least one uppercase letter")
	ErrNoLowercase  = errors.New("password must have at least one lowercase letter")
	ErrNoDigit      = errors.New("password must have at least one digit")
)

// CheckLength validates the length bound of a raw password.
func CheckLength(raw string) error {
	n := utf8.RuneCountInString(raw)
	if n < MinLength {
		return ErrTooShort
	}
	if n > MaxLength {
		return ErrTooLong
	}
	if len(raw) > maxBytes {
		return ErrTooManyBytes
	}
	return nil
}

// Validate checks the character-class policy: at least one uppercase letter,
// one lowercase letter and one digit. Length is checked by CheckLength.
func Validate(raw string) error {
	var upper, lower, digit bool
	for _, r := range raw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	if !upper {
		return ErrNoUppercase
	}
	if !lower {
		return ErrNoLowercase
	}
	if !digit {
		return ErrNoDigit
	}
	return nil
}

// Hasher turns raw passwords into bcrypt hashes and verifies them.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt work factor.
// Values outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt hash of raw.
func (h *Hasher) Hash(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether raw matches the stored hash.
func (h *Hasher) Verify(raw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}

// Random generates a password that satisfies the policy. It is used for
// accounts created through an external provider, which never log in locally.
func Random() string {
	// rand.Text yields 26 base32 characters.
	return "Aa1" + rand.Text()
}
