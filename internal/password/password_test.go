package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"valid", "Valid1Pass", nil},
		{"no uppercase", "alllowercase1", ErrNoUppercase},
		{"no lowercase", "ALLUPPERCASE1", ErrNoLowercase},
		{"no digit", "NoDigitsHere", ErrNoDigit},
		{"short but valid classes", "Ab1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckLength(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"too short", "Ab1defg", ErrTooShort},
		{"min", "Ab1defgh", nil},
		{"max", strings.Repeat("a", 32), nil},
		{"too long", strings.Repeat("a", 33), ErrTooLong},
		{"multibyte within bounds", strings.Repeat("ж", 32), nil},
		{"multibyte over bcrypt limit", strings.Repeat("😀", 20), ErrTooManyBytes},
		{"too many characters wins over bytes", strings.Repeat("😀", 33), ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckLength(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hashed, err := h.Hash("Abcdef12")
	require.NoError(t, err)

	assert.NotEqual(t, "Abcdef12", hashed)
	assert.True(t, h.Verify("Abcdef12", hashed))
	assert.False(t, h.Verify("Abcdef13", hashed))
	assert.False(t, h.Verify("Abcdef12", "not-a-hash"))

	// salted: same input, different digest
	again, err := h.Hash("Abcdef12")
	require.NoError(t, err)
	assert.NotEqual(t, hashed, again)
	assert.True(t, h.Verify("Abcdef12", again))
}

func TestNewHasher_CostBounds(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(bcrypt.MaxCost+1).Cost())
	assert.Equal(t, 12, NewHasher(12).Cost())
}

func TestRandom(t *testing.T) {
	for i := 0; i < 20; i++ {
		raw := Random()
		assert.NoError(t, CheckLength(raw))
		assert.NoError(t, Validate(raw))
	}
	assert.NotEqual(t, Random(), Random())
}
