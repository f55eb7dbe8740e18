package models_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-identity/internal/models"
	"github.com/sbilibin2017/gw-identity/internal/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type countingHasher struct {
	calls int
}

func (h *countingHasher) Hash(raw string) (string, error) {
	h.calls++
	return "hashed:" + raw, nil
}

func TestNewUserCreate(t *testing.T) {
	hasher := password.NewHasher(bcrypt.MinCost)

	create, err := models.NewUserCreate("a@b.com", "alice_1", "Abcdef12", hasher)
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", create.Email)
	assert.Equal(t, "alice_1", create.Username)
	assert.NotEqual(t, "Abcdef12", create.HashedPassword)
	assert.True(t, hasher.Verify("Abcdef12", create.HashedPassword))

	user := create.Entity()
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.False(t, user.DateJoined.IsZero())
	assert.Nil(t, user.LastLogin)
	assert.Equal(t, create.HashedPassword, user.HashedPassword)
}

func TestNewUserCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		username   string
		password   string
		wantFields []string
	}{
		{"bad email", "not-an-email", "alice_1", "Abcdef12", []string{"email"}},
		{"short username", "a@b.com", "ab", "Abcdef12", []string{"username"}},
		{"username pattern", "a@b.com", "al ice", "Abcdef12", []string{"username"}},
		{"password too short", "a@b.com", "alice_1", "Abc12", []string{"password"}},
		{"password no digit", "a@b.com", "alice_1", "NoDigitsHere", []string{"password"}},
		{"password no uppercase", "a@b.com", "alice_1", "alllowercase1", []string{"password"}},
		{"all bad", "not-an-email", "ab", "", []string{"email", "username", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasher := &countingHasher{}
			create, err := models.NewUserCreate(tt.email, tt.username, tt.password, hasher)
			assert.Nil(t, create)
			assert.ErrorIs(t, err, models.ErrValidation)

			var verrs models.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Len(t, verrs, len(tt.wantFields))
			for i, field := range tt.wantFields {
				assert.Equal(t, field, verrs[i].Field)
				assert.NotEmpty(t, verrs[i].Message)
			}

			// nothing reaches the hasher when validation fails
			assert.Equal(t, 0, hasher.calls)
		})
	}
}

func TestNewUserCreate_NormalizesEmailDomain(t *testing.T) {
	create, err := models.NewUserCreate(" Bob@Example.COM ", "bob_1", "Abcdef12", &countingHasher{})
	require.NoError(t, err)
	assert.Equal(t, "Bob@example.com", create.Email)
}

func TestUser_JSONHidesPassword(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "a@b.com", Username: "alice_1", HashedPassword: "secret-hash"}

	data, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "secret-hash")
	assert.NotContains(t, string(data), "hashed_password")
	assert.Contains(t, string(data), `"username":"alice_1"`)
}

func TestConflictError(t *testing.T) {
	var err error = &models.ConflictError{Field: "email"}
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, "email already exists", err.Error())
	assert.Equal(t, "already exists", (&models.ConflictError{}).Error())
}
