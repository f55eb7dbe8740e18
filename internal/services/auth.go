package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-identity/internal/logger"
	"github.com/sbilibin2017/gw-identity/internal/models"
	"github.com/sbilibin2017/gw-identity/internal/oauth"
	"github.com/sbilibin2017/gw-identity/internal/password"
	"github.com/segmentio/kafka-go"
)

//go:generate mockgen -source=auth.go -destination=auth_mock.go -package=services

// Error variables
var (
	ErrUserDoesNotExist   = errors.New("username does not exist")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// localProvider tags events of password logins.
const localProvider = "local"

// UserStore persists users.
type UserStore interface {
	Find(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, data models.UserCreate) (*models.User, error)
	Update(ctx context.Context, entity models.User, data models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByUsernameOrEmail(ctx context.Context, username *string, email *string) (*models.User, error)
	SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// IdentityStore persists provider account links.
type IdentityStore interface {
	GetByProviderSubject(ctx context.Context, provider, subject string) (*models.ExternalIdentity, error)
	Create(ctx context.Context, identity models.ExternalIdentity) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(raw, hashed string) bool
}

// JWTGenerator defines an interface for generating JWT tokens.
type JWTGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID) (string, error)
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// AuthService handles registration and login, local and through OAuth providers.
type AuthService struct {
	users       UserStore
	identities  IdentityStore
	hasher      PasswordHasher
	jwt         JWTGenerator
	kafkaWriter KafkaWriter
}

// NewAuthService creates a new AuthService instance. kafkaWriter may be nil.
func NewAuthService(
	users UserStore,
	identities IdentityStore,
	hasher PasswordHasher,
	jwt JWTGenerator,
	kafkaWriter KafkaWriter,
) *AuthService {
	return &AuthService{
		users:       users,
		identities:  identities,
		hasher:      hasher,
		jwt:         jwt,
		kafkaWriter: kafkaWriter,
	}
}

// Register validates the input, hashes the password and stores a new user.
// Duplicates are reported by the store as *models.ConflictError.
func (svc *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	data, err := models.NewUserCreate(email, username, password, svc.hasher)
	if err != nil {
		logger.Log.Infow("registration rejected", "username", username, "err", err)
		return nil, err
	}

	user, err := svc.users.Create(ctx, *data)
	if err != nil {
		logger.Log.Errorw("failed to save user", "username", username, "err", err)
		return nil, err
	}

	svc.publishEvent(ctx, user.ID, models.EventUserRegistered, localProvider)
	return user, nil
}

// Login authenticates a user and returns a JWT token.
func (svc *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := svc.users.GetByUsernameOrEmail(ctx, &username, nil)
	if err != nil {
		logger.Log.Errorw("failed to get user", "err", err)
		return "", err
	}
	if user == nil {
		logger.Log.Errorw("user does not exist", "username", username)
		return "", ErrUserDoesNotExist
	}

	if !svc.hasher.Verify(password, user.HashedPassword) {
		logger.Log.Errorw("invalid credentials", "username", username)
		return "", ErrInvalidCredentials
	}

	return svc.issue(ctx, user, localProvider)
}

// LoginWithProvider resolves the local user behind a provider account and
// returns it with a fresh JWT token.
//
// Accounts are matched by (provider, subject). An unknown account gets a new
// user with an unusable random password, unless its email already belongs to
// a local user: that case is a conflict on "email" and nothing is linked.
func (svc *AuthService) LoginWithProvider(ctx context.Context, provider string, info oauth.UserInfo) (*models.User, string, error) {
	user, err := svc.resolveProviderUser(ctx, provider, info)
	if err != nil {
		return nil, "", err
	}

	token, err := svc.issue(ctx, user, provider)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (svc *AuthService) resolveProviderUser(ctx context.Context, provider string, info oauth.UserInfo) (*models.User, error) {
	link, err := svc.identities.GetByProviderSubject(ctx, provider, info.Subject)
	if err != nil {
		logger.Log.Errorw("failed to get external identity", "provider", provider, "err", err)
		return nil, err
	}

	if link != nil {
		user, err := svc.users.Find(ctx, link.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("linked user %s: %w", link.UserID, models.ErrNotFound)
		}
		return user, nil
	}

	email := models.NormalizeEmail(info.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", oauth.ErrExchange)
	}

	existing, err := svc.users.GetByUsernameOrEmail(ctx, nil, &email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Log.Warnw("provider email belongs to a local account", "provider", provider, "user_id", existing.ID)
		return nil, &models.ConflictError{Field: "email"}
	}

	data, err := models.NewUserCreate(email, providerUsername(email), password.Random(), svc.hasher)
	if err != nil {
		return nil, err
	}

	user, err := svc.users.Create(ctx, *data)
	if err != nil {
		logger.Log.Errorw("failed to create user for provider account", "provider", provider, "err", err)
		return nil, err
	}

	err = svc.identities.Create(ctx, models.ExternalIdentity{
		Provider:  provider,
		Subject:   info.Subject,
		UserID:    user.ID,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Log.Errorw("failed to link provider account", "provider", provider, "err", err)
		return nil, err
	}

	svc.publishEvent(ctx, user.ID, models.EventUserRegistered, provider)
	return user, nil
}

// issue records the login and signs a token for user.
func (svc *AuthService) issue(ctx context.Context, user *models.User, provider string) (string, error) {
	now := time.Now().UTC()
	if err := svc.users.SetLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.Errorw("failed to set last login", "user_id", user.ID, "err", err)
		return "", err
	}
	user.LastLogin = &now

	token, err := svc.jwt.Generate(ctx, user.ID)
	if err != nil {
		logger.Log.Errorw("failed to generate JWT", "err", err)
		return "", err
	}

	svc.publishEvent(ctx, user.ID, models.EventUserLogin, provider)
	return token, nil
}

// publishEvent publishes a user event to Kafka. Failures are only logged.
func (svc *AuthService) publishEvent(ctx context.Context, userID uuid.UUID, eventType, provider string) {
	if svc.kafkaWriter == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "type", eventType, "user_id", userID)
		return
	}

	event := models.UserEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().Unix(),
		UserID:    userID.String(),
		Type:      eventType,
		Provider:  provider,
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("Failed to marshal event for Kafka", "event_id", event.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: data,
	}

	if err := svc.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish event to Kafka", "event_id", event.EventID, "error", err)
	} else {
		logger.Log.Infow("Event published to Kafka", "event_id", event.EventID, "type", event.Type)
	}
}

// providerUsername derives a unique-enough username from the email local part.
func providerUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")

	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= 20 {
			break
		}
	}

	base := b.String()
	if base == "" {
		base = "user"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return base + "_" + suffix
}
