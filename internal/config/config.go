// Package config loads the process-wide settings once at startup.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// GoogleDiscoveryURL is Google's OpenID Connect discovery document.
const GoogleDiscoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

// Settings contains every configuration section. It is read-only after Load.
type Settings struct {
	App      App      `envPrefix:"APP_"`
	Core     Core     `envPrefix:"CORE_"`
	Postgres Postgres `envPrefix:"POSTGRES_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`
	JWT      JWT      `envPrefix:"JWT_"`
	Session  Session  `envPrefix:"SESSION_"`
	OAuth    OAuth    `envPrefix:"OAUTH_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Hash     Hash     `envPrefix:"HASH_"`
}

// App contains HTTP server parameters. PublicURL is the externally visible
// base URL used for OAuth callbacks; forwarded headers are honoured only
// with TrustProxy.
type App struct {
	Host       string `env:"HOST" envDefault:"localhost"`
	Port       string `env:"PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	PublicURL  string `env:"PUBLIC_URL"`
	TrustProxy bool   `env:"TRUST_PROXY" envDefault:"false"`
}

// Core contains application-wide parameters.
type Core struct {
	ProjectName string `env:"PROJECT_NAME,required,notEmpty"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	SecretKey   string `env:"SECRET_KEY"`
	APIStr      string `env:"API_STR" envDefault:"/api/v1"`
}

// Postgres contains database connection parameters. URI is assembled from
// the other fields unless set explicitly.
type Postgres struct {
	Driver       string `env:"DRIVER" envDefault:"pgx"`
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"5432"`
	User         string `env:"USER" envDefault:"user"`
	Password     string `env:"PASSWORD" envDefault:"password"`
	DB           string `env:"DB" envDefault:"database"`
	SSLMode      string `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"8"`
	URI          string `env:"URI"`
}

// Redis contains cache connection parameters.
type Redis struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"6379"`
	DB           int    `env:"DB" envDefault:"0"`
	Password     string `env:"PASSWORD"`
	PoolSize     int    `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int    `env:"MIN_IDLE_CONNS" envDefault:"2"`
}

// Addr returns host:port.
func (r Redis) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Kafka contains event publishing parameters. Publishing is disabled when
// no brokers are configured.
type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"users"`
}

// JWT contains access token parameters.
type JWT struct {
	SecretKey string        `env:"SECRET_KEY"`
	Exp       time.Duration `env:"EXP" envDefault:"1h"`
	Issuer    string        `env:"ISSUER" envDefault:"gw-identity"`
}

// Session contains browser session parameters.
type Session struct {
	Lifetime   time.Duration `env:"LIFETIME" envDefault:"24h"`
	CookieName string        `env:"COOKIE_NAME" envDefault:"session"`
}

// OAuth contains parameters shared by every provider.
type OAuth struct {
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
	StateTTL time.Duration `env:"STATE_TTL" envDefault:"10m"`
}

// Auth contains per-provider OAuth credentials.
type Auth struct {
	Google Provider `envPrefix:"GOOGLE_"`
}

// Provider contains the credentials of a single OAuth provider.
type Provider struct {
	ClientID     string   `env:"CLIENT_ID,required,notEmpty"`
	ClientSecret string   `env:"CLIENT_SECRET,required,notEmpty"`
	DiscoveryURL string   `env:"DISCOVERY_URL" envDefault:"https://accounts.google.com/.well-known/openid-configuration"`
	Scopes       []string `env:"SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
}

// Hash contains password hashing parameters.
type Hash struct {
	Cost int `env:"COST" envDefault:"10"`
}

// Load reads an optional env file and parses the environment into Settings.
func Load(path string) (*Settings, error) {
	_ = godotenv.Load(path)

	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if s.Core.SecretKey == "" {
		key, err := randomKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secret key: %w", err)
		}
		s.Core.SecretKey = key
	}
	if s.JWT.SecretKey == "" {
		s.JWT.SecretKey = s.Core.SecretKey
	}
	if s.Postgres.URI == "" {
		s.Postgres.URI = s.Postgres.assembleURI()
	}

	return &s, nil
}

func (p Postgres) assembleURI() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DB,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

func randomKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
