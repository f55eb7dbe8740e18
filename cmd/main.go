package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/gw-identity/internal/config"
	"github.com/sbilibin2017/gw-identity/internal/db"
	"github.com/sbilibin2017/gw-identity/internal/handlers"
	"github.com/sbilibin2017/gw-identity/internal/jwt"
	"github.com/sbilibin2017/gw-identity/internal/logger"
	"github.com/sbilibin2017/gw-identity/internal/middlewares"
	"github.com/sbilibin2017/gw-identity/internal/oauth"
	"github.com/sbilibin2017/gw-identity/internal/password"
	"github.com/sbilibin2017/gw-identity/internal/repositories"
	"github.com/sbilibin2017/gw-identity/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/sbilibin2017/gw-identity/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// googleProvider is the name Google is registered under.
const googleProvider = "google"

// @title gw-identity API
// @version 1.0.0
// @description User registration, password login and Google sign-in
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Version: %s, Commit: %s, Build: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// app holds what the router needs.
type app struct {
	cfg       *config.Settings
	db        *sqlx.DB
	sessions  *scs.SessionManager
	providers *oauth.Registry
	auth      *services.AuthService
	users     *services.UserService
	jwt       *jwt.JWT
}

// run initializes the logger, database, Redis, Kafka and OAuth providers,
// serves HTTP and shuts down gracefully when ctx ends or a signal arrives.
func run(ctx context.Context, cfg *config.Settings) error {
	if err := logger.Initialize(cfg.App.LogLevel, cfg.Core.Debug); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.App.LogLevel)

	// PostgreSQL
	dbs := db.NewRegistry()
	defer dbs.Close()

	pg, err := dbs.Get(ctx, cfg.Core.ProjectName, cfg.Postgres)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx, pg.DB); err != nil {
		return err
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection error: %w", err)
	}
	defer rdb.Close()

	// Kafka is optional
	var events services.KafkaWriter
	if len(cfg.Kafka.Brokers) > 0 {
		writer := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
			Topic:                  cfg.Kafka.Topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
		defer writer.Close()
		events = writer
		logger.Log.Infow("kafka publishing enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// OAuth providers
	states := repositories.NewOAuthStateRepository(rdb, cfg.OAuth.StateTTL)
	providers := oauth.NewRegistry(states, cfg.OAuth.Timeout)
	providers.Register(oauth.ProviderConfig{
		Name:         googleProvider,
		ClientID:     cfg.Auth.Google.ClientID,
		ClientSecret: cfg.Auth.Google.ClientSecret,
		DiscoveryURL: cfg.Auth.Google.DiscoveryURL,
		Scopes:       cfg.Auth.Google.Scopes,
	})

	// Sessions
	sessions := scs.New()
	sessions.Store = repositories.NewSessionRepository(rdb)
	sessions.Lifetime = cfg.Session.Lifetime
	sessions.Cookie.Name = cfg.Session.CookieName

	// JWT
	tokens := jwt.New(
		jwt.WithSecretKey(cfg.JWT.SecretKey),
		jwt.WithExpiration(cfg.JWT.Exp),
		jwt.WithIssuer(cfg.JWT.Issuer),
	)

	// Repositories
	userRepo := repositories.NewUserRepository(pg, middlewares.GetTxFromContext)
	identityRepo := repositories.NewExternalIdentityRepository(pg, middlewares.GetTxFromContext)

	// Services
	hasher := password.NewHasher(cfg.Hash.Cost)
	authService := services.NewAuthService(userRepo, identityRepo, hasher, tokens, events)
	userService := services.NewUserService(userRepo)

	srv := &http.Server{
		Addr: net.JoinHostPort(cfg.App.Host, cfg.App.Port),
		Handler: newRouter(app{
			cfg:       cfg,
			db:        pg,
			sessions:  sessions,
			providers: providers,
			auth:      authService,
			users:     userService,
			jwt:       tokens,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}

// newRouter mounts every route. Writes run inside a request transaction.
func newRouter(a app) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware)

	r.Get("/ping", handlers.NewPingHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	apiPrefix := a.cfg.Core.APIStr
	callbacks := handlers.CallbackBuilder{
		APIPrefix:  apiPrefix,
		PublicURL:  a.cfg.App.PublicURL,
		TrustProxy: a.cfg.App.TrustProxy,
	}

	r.Route(apiPrefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middlewares.TxMiddleware(a.db))
				r.Post("/register", handlers.NewRegisterHandler(a.auth))
				r.Post("/login", handlers.NewLoginHandler(a.auth))
			})

			// Sessions wrap the transaction so they are saved after it commits.
			r.Group(func(r chi.Router) {
				r.Use(a.sessions.LoadAndSave)
				r.Use(middlewares.TxMiddleware(a.db))
				r.Get("/login/{provider}", handlers.NewOAuthLoginHandler(a.providers, a.sessions, callbacks))
				r.Get("/auth/{provider}", handlers.NewOAuthCallbackHandler(a.providers, a.auth, a.sessions))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middlewares.TxMiddleware(a.db))
			r.Use(middlewares.AuthMiddleware(a.jwt))
			r.Get("/me", handlers.NewGetMeHandler(a.users, a.jwt))
			r.Get("/{id}", handlers.NewGetUserHandler(a.users, a.jwt))
			r.Patch("/{id}", handlers.NewUpdateUserHandler(a.users, a.jwt))
			r.Delete("/{id}", handlers.NewDeleteUserHandler(a.users, a.jwt))
		})
	})

	return r
}
