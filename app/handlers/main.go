package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	cfgPkg "github.com/avelier/doorkeeper/app/config"
	"github.com/avelier/doorkeeper/app/dto"
	appErrors "github.com/avelier/doorkeeper/app/errors"
	"github.com/avelier/doorkeeper/app/logger"
	"github.com/avelier/doorkeeper/app/metrics"
	authmw "github.com/avelier/doorkeeper/app/middleware"
	"github.com/avelier/doorkeeper/app/services"
	"github.com/avelier/doorkeeper/app/store"
)

// authenticator is the slice of services.AuthService the HTTP surface
// depends on; tests substitute a mock.
type authenticator interface {
	SignUp(ctx context.Context, req dto.SignUpRequest) (*dto.AuthResponse, *appErrors.AppError)
	SignIn(ctx context.Context, req dto.SignInRequest) (*dto.AuthResponse, *appErrors.AppError)
	SignOut(ctx context.Context, token string) (*dto.MessageResponse, *appErrors.AppError)
	ValidateToken(ctx context.Context, rawToken string) (*dto.UserResponse, *appErrors.AppError)
	GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, *appErrors.AppError)
	UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*dto.ProfileResponse, *appErrors.AppError)
	CleanupExpiredSessions(ctx context.Context) (int, *appErrors.AppError)
}

type application struct {
	config      appConfig
	authService authenticator
	redisClient *redis.Client
	db          interface {
		PingContext(ctx context.Context) error
		Close() error
	}
	rabbitConn interface {
		IsClosed() bool
		Close() error
	}
	rabbitCh interface {
		IsClosed() bool
		Close() error
	}
}

type appConfig struct {
	addr          string
	storeBackend  string
	sweepInterval time.Duration
}

func main() {
	// Initialize structured logging
	logger.Init()

	// Load .env file (if it exists)
	cfgPkg.Load()

	cfg := appConfig{
		addr:          cfgPkg.GetString("ADDR", ":8080"),
		storeBackend:  cfgPkg.GetString("STORE_BACKEND", "redis"),
		sweepInterval: cfgPkg.GetDuration("SESSION_SWEEP_INTERVAL", time.Hour),
	}

	app := &application{config: cfg}

	storage, err := app.buildStorage(cfg.storeBackend)
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("backend", cfg.storeBackend).Msg("failed to connect to credential store")
	}

	// RabbitMQ is optional; without it auth events simply aren't published.
	var publisher services.EventPublisher
	if cfgPkg.GetString("RABBITMQ_URL", "") != "" {
		rabbitConn, rabbitCh, err := cfgPkg.NewRabbitMQConnection()
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		logger.Logger.Info().Msg("RabbitMQ connection established")
		publisher = services.NewRabbitMQPublisher(rabbitCh)
		app.rabbitConn = rabbitConn
		app.rabbitCh = rabbitCh
	} else {
		logger.Logger.Info().Msg("RABBITMQ_URL not set, auth event publishing disabled")
	}

	tokens := services.NewTokenManagerFromEnv()
	app.authService = services.NewAuthService(storage, tokens, publisher)

	mux := app.mount()

	stopSweeper := app.startSessionSweeper(cfg.sweepInterval)
	defer stopSweeper()

	if err := app.runWithGracefulShutdown(mux); err != nil {
		logger.Logger.Fatal().Err(err).Msg("server error")
	}
}

// buildStorage connects the configured credential-store backend and
// records the open handles on app for health checks and shutdown.
func (app *application) buildStorage(backend string) (store.Storage, error) {
	switch backend {
	case "redis":
		redisClient, err := cfgPkg.NewRedisClient()
		if err != nil {
			return store.Storage{}, err
		}
		logger.Logger.Info().Str("addr", redisClient.Options().Addr).Msg("redis connection established")
		app.redisClient = redisClient
		return store.NewRedisStorage(redisClient), nil

	case "postgres":
		db, err := cfgPkg.NewPostgresDB(cfgPkg.PostgresDSN())
		if err != nil {
			return store.Storage{}, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsurePostgresSchema(ctx, db); err != nil {
			_ = db.Close()
			return store.Storage{}, err
		}
		logger.Logger.Info().Msg("postgres connection pool established")
		app.db = db
		return store.NewPostgresStorage(db), nil

	case "memory":
		logger.Logger.Warn().Msg("using in-memory credential store; all data is lost on restart")
		return store.NewMemoryStorage(), nil

	default:
		return store.Storage{}, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(authmw.RequestIDTracing()) // Propagate request ID to logger and context
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	// Metrics middleware - record HTTP metrics
	r.Use(authmw.Metrics())

	// Security headers - must be early to protect all responses
	r.Use(authmw.SecurityHeaders())

	// CORS middleware - must be early in the chain to handle preflight requests
	r.Use(authmw.CORS())

	// Request body size limit
	r.Use(authmw.BodyLimitFromEnv())

	r.Use(middleware.Timeout(60 * time.Second))

	// Prometheus metrics endpoint
	r.Get("/metrics", metrics.MetricsHandler().ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/health", http.HandlerFunc(app.healthCheckHandler))

		// Public endpoints
		r.Post("/signup", http.HandlerFunc(app.signUpHandler))
		r.Post("/signin", http.HandlerFunc(app.signInHandler))

		// Protected endpoints
		r.Group(func(pr chi.Router) {
			pr.Use(authmw.TokenAuth(app.authService))
			pr.Post("/signout", http.HandlerFunc(app.signOutHandler))
			pr.Get("/profile", http.HandlerFunc(app.getProfileHandler))
			pr.Patch("/profile", http.HandlerFunc(app.updateProfileHandler))
			pr.Get("/me", http.HandlerFunc(app.meHandler))
		})
	})
	return r
}

// startSessionSweeper runs the expiry sweep on a fixed interval until
// the returned stop function is called.
func (app *application) startSessionSweeper(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, appErr := app.authService.CleanupExpiredSessions(context.Background())
				if appErr != nil {
					logger.Logger.Error().Err(appErr).Msg("session sweep failed")
					continue
				}
				if deleted > 0 {
					logger.Logger.Info().Int("deleted", deleted).Msg("swept expired sessions")
				}
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}

// runWithGracefulShutdown starts the server and, on SIGTERM/SIGINT,
// drains in-flight requests before closing store connections in order.
func (app *application) runWithGracefulShutdown(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", app.config.addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Logger.Info().Str("signal", sig.String()).Msg("Received signal, starting graceful shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}
	logger.Logger.Info().Msg("Server gracefully stopped")

	if app.db != nil {
		logger.Logger.Info().Msg("Closing database connection")
		if err := app.db.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Error closing database")
		}
	}
	if app.redisClient != nil {
		logger.Logger.Info().Msg("Closing Redis connection")
		if err := app.redisClient.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Error closing Redis")
		}
	}
	if app.rabbitCh != nil {
		if err := app.rabbitCh.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Error closing RabbitMQ channel")
		}
	}
	if app.rabbitConn != nil {
		if err := app.rabbitConn.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Error closing RabbitMQ connection")
		}
	}

	logger.Logger.Info().Msg("Graceful shutdown completed")
	return nil
}
