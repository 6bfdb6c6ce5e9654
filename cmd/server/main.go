package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/signlingo/api/internal/auth"
	"github.com/signlingo/api/internal/config"
	"github.com/signlingo/api/internal/database"
	"github.com/signlingo/api/internal/handlers"
	"github.com/signlingo/api/internal/logger"
	"github.com/signlingo/api/internal/middleware"
	"github.com/signlingo/api/internal/queue"
	"github.com/signlingo/api/internal/reminder"
	"github.com/signlingo/api/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("server_configuration_loaded",
		zap.String("port", cfg.ServerPort),
		zap.String("environment", cfg.Environment),
		zap.Bool("debug_mode", debugMode),
		zap.Bool("reminders_enabled", cfg.EnableReminders),
	)

	// OpenTelemetry tracing (optional)
	var tracerProvider *sdktrace.TracerProvider
	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(context.Background(), "signlingo-api", cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("otel_init_failed_tracing_disabled", zap.Error(err))
		} else {
			tracerProvider = tp
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tracerProvider); err != nil {
					zapLogger.Warn("otel_shutdown_failed", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("database_connection_failed", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("database_close_failed", zap.Error(err))
		}
	}()
	zapLogger.Info("database_connected")

	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("redis_connection_failed", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("redis_close_failed", zap.Error(err))
		}
	}()
	zapLogger.Info("redis_connected")

	jobQueue := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("rabbitmq_close_failed", zap.Error(err))
		}
	}()

	// Repositories
	userRepo := database.NewUserRepository(db)
	progressRepo := database.NewProgressRepository(db)
	reminderRepo := database.NewReminderRepository(db)
	ratelimitRepo := database.NewRatelimitConfigRepository(db)

	// Services
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	var serviceOpts []auth.ServiceOption
	if cfg.GoogleClientID != "" {
		serviceOpts = append(serviceOpts, auth.WithGoogleVerifier(auth.NewGoogleTokenVerifier(cfg.GoogleClientID)))
		zapLogger.Info("google_id_token_verification_enabled")
	}
	authService := auth.NewService(userRepo, auth.NewPasswordHasher(), tokens, zapLogger, serviceOpts...)

	dispatcher := reminder.NewDispatcher(reminderRepo, jobQueue, cfg.ReminderDays, cfg.ReminderBatchLimit, zapLogger)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.TokenTTL, cfg.IsProduction(), zapLogger)
	progressHandler := handlers.NewProgressHandler(progressRepo, zapLogger)
	reminderHandler := handlers.NewReminderHandler(dispatcher, cfg.ReminderAdminSecret, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, redisLimiter, jobQueue)

	r := mux.NewRouter()

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("signlingo-api"))
	}
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentType)

	globalLimit, err := middleware.RateLimitFromDB(redisLimiter, ratelimitRepo)
	if err != nil {
		zapLogger.Fatal("rate_limit_setup_failed", zap.Error(err))
	}
	r.Use(globalLimit)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Admin-Secret"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// Health endpoints stay outside the rate limited API surface in spirit
	// but share the middleware chain for consistent logging.
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/api/health", healthChecker.Legacy).Methods("GET")

	openAPIHandler := handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml"))
	openAPIHandler.RegisterRoutes(r)

	// Endpoint caps for the credential endpoints come from the database,
	// seeded with the shipped defaults on first run.
	loginMW, registerMW := endpointLimiters(ratelimitRepo, redisLimiter, zapLogger)

	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authHandler.RegisterPublicRoutes(authRouter, loginMW, registerMW)

	authMW := middleware.Auth(tokens, userRepo, zapLogger)
	activityMW := middleware.ActivityTracking(userRepo, zapLogger)

	protectedAuthRouter := r.PathPrefix("/api/auth").Subrouter()
	protectedAuthRouter.Use(authMW)
	protectedAuthRouter.Use(activityMW)
	authHandler.RegisterProtectedRoutes(protectedAuthRouter)

	contentRouter := r.PathPrefix("/api/content").Subrouter()
	contentRouter.Use(authMW)
	contentRouter.Use(activityMW)
	progressHandler.RegisterRoutes(contentRouter)

	r.HandleFunc("/api/reminders/run-now", reminderHandler.RunNow).Methods("POST")

	// Preflight requests short-circuit in the CORS handler; this catch-all
	// keeps unmatched OPTIONS from falling through to a 404.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        corsHandler.Handler(r),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	if cfg.EnableReminders {
		scheduler := reminder.NewScheduler(dispatcher, cfg.ReminderInterval, zapLogger)
		go scheduler.Start(jobCtx)
		zapLogger.Info("reminder_scheduler_started",
			zap.Duration("interval", cfg.ReminderInterval),
			zap.Int("inactive_days", cfg.ReminderDays),
		)
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	jobCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}
	zapLogger.Info("server_exited")
}

// connectRabbitMQ retries the broker connection with exponential backoff.
// Brokers routinely come up after the API in fresh deployments.
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 10
	delay := 2 * time.Second
	for attempt := 1; ; attempt++ {
		q, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			zapLogger.Info("rabbitmq_connected", zap.Int("attempt", attempt))
			return q
		}
		if attempt >= maxRetries {
			zapLogger.Fatal("rabbitmq_connection_failed", zap.Int("attempts", attempt), zap.Error(err))
		}
		zapLogger.Warn("rabbitmq_connection_retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
		delay *= 2
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
}

// endpointLimiters loads the login and register caps from the database,
// seeding the defaults when no rows exist yet.
func endpointLimiters(repo *database.RatelimitConfigRepository, redisLimiter *middleware.RedisRateLimiter, zapLogger *zap.Logger) (loginMW, registerMW func(http.Handler) http.Handler) {
	ctx := context.Background()
	limits := []middleware.FixedWindowLimit{middleware.LoginLimit, middleware.RegisterLimit}
	mws := make([]func(http.Handler) http.Handler, len(limits))
	for i, def := range limits {
		cfg, err := repo.GetOrDefault(ctx, def.Scope, def.MaxRequests, def.Window)
		if err != nil {
			zapLogger.Warn("rate_limit_config_load_failed_using_default",
				zap.String("scope", def.Scope),
				zap.Error(err),
			)
			cfg = nil
		}
		limit := def
		if cfg != nil {
			limit.MaxRequests = cfg.MaxRequests
			limit.Window = cfg.Window()
		}
		mws[i] = middleware.FixedWindow(redisLimiter, limit, zapLogger)
	}
	return mws[0], mws[1]
}
