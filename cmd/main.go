/**
 * @description
 * This is the main entry point for the membership service.
 * It initializes and wires together all the components of the application,
 * including configuration, database connection, object storage, the event
 * producer, the renewal reminder scheduler, repository, service, and the
 * HTTP router. Finally, it starts the HTTP server to listen for incoming
 * requests.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/PawanLambole/haji-fitness-point/internal/api"
	"github.com/PawanLambole/haji-fitness-point/internal/app"
	"github.com/PawanLambole/haji-fitness-point/internal/config"
	"github.com/PawanLambole/haji-fitness-point/internal/store"
	"github.com/PawanLambole/haji-fitness-point/pkg/rabbitmq"
	"github.com/PawanLambole/haji-fitness-point/pkg/storage"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file if present; real deployments use environment variables
	_ = godotenv.Load()

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up channel to listen for OS signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to the PostgreSQL database with connection pool configuration
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// IMPORTANT: Disable prepared statements to work with PgBouncer transaction pooling
	// Use simple protocol to avoid statement cache errors (SQLSTATE 42P05)
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Object storage for member photos
	objects, err := storage.NewOSSStore(cfg.OSSEndpoint, cfg.OSSAccessKeyID, cfg.OSSAccessKeySecret, cfg.OSSBucket)
	if err != nil {
		logger.Error("unable to initialize object storage", "error", err)
		os.Exit(1)
	}

	// Event producer for welcome and renewal notifications. The broker is
	// optional: events are fire-and-forget, so the service degrades to a
	// no-op producer rather than refusing to start.
	var events app.EventPublisher
	producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, events will be skipped", "error", err)
		events = &rabbitmq.NoopProducer{Logger: logger}
	} else {
		defer producer.Close()
		events = producer
	}

	// Redis-backed rate limiter for registration. Optional as well.
	var limiter api.RateLimiter
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("unable to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		limiter = api.NewRedisRateLimiter(redisClient, "hfp:rate_limit")
	}

	// Initialize application layers
	repository := store.NewPostgresRepository(dbpool)
	allocator := app.NewAssignmentAllocator(repository, logger)
	service := app.NewMemberService(repository, allocator, objects, events, logger)
	handler := api.NewHandler(service, logger, cfg.MemberPageSize)
	router := api.NewRouter(handler, cfg.JWTSecret, limiter, cfg.RegisterRateLimit)

	// Renewal reminder scheduler
	jobs := app.NewJobs(repository, events, logger, cfg.ReminderDays)
	scheduler := app.NewScheduler(jobs, logger)
	scheduler.Start(cfg.ReminderSchedule)

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	// Stop the scheduler and wait for a running job to finish
	<-scheduler.Stop().Done()

	// Create a context with a timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
