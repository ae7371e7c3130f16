package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/socialzwater/backend/internal/api"
	"github.com/socialzwater/backend/internal/config"
	"github.com/socialzwater/backend/internal/database"
	"github.com/socialzwater/backend/internal/health"
	"github.com/socialzwater/backend/internal/jobs"
	"github.com/socialzwater/backend/internal/logger"
	"github.com/socialzwater/backend/internal/migrations"
	"github.com/socialzwater/backend/internal/services"
	"github.com/socialzwater/backend/internal/websocket"
)

const dbName = "socialz"

func main() {
	// Not an error in production - use env vars directly
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.IsDevelopment(),
	})
	log := logger.Get()
	log.Info().
		Str("env", cfg.Env).
		Str("version", health.Version).
		Msg("Starting SocialZ backend")

	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			log.Error().Msg(p)
		}
		log.Fatal().Msg("Configuration validation failed")
	}
	if cfg.UsesDefaultSecret() {
		log.Warn().Msg("Using default JWT_SECRET - NOT SAFE FOR PRODUCTION")
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get SQL DB")
	}

	// Run migrations on startup (dev mode) or only report the version
	if cfg.IsDevelopment() || cfg.RunMigrations {
		if err := migrations.Run(sqlDB, dbName); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	} else {
		version, dirty, err := migrations.Status(sqlDB, dbName)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to check migration status")
		} else {
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Migration status")
		}
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	healthChecker := health.NewChecker(db, redisClient)

	hubCtx, stopHub := context.WithCancel(context.Background())
	wsHub := websocket.NewHub()
	go wsHub.Run(hubCtx)

	container := services.NewContainer(cfg, db, redisClient, wsHub)

	scheduler := jobs.NewScheduler(container)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job scheduler")
	}

	server := api.NewServer(container, healthChecker)
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	healthChecker.SetReady(true)
	log.Info().Msg("Service is ready")

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	// Mark as not ready (for k8s)
	healthChecker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	scheduler.Stop()
	stopHub()
	container.Close()

	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("Database close error")
	}
	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("Redis close error")
	}

	log.Info().Msg("Shutdown complete")
}
