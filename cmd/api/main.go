package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/saturnino-fabrica-de-software/parla/internal/api"
	"github.com/saturnino-fabrica-de-software/parla/internal/backend"
	"github.com/saturnino-fabrica-de-software/parla/internal/config"
	"github.com/saturnino-fabrica-de-software/parla/internal/kv"
	"github.com/saturnino-fabrica-de-software/parla/internal/widget"
	"github.com/saturnino-fabrica-de-software/parla/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Parla API",
		slog.String("environment", cfg.Environment),
		slog.String("kv_driver", cfg.KVDriver),
		slog.Int("port", cfg.Port),
	)

	// Widget state store
	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to create kv store: %w", err)
	}
	defer func() { _ = store.Close() }()

	// Upstream chat/OTP/voice provider
	client := backend.NewHTTPClient(backend.Config{
		BaseURL:    cfg.BackendURL,
		Timeout:    cfg.BackendTimeout,
		RetryCount: cfg.BackendRetries,
	})

	// WebSocket hub and widget instance manager
	hub := ws.NewHub()
	manager := widget.NewManager(widget.Deps{
		Store:              store,
		Client:             client,
		Logger:             logger,
		Hub:                hub,
		Generic403Fallback: cfg.Generic403AsAuth,
		Threshold:          cfg.MessageThreshold,
		ResendWindow:       cfg.OtpResendWindow,
		RecordingLimit:     cfg.RecordingLimit,
		AudioEnabled:       cfg.AudioEnabled,
	})

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Manager: manager,
		Hub:     hub,
	})
	router.Setup()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}

func newStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.KVDriver {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return kv.NewRedisStore(redis.NewClient(opts)), nil

	case "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return kv.NewPGStore(pool), nil

	default:
		return kv.NewMemoryStore(), nil
	}
}
