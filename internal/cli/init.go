// Package cli provides common initialization for cmd/moneybook and
// cmd/moneybook-worker.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneybook/internal/amqp"
	"moneybook/internal/config"
	"moneybook/internal/log"
	"moneybook/internal/services"
	"moneybook/internal/storage"
	"moneybook/internal/worker"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Before the config is loaded pass nil.
func SetupLogger(cfg *config.Config) *log.Logger {
	return SetupLoggerTo(cfg, os.Stdout)
}

// SetupLoggerTo is SetupLogger writing to out. The interactive CLI logs to
// stderr so reports on stdout stay clean.
func SetupLoggerTo(cfg *config.Config, out io.Writer) *log.Logger {
	lc := log.DefaultConfig()
	lc.Output = out
	if cfg != nil {
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			lc.Level = level
		}
		lc.Format = cfg.LogFormat
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// InitAMQP connects to the broker when AMQP_URL is set. A nil client means
// recomputation runs inline.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if !cfg.QueueEnabled() {
		logger.Debug("AMQP disabled - recomputing inline")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, recomputing inline", log.FieldError, err)
		return nil
	}
	return client
}

// EngineOptions turns the configuration into service options. A non-nil
// client routes recompute commands through the queue.
func EngineOptions(cfg *config.Config, logger *log.Logger, client *amqp.Client) []services.Option {
	opts := []services.Option{
		services.WithDefaultCurrency(cfg.DefaultCurrency),
		services.WithPageSize(cfg.PageSize),
		services.WithLogger(logger),
	}
	if client != nil {
		opts = append(opts, services.WithDispatcher(worker.NewQueueDispatcher(client)))
	}
	return opts
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
