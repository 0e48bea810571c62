// Package cli provides the initialization shared by cmd/expensetrack,
// cmd/report-worker and the expensectl commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensetrack/internal/backend"
	"expensetrack/internal/config"
	applog "expensetrack/internal/log"
	"expensetrack/internal/storage"
)

// SetupLogger initializes structured logging at level and sets it as the
// default logger.
func SetupLogger(level slog.Level, out io.Writer) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldError, err, "error_type", applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// Store is an opened expense store and the backend behind it.
type Store struct {
	*storage.ExpenseStore
	Backend *backend.BackendResult
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.Backend.Close()
}

// OpenStore creates the configured backend and wraps it in an ExpenseStore.
func OpenStore(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Store, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	es := storage.NewExpenseStore(res.KV, storage.WithLogger(logger.WithComponent(applog.ComponentStorage)))
	return &Store{ExpenseStore: es, Backend: res}, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// ShutdownContext bounds cleanup after the signal context is done.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
