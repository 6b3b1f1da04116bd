// Package cli provides common initialization utilities for the commands
// under cmd/.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/voice"
)

// SetupLogger initializes structured logging at level and sets it as the
// default logger.
func SetupLogger(level slog.Level) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Output:    os.Stdout,
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
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenVoiceSource builds the recognizer selected by source: "none" disables
// voice input, "stdin" reads transcripts from standard input and anything
// else is opened as a file with one transcript per line.
func OpenVoiceSource(source string) (voice.Recognizer, error) {
	switch source {
	case "", "none":
		return nil, nil
	case "stdin":
		return voice.NewLineRecognizer(os.Stdin), nil
	default:
		r, err := voice.OpenLineRecognizer(source)
		if err != nil {
			return nil, fmt.Errorf("open voice source: %w", err)
		}
		return r, nil
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
	}()
	return ctx, stop
}
