// Package logging provides structured logging built on zerolog.
//
// Output is human-readable console by default; set LOG_FORMAT=json or
// LOG_JSON=true for machine-readable JSON logs.
package logging

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/graphmind/kgraph/pkg/multitenancy"
)

// Logger is the logging interface used across the codebase.
type Logger interface {
	Debug(ctx context.Context, message string, fields map[string]interface{})
	Info(ctx context.Context, message string, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, fields map[string]interface{})
}

type zeroLogger struct {
	logger zerolog.Logger
}

// jsonEnabled reports whether JSON output was requested via the environment.
func jsonEnabled() bool {
	if os.Getenv("LOG_FORMAT") == "json" {
		return true
	}
	switch os.Getenv("LOG_JSON") {
	case "true", "1", "yes":
		return true
	}
	return false
}

// New creates a Logger writing to stderr. Level defaults to info and can be
// overridden with LOG_LEVEL (debug, info, warn, error).
func New() Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}

	var logger zerolog.Logger
	if jsonEnabled() {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger = logger.Level(level).With().Timestamp().Logger()

	return &zeroLogger{logger: logger}
}

// NewNop creates a Logger that discards everything. Useful in tests.
func NewNop() Logger {
	return &zeroLogger{logger: zerolog.Nop()}
}

func (l *zeroLogger) emit(ctx context.Context, event *zerolog.Event, message string, fields map[string]interface{}) {
	if userID, err := multitenancy.GetUserID(ctx); err == nil {
		event = event.Str("user_id", userID)
	}
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(message)
}

func (l *zeroLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.emit(ctx, l.logger.Debug(), message, fields)
}

func (l *zeroLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.emit(ctx, l.logger.Info(), message, fields)
}

func (l *zeroLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.emit(ctx, l.logger.Warn(), message, fields)
}

func (l *zeroLogger) Error(ctx context.Context, message string, fields map[string]interface{}) {
	l.emit(ctx, l.logger.Error(), message, fields)
}
