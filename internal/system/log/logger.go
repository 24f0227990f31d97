// Package log provides the structured logger used across the service.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// LoggerKeyComponentName is the field name used to tag log entries with the emitting component.
	LoggerKeyComponentName = "component"
	// LoggerKeyCorrelationID is the field name carrying the request correlation ID.
	LoggerKeyCorrelationID = "correlation_id"
)

type correlationIDKey struct{}

// Logger wraps a logrus entry so callers can attach typed fields.
type Logger struct {
	entry *logrus.Entry
}

var (
	base = newBaseLogger()
	root = &Logger{entry: logrus.NewEntry(base)}
)

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	return l
}

// Init configures the process-wide logger. Format is "json" or "text".
func Init(level, format string, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	base.SetOutput(out)

	switch strings.ToLower(format) {
	case "", "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}

	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	base.SetLevel(parsed)
	return nil
}

// GetLogger returns the root logger.
func GetLogger() *Logger {
	return root
}

// WithContext returns the root logger enriched with the correlation ID carried by ctx, if any.
func WithContext(ctx context.Context) *Logger {
	logger := GetLogger()
	if id := CorrelationIDFromContext(ctx); id != "" {
		return logger.With(String(LoggerKeyCorrelationID, id))
	}
	return logger
}

// ContextWithCorrelationID stores the correlation ID in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext extracts the correlation ID stored by ContextWithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{entry: l.entry.WithFields(toLogrusFields(fields))}
}

// Debug logs a message at debug level.
func (l *Logger) Debug(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

// Info logs a message at info level.
func (l *Logger) Info(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Warn(msg)
}

// Error logs a message at error level.
func (l *Logger) Error(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Error(msg)
}

// Fatal logs a message and exits the process.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.entry.WithFields(toLogrusFields(fields)).Fatal(msg)
}

func toLogrusFields(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
