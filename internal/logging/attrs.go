package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so callers only import this package.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }
func Int(key string, value int) Attr { return slog.Int(key, value) }
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Error records err under the "error" key. A nil error is written as "<nil>"
// so the key is never silently dropped.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attrs for the variadic slog methods.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that drops everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger tags logger with a component name. A nil logger yields
// a no-op base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const (
	defaultErrorHint = "check logs for details"
	defaultImpact    = "the run continues with the affected segments unchanged"
)

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Missing fields get defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	logWithHints(logger, slog.LevelWarn, msg, eventType, true, attrs)
}

// ErrorWithContext logs an error that always carries event_type and
// error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	logWithHints(logger, slog.LevelError, msg, eventType, false, attrs)
}

func logWithHints(logger *slog.Logger, level slog.Level, msg, eventType string, withImpact bool, attrs []Attr) {
	if logger == nil {
		return
	}
	present := make(map[string]bool, len(attrs))
	for _, attr := range attrs {
		present[attr.Key] = true
	}
	fill := func(key, value string) {
		if !present[key] {
			attrs = append(attrs, String(key, value))
		}
	}
	fill(FieldEventType, eventType)
	fill(FieldErrorHint, defaultErrorHint)
	if withImpact {
		fill(FieldImpact, defaultImpact)
	}
	logger.Log(context.Background(), level, msg, Args(attrs...)...)
}
