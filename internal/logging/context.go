package logging

import (
	"context"
	"log/slog"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services"
)

// Structured keys shared by every component.
const (
	FieldComponent = "component"
	// FieldRunID identifies one optimize or translate run.
	FieldRunID = "run_id"
	// FieldStage is analyze, fix, rewrite, translate or title.
	FieldStage = "stage"
	// FieldSegment is the SRT index label a record refers to.
	FieldSegment = "segment"
	// FieldCorrelationID carries the X-Request-ID of an API call.
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldProgressPercent carries batch progress as 0-100.
	FieldProgressPercent = "progress_percent"
	// FieldSessionID tags every record from one process so interleaved CLI
	// and server logs in the shared log directory can be told apart.
	FieldSessionID = "session_id"
)

// ContextFields returns the run, stage and request identifiers carried by
// ctx as attrs.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	add := func(key, value string, ok bool) {
		if ok {
			fields = append(fields, slog.String(key, value))
		}
	}
	id, ok := services.RunIDFromContext(ctx)
	add(FieldRunID, id, ok)
	stage, ok := services.StageFromContext(ctx)
	add(FieldStage, stage, ok)
	requestID, ok := services.RequestIDFromContext(ctx)
	add(FieldCorrelationID, requestID, ok)
	return fields
}

// WithContext binds the ContextFields of ctx to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
