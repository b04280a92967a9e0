package services

import "context"

type ctxKey int

const (
	runIDKey ctxKey = iota
	stageKey
	requestIDKey
)

func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueOf(ctx context.Context, key ctxKey) (string, bool) {
	value, _ := ctx.Value(key).(string)
	return value, value != ""
}

// WithRunID tags ctx with the ledger run ID. Empty IDs leave ctx unchanged.
func WithRunID(ctx context.Context, id string) context.Context {
	return withValue(ctx, runIDKey, id)
}

func RunIDFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, runIDKey) }

// WithStage tags ctx with the pipeline stage: analyze, fix, rewrite,
// translate or title.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, stageKey) }

// WithRequestID tags ctx with the API request ID used for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, requestIDKey) }
