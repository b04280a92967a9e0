package translation

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
)

const (
	// DefaultChunkSize is the number of segments sent per translation request.
	DefaultChunkSize = 8
	// DefaultChunkDelay spaces translation requests to stay under rate limits.
	DefaultChunkDelay = 600 * time.Millisecond

	translateTemperature = 0.3
	titleTemperature     = 0.3
	rewriteTemperature   = 0.4
)

// TitleCache stores title analyses keyed by title and model.
type TitleCache interface {
	GetTitle(ctx context.Context, title, model string) (string, bool, error)
	PutTitle(ctx context.Context, title, model, payload string) error
}

// Service talks to a model provider for title analysis, translation, and
// readability rewrites.
type Service struct {
	provider   llm.Provider
	cache      TitleCache
	glossary   Glossary
	chunkSize  int
	chunkDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTitleCache enables title analysis caching.
func WithTitleCache(cache TitleCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithGlossary replaces the built-in glossary.
func WithGlossary(g Glossary) Option {
	return func(s *Service) { s.glossary = g }
}

// WithChunkSize sets the number of segments per translation request.
func WithChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithChunkDelay sets the pause between translation requests.
func WithChunkDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.chunkDelay = d
		}
	}
}

// WithSleeper overrides how the service waits between chunks.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService builds a Service around provider.
func NewService(provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		provider:   provider,
		glossary:   DefaultGlossary(),
		chunkSize:  DefaultChunkSize,
		chunkDelay: DefaultChunkDelay,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "translation")
	return s
}

// Model reports the provider's model name.
func (s *Service) Model() string {
	return s.provider.Model()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
