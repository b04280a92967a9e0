package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
)

// Backend names.
const (
	BackendAuto       = "auto"
	BackendGemini     = "gemini"
	BackendOpenAI     = "openai"
	BackendOpenRouter = "openrouter"
)

const defaultHTTPTimeout = 60 * time.Second

// Request is one prompt exchange.
type Request struct {
	System      string
	User        string
	JSON        bool
	Temperature float64
	// MaxTokens caps the response length when positive.
	MaxTokens int
}

// Completion is the provider's answer.
type Completion struct {
	Content string
	Tokens  int
}

// Provider is a hosted model backend.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Config captures the runtime settings required to talk to a backend.
type Config struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	Retry          Policy
	Logger         *slog.Logger
}

// DefaultHTTPTimeout returns the default timeout used for LLM requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return defaultHTTPTimeout
}

// ResolveBackend picks a backend from an explicit setting or, for "auto",
// from the model name: "gpt" models go to OpenAI, vendor-prefixed names
// ("vendor/model") to OpenRouter, everything else to Gemini.
func ResolveBackend(provider, model string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != "" && provider != BackendAuto {
		return provider
	}
	name := strings.ToLower(model)
	switch {
	case strings.Contains(name, "/"):
		return BackendOpenRouter
	case strings.Contains(name, "gpt"):
		return BackendOpenAI
	default:
		return BackendGemini
	}
}

// ResolveModel maps friendly Gemini names onto current model IDs. Other
// names pass through.
func ResolveModel(model string) string {
	name := strings.ToLower(strings.TrimSpace(model))
	if !strings.Contains(name, "gemini") || strings.Contains(name, "/") {
		return strings.TrimSpace(model)
	}
	if strings.Contains(name, "pro") {
		return "gemini-3-pro-preview"
	}
	return "gemini-3-flash-preview"
}

// NewProvider builds the backend selected by cfg, wrapped in the retry
// policy. The choice is made once here rather than per call.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: llm model required", ErrConfiguration)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: llm api key required", ErrConfiguration)
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = DefaultPolicy()
	}

	var (
		inner Provider
		err   error
	)
	switch backend := ResolveBackend(cfg.Provider, cfg.Model); backend {
	case BackendGemini:
		inner, err = NewGeminiProvider(ctx, cfg)
	case BackendOpenAI:
		inner, err = NewOpenAIProvider(cfg)
	case BackendOpenRouter:
		inner = NewOpenRouter(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider %q", ErrConfiguration, backend)
	}
	if err != nil {
		return nil, err
	}
	return WithRetry(inner, cfg.Retry, cfg.Logger), nil
}

type retryingProvider struct {
	inner  Provider
	policy Policy
	logger *slog.Logger
}

// WithRetry decorates p so every Complete call goes through Retry.
func WithRetry(p Provider, policy Policy, logger *slog.Logger) Provider {
	logger = logging.NewComponentLogger(logger, "llm")
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, delay time.Duration, err error) {
			logging.WarnWithContext(logger, "llm call failed; retrying", "llm_retry",
				logging.String("provider", p.Name()),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.String("error_kind", string(Classify(err))),
				logging.Error(err),
				logging.String(logging.FieldImpact, "request delayed"),
			)
		}
	}
	return &retryingProvider{inner: p, policy: policy, logger: logger}
}

func (r *retryingProvider) Name() string  { return r.inner.Name() }
func (r *retryingProvider) Model() string { return r.inner.Model() }

func (r *retryingProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	return Retry(ctx, r.policy, r.inner.Name()+" complete", func(ctx context.Context) (Completion, error) {
		return r.inner.Complete(ctx, req)
	})
}

// HealthCheck sends a short JSON ping through p.
func HealthCheck(ctx context.Context, p Provider) error {
	if p == nil {
		return fmt.Errorf("%w: no provider", ErrConfiguration)
	}
	completion, err := p.Complete(ctx, Request{
		System:    "You must respond with JSON only.",
		User:      `Respond with {"ok":true}`,
		JSON:      true,
		MaxTokens: 16,
	})
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(completion.Content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("llm health: %w: unexpected response", ErrMalformedResponse)
	}
	return nil
}

func validateRequest(op string, req Request) error {
	if strings.TrimSpace(req.User) == "" {
		return fmt.Errorf("%s: user %w", op, errEmptyPrompt)
	}
	return nil
}
