package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	defaultOpenRouterURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterName = "donghuasub"
)

// OpenRouter posts chat completions to an OpenRouter-compatible endpoint.
// Each call makes a single attempt; wrap it with WithRetry.
type OpenRouter struct {
	endpoint string
	apiKey   string
	model    string
	referer  string
	title    string
	http     *http.Client
}

// OpenRouterOption customizes an OpenRouter backend.
type OpenRouterOption func(*OpenRouter)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) OpenRouterOption {
	return func(o *OpenRouter) {
		if client != nil {
			o.http = client
		}
	}
}

// NewOpenRouter builds the backend. BaseURL is the full completions URL.
func NewOpenRouter(cfg Config, opts ...OpenRouterOption) *OpenRouter {
	o := &OpenRouter{
		endpoint: strings.TrimSpace(cfg.BaseURL),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    strings.TrimSpace(cfg.Model),
		referer:  strings.TrimSpace(cfg.Referer),
		title:    strings.TrimSpace(cfg.Title),
		http:     &http.Client{Timeout: cfg.timeout()},
	}
	if o.endpoint == "" {
		o.endpoint = defaultOpenRouterURL
	}
	if o.title == "" {
		o.title = defaultOpenRouterName
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenRouter) Name() string  { return BackendOpenRouter }
func (o *OpenRouter) Model() string { return o.model }

// Complete issues one chat completion request.
func (o *OpenRouter) Complete(ctx context.Context, req Request) (Completion, error) {
	const op = "openrouter complete"
	if err := validateRequest(op, req); err != nil {
		return Completion{}, err
	}
	if o.apiKey == "" {
		return Completion{}, fmt.Errorf("%s: %w: api key required", op, ErrConfiguration)
	}
	body, err := o.requestBody(req)
	if err != nil {
		return Completion{}, fmt.Errorf("%s: encode body: %w", op, err)
	}
	raw, err := o.post(ctx, body)
	if err != nil {
		return Completion{}, err
	}
	if !gjson.ValidBytes(raw) {
		return Completion{}, fmt.Errorf("%s: %w: response is not JSON (%s)", op, ErrMalformedResponse, summarizePayloadSnippet(string(raw)))
	}
	resp := gjson.ParseBytes(raw)
	if msg := resp.Get("error.message"); msg.Exists() {
		return Completion{}, fmt.Errorf("%s: api error: %s", op, strings.TrimSpace(msg.String()))
	}

	choices := resp.Get("choices").Array()
	if len(choices) == 0 {
		return Completion{}, fmt.Errorf("%s: %w: empty choices", op, ErrMalformedResponse)
	}
	content, finish, refusal := choiceContent(choices)
	if content == "" {
		return Completion{}, &emptyContentError{
			Op:           op,
			FinishReason: finish,
			Refusal:      refusal,
			Snippet:      summarizePayloadSnippet(string(raw)),
		}
	}
	return Completion{Content: content, Tokens: int(resp.Get("usage.total_tokens").Int())}, nil
}

func (o *OpenRouter) requestBody(req Request) ([]byte, error) {
	body := []byte(`{"messages":[]}`)
	var err error
	set := func(path string, value any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, value)
		}
	}
	set("model", o.model)
	set("temperature", req.Temperature)
	if system := strings.TrimSpace(req.System); system != "" {
		set("messages.-1", map[string]string{"role": "system", "content": system})
	}
	set("messages.-1", map[string]string{"role": "user", "content": strings.TrimSpace(req.User)})
	if req.MaxTokens > 0 {
		set("max_tokens", req.MaxTokens)
	}
	if req.JSON {
		set("response_format.type", "json_object")
	}
	return body, err
}

func (o *OpenRouter) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: openrouter request: %w", ErrConfiguration, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if o.referer != "" {
		httpReq.Header.Set("HTTP-Referer", o.referer)
	}
	if o.title != "" {
		httpReq.Header.Set("X-Title", o.title)
	}

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter request (timeout=%s): %w", o.http.Timeout, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: openrouter read body: %w", ErrNetwork, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &StatusError{
			Provider:   BackendOpenRouter,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			RetryAfter: retryAfter,
		}
	}
	return raw, nil
}

// choiceContent returns the first non-empty answer across choices. Some
// providers answer with the streaming "delta" shape, legacy "text", or put
// JSON mode output in function or tool call arguments.
func choiceContent(choices []gjson.Result) (content, finish, refusal string) {
	paths := []string{
		"message.content",
		"delta.content",
		"text",
		"message.function_call.arguments",
		"delta.function_call.arguments",
		"message.tool_calls.#.function.arguments",
		"delta.tool_calls.#.function.arguments",
	}
	for _, choice := range choices {
		if finish == "" {
			finish = strings.TrimSpace(choice.Get("finish_reason").String())
		}
		if refusal == "" {
			refusal = firstString(choice, "message.refusal", "delta.refusal")
		}
		if content = firstString(choice, paths...); content != "" {
			return content, finish, refusal
		}
	}
	return "", finish, refusal
}

func firstString(result gjson.Result, paths ...string) string {
	for _, path := range paths {
		value := result.Get(path)
		if value.IsArray() {
			for _, item := range value.Array() {
				if s := strings.TrimSpace(item.String()); s != "" {
					return s
				}
			}
			continue
		}
		if s := strings.TrimSpace(value.String()); s != "" {
			return s
		}
	}
	return ""
}

// parseRetryAfter accepts delta seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay >= 0 {
			return delay, true
		}
	}
	return 0, false
}
