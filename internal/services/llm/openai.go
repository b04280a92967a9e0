package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider calls the OpenAI chat completions API through the official SDK.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider validates the key and builds the SDK client. SDK-level
// retries are disabled so the shared retry policy stays in charge.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("%w: openai api key required", ErrConfiguration)
	}
	if strings.HasPrefix(key, "AIza") {
		return nil, fmt.Errorf("%w: a Gemini key cannot be used with OpenAI models", ErrAuth)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.timeout()),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if referer := strings.TrimSpace(cfg.Referer); referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", referer))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...), model: strings.TrimSpace(cfg.Model)}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return BackendOpenAI }

// Model implements Provider.
func (p *OpenAIProvider) Model() string { return p.model }

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	const op = "openai complete"
	if err := validateRequest(op, req); err != nil {
		return Completion{}, err
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(strings.TrimSpace(req.User)))
	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       p.model,
		Temperature: openai.Float(req.Temperature),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Completion{}, translateOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("%s: %w: empty choices", op, ErrMalformedResponse)
	}
	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return Completion{}, &emptyContentError{
			Op:           op,
			FinishReason: choice.FinishReason,
			Refusal:      choice.Message.Refusal,
			Snippet:      summarizePayloadSnippet(resp.RawJSON()),
		}
	}
	return Completion{Content: content, Tokens: int(resp.Usage.TotalTokens)}, nil
}

func translateOpenAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai request: %w", err)
	}
	statusErr := &StatusError{
		Provider:   BackendOpenAI,
		StatusCode: apiErr.StatusCode,
		Body:       apiErr.Message,
	}
	if apiErr.Response != nil {
		statusErr.RetryAfter, _ = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
	}
	return statusErr
}
