package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider builds a Gemini client. Friendly model names are mapped
// with ResolveModel.
func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("%w: gemini api key required", ErrConfiguration)
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	timeout := cfg.timeout()
	clientCfg.HTTPOptions.Timeout = &timeout
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions.BaseURL = base
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %w", ErrConfiguration, err)
	}
	return &GeminiProvider{client: client, model: ResolveModel(cfg.Model)}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return BackendGemini }

// Model implements Provider.
func (p *GeminiProvider) Model() string { return p.model }

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	const op = "gemini complete"
	if err := validateRequest(op, req); err != nil {
		return Completion{}, err
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(strings.TrimSpace(req.User)), config)
	if err != nil {
		return Completion{}, fmt.Errorf("gemini request: %w", err)
	}
	content := strings.TrimSpace(result.Text())
	if content == "" {
		finish := ""
		if len(result.Candidates) > 0 {
			finish = string(result.Candidates[0].FinishReason)
		}
		return Completion{}, &emptyContentError{Op: op, FinishReason: finish, Snippet: "<empty>"}
	}
	tokens := 0
	if result.UsageMetadata != nil {
		tokens = int(result.UsageMetadata.TotalTokenCount)
	}
	return Completion{Content: content, Tokens: tokens}, nil
}
