// Package llm talks to hosted language models for translation, title
// analysis, and subtitle rewriting.
//
// # Backends
//
// Provider has one implementation per backend: GeminiProvider (genai SDK),
// OpenAIProvider (openai-go SDK), and Client, a plain HTTP client for
// OpenRouter-compatible chat completion endpoints. NewProvider picks one from
// configuration; with provider "auto" the model name decides ("gpt" models go
// to OpenAI, "vendor/model" names to OpenRouter, the rest to Gemini).
//
// # Retry Behaviour
//
// Every provider returned by NewProvider is wrapped with WithRetry. Retry
// re-issues calls on 408/429/5xx, quota errors, network timeouts, and empty
// completions with exponential backoff (base 2s doubling, capped at 10s, three
// attempts by default). Retry-After hints replace the computed delay. Context
// cancellation aborts retries immediately.
//
// # Errors
//
// Failures carry one of the sentinel kinds (ErrQuota, ErrAuth, ErrNetwork,
// ErrMalformedResponse, ErrConfiguration). Classify maps any error to a Kind
// and UserMessage renders it for display.
package llm
