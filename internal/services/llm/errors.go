package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel kinds for provider failures. Callers use errors.Is; Classify also
// recognizes untyped SDK errors by message.
var (
	ErrQuota             = errors.New("quota exhausted")
	ErrAuth              = errors.New("invalid credential")
	ErrNetwork           = errors.New("network failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrConfiguration     = errors.New("configuration error")
)

// Kind is the user-facing failure category.
type Kind string

const (
	KindNone          Kind = ""
	KindQuota         Kind = "quota"
	KindAuth          Kind = "auth"
	KindNetwork       Kind = "network"
	KindMalformed     Kind = "malformed_response"
	KindConfiguration Kind = "configuration"
	KindServer        Kind = "server"
	KindCanceled      Kind = "canceled"
	KindUnknown       Kind = "unknown"
)

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	name := e.Provider
	if name == "" {
		name = "llm"
	}
	return fmt.Sprintf("%s request: http %d: %s", name, e.StatusCode, strings.TrimSpace(e.Body))
}

// Is lets errors.Is match a status error against the sentinel kinds.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrQuota:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrAuth:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op,
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

func (e *emptyContentError) Is(target error) bool { return target == ErrMalformedResponse }

// Classify maps an error to its Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	switch {
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrQuota):
		return KindQuota
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout:
			return KindNetwork
		case statusErr.StatusCode >= http.StatusInternalServerError:
			return KindServer
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}
	return classifyMessage(err.Error())
}

// classifyMessage inspects SDK errors that carry the status only in text.
func classifyMessage(msg string) Kind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "429"), strings.Contains(lower, "quota"), strings.Contains(lower, "resource_exhausted"), strings.Contains(lower, "rate limit"):
		return KindQuota
	case strings.Contains(lower, "401"), strings.Contains(lower, "403"), strings.Contains(lower, "api key not valid"), strings.Contains(lower, "permission_denied"), strings.Contains(lower, "unauthenticated"):
		return KindAuth
	case strings.Contains(lower, "500"), strings.Contains(lower, "502"), strings.Contains(lower, "503"), strings.Contains(lower, "504"), strings.Contains(lower, "unavailable"), strings.Contains(lower, "overloaded"):
		return KindServer
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "connection reset"), strings.Contains(lower, "no such host"):
		return KindNetwork
	}
	return KindUnknown
}

// IsRetryable reports whether another attempt may succeed: quota and rate
// limits, 408, 5xx, network timeouts, and empty completions.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}
	kind := classifyMessage(err.Error())
	return kind == KindQuota || kind == KindServer
}

// UserMessage renders an error for people rather than logs.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindQuota:
		return "API quota exhausted (429). Download the partial file, wait a minute, then resume."
	case KindAuth:
		return "The API key is invalid or has expired."
	case KindNetwork:
		return "Could not reach the AI provider. Check the network connection and try again."
	case KindMalformed:
		return "The AI provider returned a response that could not be read. Try again or switch models."
	case KindConfiguration:
		return "AI provider is not configured: " + err.Error()
	case KindServer:
		return "The AI provider is temporarily unavailable. Try again later."
	case KindCanceled:
		return "The run was canceled."
	default:
		return "The AI run was interrupted. Download the partial file and try again later."
	}
}
