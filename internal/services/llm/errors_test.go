package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"nil", nil, KindNone, false},
		{"quota status", &StatusError{StatusCode: http.StatusTooManyRequests}, KindQuota, true},
		{"auth status", &StatusError{StatusCode: http.StatusUnauthorized}, KindAuth, false},
		{"server status", &StatusError{StatusCode: http.StatusBadGateway}, KindServer, true},
		{"request timeout", &StatusError{StatusCode: http.StatusRequestTimeout}, KindNetwork, true},
		{"gemini quota text", errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED"), KindQuota, true},
		{"gemini key text", errors.New("Error 400, Message: API key not valid. Please pass a valid API key."), KindAuth, false},
		{"net timeout", fmt.Errorf("wrap: %w", timeoutErr{}), KindNetwork, true},
		{"malformed", fmt.Errorf("decode: %w", ErrMalformedResponse), KindMalformed, false},
		{"configuration", fmt.Errorf("%w: missing key", ErrConfiguration), KindConfiguration, false},
		{"canceled", context.Canceled, KindCanceled, false},
		{"unknown", errors.New("something odd"), KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.kind {
				t.Fatalf("Classify = %q, want %q", got, tt.kind)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Fatalf("IsRetryable = %v, want %v", got, tt.retryable)
			}
			if tt.err != nil && UserMessage(tt.err) == "" {
				t.Fatal("expected a user message")
			}
		})
	}
}
