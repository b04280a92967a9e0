package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrValidation, "optimize", "load", "no file", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"optimize", "load", "no file"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{services.Wrap(services.ErrValidation, "api", "upload", "empty body", nil), http.StatusBadRequest},
		{services.Wrap(services.ErrNotFound, "api", "download", "no file", nil), http.StatusNotFound},
		{services.Wrap(services.ErrBusy, "workbench", "start", "run active", nil), http.StatusConflict},
		{services.Wrap(services.ErrConfiguration, "llm", "init", "missing key", nil), http.StatusServiceUnavailable},
		{errors.New("io"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := services.HTTPStatus(tt.err); got != tt.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWrapDefaults(t *testing.T) {
	err := services.Wrap(nil, " ", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if got := err.Error(); got != "transient failure: service failure" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := services.HTTPStatus(err); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for transient failure, got %d", got)
	}
}
