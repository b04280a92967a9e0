package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Markers classify failures for HTTP status mapping and CLI messages.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrBusy          = errors.New("busy")
	ErrTransient     = errors.New("transient failure")
)

var statusByMarker = []struct {
	marker error
	status int
}{
	{ErrValidation, http.StatusBadRequest},
	{ErrNotFound, http.StatusNotFound},
	{ErrBusy, http.StatusConflict},
	{ErrConfiguration, http.StatusServiceUnavailable},
}

// Wrap returns "marker: component: operation: message[: err]". Empty parts
// are skipped and a nil marker means ErrTransient. Both marker and err stay
// reachable through errors.Is.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	var parts []string
	for _, part := range []string{component, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "service failure"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a marked error to its API status code. Unmarked errors are
// 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, entry := range statusByMarker {
		if errors.Is(err, entry.marker) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}
