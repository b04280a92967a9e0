package logs_test

import (
	"strings"
	"testing"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/api"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logs"
)

func TestFormatEvent(t *testing.T) {
	got := logs.FormatEvent(api.LogEvent{
		Timestamp: "not-a-time",
		Level:     "warn",
		Message:   "batch failed",
		Component: "rewrite",
		RunID:     "0123456789abcdef",
		Details:   []api.DetailField{{Label: "Segment", Value: "12"}, {Label: "", Value: "skip"}},
	})
	want := "not-a-time WARN [rewrite] run 01234567 - batch failed\n    - Segment: 12"
	if got != want {
		t.Fatalf("FormatEvent:\n got %q\nwant %q", got, want)
	}
}

func TestFormatLine(t *testing.T) {
	line := `{"ts":"bad","level":"INFO","msg":"run finished","component":"workbench","session_id":"abcd","tokens":120,"kind":"translate"}`
	got := logs.FormatLine(line)
	if !strings.HasPrefix(got, "bad INFO [workbench] - run finished") {
		t.Fatalf("unexpected headline %q", got)
	}
	if !strings.HasSuffix(got, "kind=translate tokens=120") {
		t.Fatalf("expected sorted trailing fields, got %q", got)
	}
	if strings.Contains(got, "session_id") {
		t.Fatalf("session id should be hidden, got %q", got)
	}

	if plain := logs.FormatLine("plain text"); plain != "plain text" {
		t.Fatalf("non-JSON line changed: %q", plain)
	}
}
