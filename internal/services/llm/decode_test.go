package llm

import (
	"errors"
	"testing"
)

func TestDecodeLLMJSONSanitizes(t *testing.T) {
	var out struct {
		Title string `json:"title"`
	}
	if err := DecodeLLMJSON("Here you go:\n```json\n{\"title\":\"Đấu Phá\"}\n```", &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if out.Title != "Đấu Phá" {
		t.Fatalf("title = %q", out.Title)
	}
	if err := DecodeLLMJSON("not json", &out); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestExtractArray(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{`[{"id":"1"},{"id":"2"}]`, 2},
		{"```json\n[{\"id\":\"1\"}]\n```", 1},
		{`{"results":[{"id":"1"},{"id":"2"},{}]}`, 3},
		{`Sure! [{"id":"9","afterText":"x"}] done.`, 1},
	}
	for _, tt := range cases {
		items, err := ExtractArray(tt.input)
		if err != nil {
			t.Fatalf("ExtractArray(%q): %v", tt.input, err)
		}
		if len(items) != tt.want {
			t.Fatalf("ExtractArray(%q) len = %d, want %d", tt.input, len(items), tt.want)
		}
	}
	if _, err := ExtractArray(`{"ok":true}`); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
