package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeLLMJSON decodes JSON from an LLM response, handling common formatting quirks.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("%w: empty payload", ErrMalformedResponse)
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w: %w (payload snippet: %s)", ErrMalformedResponse, directErr, summarizePayloadSnippet(trimmed))
	}

	sanitizedErr := json.Unmarshal([]byte(sanitized), target)
	if sanitizedErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %w (sanitized payload snippet: %s)", ErrMalformedResponse, sanitizedErr, summarizePayloadSnippet(sanitized))
}

// ExtractArray returns the first JSON array in content. A bare array, an
// object wrapping one array under any key, and fenced or prose-wrapped
// payloads are accepted.
func ExtractArray(content string) ([]gjson.Result, error) {
	for _, candidate := range []string{strings.TrimSpace(content), sanitizeJSONPayload(content), bracketSpan(content, '[', ']')} {
		if candidate == "" || !gjson.Valid(candidate) {
			continue
		}
		parsed := gjson.Parse(candidate)
		if parsed.IsArray() {
			return parsed.Array(), nil
		}
		if parsed.IsObject() {
			var found []gjson.Result
			parsed.ForEach(func(_, value gjson.Result) bool {
				if value.IsArray() {
					found = value.Array()
					return false
				}
				return true
			})
			if found != nil {
				return found, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no JSON array (payload snippet: %s)", ErrMalformedResponse, summarizePayloadSnippet(content))
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if span := bracketSpan(trimmed, '{', '}'); span != "" {
		return span
	}
	if span := bracketSpan(trimmed, '[', ']'); span != "" {
		return span
	}
	return trimmed
}

func bracketSpan(content string, opening, closing byte) string {
	start := strings.IndexByte(content, opening)
	end := strings.LastIndexByte(content, closing)
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

var errEmptyPrompt = errors.New("prompt required")
