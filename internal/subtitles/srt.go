package subtitles

import (
	"regexp"
	"strings"
)

// Segment is one subtitle cue. Timestamp keeps the raw timing line so ranges
// the codec cannot read still survive a parse/serialize cycle.
type Segment struct {
	Index          string `json:"index"`
	Timestamp      string `json:"timestamp"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText,omitempty"`
}

// Text returns the text used for display and readability: the translation
// when present, otherwise the source text.
func (s Segment) Text() string {
	if s.TranslatedText != "" {
		return s.TranslatedText
	}
	return s.OriginalText
}

// Range returns the segment timing in milliseconds. Unreadable timestamps map
// to zero on the failing side.
func (s Segment) Range() (start, end int64) {
	left, right, found := strings.Cut(s.Timestamp, "-->")
	if !found {
		return ParseTimestamp(s.Timestamp), 0
	}
	return ParseTimestamp(left), ParseTimestamp(right)
}

var blockSeparator = regexp.MustCompile(`\n\s*\n`)

// Parse reads SRT text into segments. Blocks with fewer than three non-empty
// lines are skipped without error.
func Parse(raw string) []Segment {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil
	}

	var segments []Segment
	for _, block := range blockSeparator.Split(normalized, -1) {
		lines := nonEmptyLines(block)
		if len(lines) < 3 {
			continue
		}
		segments = append(segments, Segment{
			Index:        lines[0],
			Timestamp:    lines[1],
			OriginalText: strings.Join(lines[2:], "\n"),
		})
	}
	return segments
}

func nonEmptyLines(block string) []string {
	raw := strings.Split(block, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// Serialize renders segments as SRT text. Blocks are separated by exactly one
// blank line and the output carries no trailing separator.
func Serialize(segments []Segment) string {
	var sb strings.Builder
	for i, seg := range segments {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(seg.Index)
		sb.WriteByte('\n')
		sb.WriteString(seg.Timestamp)
		sb.WriteByte('\n')
		sb.WriteString(seg.Text())
	}
	return sb.String()
}
