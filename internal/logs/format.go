package logs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/api"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
)

const displayTimeFormat = "2006-01-02 15:04:05"

// FormatEvent renders a server event as one headline plus detail bullets.
func FormatEvent(evt api.LogEvent) string {
	ts := evt.Timestamp
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		ts = parsed.Local().Format(displayTimeFormat)
	}
	var b strings.Builder
	b.WriteString(headline(ts, evt.Level, evt.Component, evt.RunID, evt.Message))
	if evt.Segment != "" {
		b.WriteString(" (segment " + evt.Segment + ")")
	}
	for _, detail := range evt.Details {
		if strings.TrimSpace(detail.Label) == "" || strings.TrimSpace(detail.Value) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n    - %s: %s", detail.Label, detail.Value)
	}
	return b.String()
}

// jsonKeys are rendered in the headline and skipped from the trailing fields.
var jsonKeys = map[string]bool{
	"ts":                   true,
	"level":                true,
	"msg":                  true,
	logging.FieldComponent: true,
	logging.FieldRunID:     true,
	logging.FieldSessionID: true,
}

// FormatLine renders a JSON log file line like FormatEvent. Lines that are
// not JSON objects pass through unchanged.
func FormatLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if !gjson.Valid(trimmed) || !strings.HasPrefix(trimmed, "{") {
		return line
	}
	record := gjson.Parse(trimmed)
	ts := record.Get("ts").String()
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		ts = parsed.Local().Format(displayTimeFormat)
	}
	out := headline(ts,
		record.Get("level").String(),
		record.Get(logging.FieldComponent).String(),
		record.Get(logging.FieldRunID).String(),
		record.Get("msg").String(),
	)

	var fields []string
	record.ForEach(func(key, value gjson.Result) bool {
		if !jsonKeys[key.String()] {
			fields = append(fields, key.String()+"="+value.String())
		}
		return true
	})
	if len(fields) == 0 {
		return out
	}
	sort.Strings(fields)
	return out + " " + strings.Join(fields, " ")
}

func headline(ts, level, component, runID, message string) string {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, "["+component+"]")
	}
	if runID = strings.TrimSpace(runID); runID != "" {
		parts = append(parts, "run "+shortID(runID))
	}
	line := strings.Join(parts, " ")
	if message = strings.TrimSpace(message); message != "" {
		line += " - " + message
	}
	return line
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
