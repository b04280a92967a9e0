package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// consoleHandler renders records for people: one headline per record and
// the interesting attributes as indented bullets. Debug records list every
// attribute. At info level a bullet whose value has not changed since the
// last record of the same run is left out.
type consoleHandler struct {
	out       *consoleSink
	level     slog.Leveler
	addSource bool
	prefix    string
	bound     []kv
}

// consoleSink is shared by every clone of a handler.
type consoleSink struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[string]map[string]string
}

type kv struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{
		out:       &consoleSink{w: w, seen: make(map[string]map[string]string)},
		level:     level,
		addSource: addSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.bound = append([]kv(nil), h.bound...)
	for _, attr := range attrs {
		clone.bound = appendFlat(clone.bound, h.prefix, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	pairs := append([]kv(nil), h.bound...)
	record.Attrs(func(attr slog.Attr) bool {
		pairs = appendFlat(pairs, h.prefix, attr)
		return true
	})
	pairs = lastWins(pairs)

	var component, runID, stage string
	rest := pairs[:0:0]
	for _, pair := range pairs {
		switch pair.key {
		case FieldComponent:
			component = attrString(pair.value)
			continue
		case FieldRunID:
			runID = attrString(pair.value)
		case FieldStage:
			stage = attrString(pair.value)
		}
		rest = append(rest, pair)
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Local().Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	if component != "" {
		b.WriteString(" [" + component + "]")
	}
	if subject := runSubject(runID, stage); subject != "" {
		b.WriteString(" " + subject)
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	b.WriteString(" - " + message)
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	b.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	if record.Level < slog.LevelInfo {
		for _, pair := range pairs {
			fmt.Fprintf(&b, "    %s: %s\n", pair.key, formatValue(pair.value))
		}
	} else {
		fields, hidden := selectInfoFields(rest, 0, true)
		for _, field := range h.out.unseen(summaryScope(component, runID), fields, record.Level > slog.LevelInfo) {
			fmt.Fprintf(&b, "    - %s: %s\n", field.label, field.value)
		}
		if hidden > 0 {
			fmt.Fprintf(&b, "    + %d more %s hidden\n", hidden, plural(hidden, "field"))
		}
	}
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

// unseen drops fields whose value matches the last one printed in scope.
// Warnings and errors always print every field but still update the cache.
func (s *consoleSink) unseen(scope string, fields []infoField, always bool) []infoField {
	if scope == "" {
		return fields
	}
	cache := s.seen[scope]
	if cache == nil {
		cache = make(map[string]string)
		s.seen[scope] = cache
	}
	out := fields[:0:0]
	for _, field := range fields {
		if prev, ok := cache[field.label]; ok && prev == field.value && !always {
			continue
		}
		cache[field.label] = field.value
		out = append(out, field)
	}
	return out
}

// summaryScope groups repeated-field suppression per run, or per component
// outside a run.
func summaryScope(component, runID string) string {
	if runID != "" {
		return "run:" + runID
	}
	return component
}

// runSubject renders "Run 1a2b3c4d (rewrite)".
func runSubject(runID, stage string) string {
	if len(runID) > 8 {
		runID = runID[:8]
	}
	switch {
	case runID != "" && stage != "":
		return "Run " + runID + " (" + stage + ")"
	case runID != "":
		return "Run " + runID
	default:
		return stage
	}
}

func appendFlat(dst []kv, prefix string, attr slog.Attr) []kv {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = joinKey(prefix, attr.Key)
		}
		for _, member := range value.Group() {
			dst = appendFlat(dst, groupPrefix, member)
		}
		return dst
	}
	key := joinKey(prefix, attr.Key)
	if key == "" {
		return dst
	}
	return append(dst, kv{key: key, value: value})
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// lastWins removes duplicate keys keeping the first position and the last
// value.
func lastWins(pairs []kv) []kv {
	index := make(map[string]int, len(pairs))
	out := pairs[:0:0]
	for _, pair := range pairs {
		if at, ok := index[pair.key]; ok {
			out[at].value = pair.value
			continue
		}
		index[pair.key] = len(out)
		out = append(out, pair)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// attrString renders a value without quoting, for event fields.
func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(v)
	}
}

// formatValue renders a value for console output, quoting strings that
// contain spaces, quotes or '='.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	return s == "" || strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	})
}
