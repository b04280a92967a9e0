package logging

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

type infoField struct {
	label string
	value string
}

// infoAttrLimit caps detail bullets on streamed events.
const infoAttrLimit = 8

const (
	maxInfoValueLen  = 120
	maxErrorValueLen = 200
)

// infoOrder ranks the keys shown first, in this order. Keys missing here keep
// their call-site order after the ranked ones.
var infoOrder = []string{
	FieldEventType,
	"file",
	"title",
	"provider",
	"model",
	FieldSegment,
	"processed",
	"total",
	"applied",
	"failed",
	FieldProgressPercent,
	"tokens",
	"outcome",
	"error",
	FieldErrorHint,
	FieldImpact,
	"reason",
}

var infoRank = func() map[string]int {
	rank := make(map[string]int, len(infoOrder))
	for i, key := range infoOrder {
		rank[key] = i
	}
	return rank
}()

var infoLabels = map[string]string{
	FieldEventType:       "Event",
	FieldErrorHint:       "Hint",
	FieldProgressPercent: "Progress",
	"cps":                "CPS",
	"ai_required":        "AI required",
}

// selectInfoFields orders attrs for display and formats them. limit 0 means
// no cap. Without includeDebug, identifiers, paths and long values are
// counted as hidden instead of shown.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	ordered := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		switch attr.key {
		case "", FieldRunID, FieldStage, FieldComponent:
			continue
		}
		ordered = append(ordered, attr)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, iok := infoRank[ordered[i].key]
		rj, jok := infoRank[ordered[j].key]
		switch {
		case iok && jok:
			return ri < rj
		default:
			return iok && !jok
		}
	})

	var fields []infoField
	hidden := 0
	for _, attr := range ordered {
		value := displayValue(attr.key, attr.value)
		switch {
		case !includeDebug && debugOnly(attr.key):
			hidden++
		case !includeDebug && len(value) > maxInfoValueLen && attr.key != "error":
			hidden++
		case limit > 0 && len(fields) >= limit:
			hidden++
		default:
			fields = append(fields, infoField{label: labelFor(attr.key), value: value})
		}
	}
	return fields, hidden
}

func displayValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case v.Kind() == slog.KindDuration:
		d := v.Duration()
		if d < time.Second {
			return d.Round(time.Millisecond).String()
		}
		return d.Round(100 * time.Millisecond).String()
	case key == FieldProgressPercent && v.Kind() == slog.KindFloat64:
		return fmt.Sprintf("%.1f%%", v.Float64())
	case key == "cps" && v.Kind() == slog.KindFloat64:
		return fmt.Sprintf("%.1f", v.Float64())
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" {
		value = strings.TrimSpace(value)
		if len(value) > maxErrorValueLen {
			value = value[:maxErrorValueLen] + "..."
		}
	}
	return value
}

func debugOnly(key string) bool {
	switch key {
	case FieldCorrelationID, FieldSessionID, "prompt", "raw_response", "prompt_chars":
		return true
	}
	return strings.HasSuffix(key, "_id") || strings.Contains(key, "_path")
}

// labelFor turns "batch_size" into "Batch Size" unless a fixed label exists.
func labelFor(key string) string {
	if label, ok := infoLabels[key]; ok {
		return label
	}
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	for i, word := range words {
		word = strings.ToLower(word)
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
