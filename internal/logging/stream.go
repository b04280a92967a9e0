package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultStreamCapacity = 512

// LogEvent is one record as served by the HTTP log endpoint.
type LogEvent struct {
	Sequence      uint64
	Timestamp     time.Time
	Level         string
	Message       string
	Component     string
	Stage         string
	RunID         string
	Segment       string
	CorrelationID string
	Fields        map[string]string
	Details       []DetailField
}

// DetailField is one console bullet line.
type DetailField struct {
	Label string
	Value string
}

// StreamHub keeps the most recent events in a ring and lets readers block
// until something newer than their cursor arrives.
type StreamHub struct {
	mu      sync.Mutex
	ring    []LogEvent
	start   int
	size    int
	lastSeq uint64
	changed chan struct{}
}

// NewStreamHub returns a hub holding up to capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = defaultStreamCapacity
	}
	return &StreamHub{ring: make([]LogEvent, capacity), changed: make(chan struct{})}
}

// Publish stores evt, evicting the oldest event when full, and wakes waiting
// readers.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastSeq++
	evt.Sequence = h.lastSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if h.size < len(h.ring) {
		h.ring[(h.start+h.size)%len(h.ring)] = evt
		h.size++
	} else {
		h.ring[h.start] = evt
		h.start = (h.start + 1) % len(h.ring)
	}
	close(h.changed)
	h.changed = make(chan struct{})
}

// Fetch returns up to limit events newer than since and the cursor for the
// next call. With wait set it blocks until an event arrives or ctx ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	for {
		h.mu.Lock()
		events := h.collect(since, limit)
		cursor, changed := h.lastSeq, h.changed
		h.mu.Unlock()

		if len(events) > 0 || !wait {
			return events, cursor, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return nil, cursor, ctx.Err()
		case <-changed:
		}
	}
}

// Tail returns the newest limit events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	skip := 0
	if limit > 0 && limit < h.size {
		skip = h.size - limit
	}
	return h.slice(skip, h.size), h.lastSeq
}

// collect returns up to limit buffered events with Sequence > since.
func (h *StreamHub) collect(since uint64, limit int) []LogEvent {
	if h.size == 0 || since >= h.lastSeq {
		return nil
	}
	oldest := h.lastSeq - uint64(h.size) + 1
	from := 0
	if since >= oldest {
		from = int(since - oldest + 1)
	}
	to := h.size
	if limit > 0 && from+limit < to {
		to = from + limit
	}
	return h.slice(from, to)
}

func (h *StreamHub) slice(from, to int) []LogEvent {
	if from >= to {
		return nil
	}
	out := make([]LogEvent, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, h.ring[(h.start+i)%len(h.ring)])
	}
	return out
}

// newLogEvent flattens record and the attrs bound with With into an event.
// Call-site attrs override bound ones.
func newLogEvent(record slog.Record, bound []slog.Attr) LogEvent {
	evt := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}

	var pairs []kv
	route := func(attr slog.Attr, callSite bool) {
		key := strings.TrimSpace(attr.Key)
		if key == "" {
			return
		}
		value := attrString(attr.Value)
		switch key {
		case FieldComponent:
			evt.Component = value
		case FieldRunID:
			evt.RunID = value
		case FieldStage:
			evt.Stage = value
		case FieldSegment:
			evt.Segment = value
		case FieldCorrelationID:
			evt.CorrelationID = value
		default:
			if evt.Fields == nil {
				evt.Fields = make(map[string]string)
			}
			evt.Fields[key] = value
		}
		if callSite {
			pairs = append(pairs, kv{key: key, value: attr.Value})
		}
	}
	for _, attr := range bound {
		route(attr, false)
	}
	record.Attrs(func(attr slog.Attr) bool {
		route(attr, true)
		return true
	})

	if fields, _ := selectInfoFields(pairs, infoAttrLimit, false); len(fields) > 0 {
		evt.Details = make([]DetailField, len(fields))
		for i, field := range fields {
			evt.Details[i] = DetailField{Label: field.label, Value: field.value}
		}
	}
	return evt
}
