package logging

import (
	"context"
	"log/slog"
	"slices"
)

// NoopHandler discards all records.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }

// teeHandler writes each record to every sink whose level accepts it. The
// console and the daily JSON file are the usual pair.
type teeHandler []slog.Handler

func newTeeHandler(sinks ...slog.Handler) slog.Handler {
	sinks = slices.DeleteFunc(slices.Clone(sinks), func(h slog.Handler) bool { return h == nil })
	switch len(sinks) {
	case 0:
		return NoopHandler{}
	case 1:
		return sinks[0]
	}
	return teeHandler(sinks)
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(t, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var first error
	for _, sink := range t {
		if !sink.Enabled(ctx, record.Level) {
			continue
		}
		if err := sink.Handle(ctx, record.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, sink := range t {
		out[i] = sink.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, sink := range t {
		out[i] = sink.WithGroup(name)
	}
	return out
}

// contextHandler stamps every record with the process session ID and, for
// *Context logging calls, the run, stage and request identifiers carried by
// ctx. Keys already bound with With or passed at the call site win.
type contextHandler struct {
	next      slog.Handler
	sessionID string
	bound     map[string]bool
}

func newContextHandler(next slog.Handler, sessionID string) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &contextHandler{next: next, sessionID: sessionID}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if fields := ContextFields(ctx); len(fields) > 0 {
		present := make(map[string]bool, record.NumAttrs())
		record.Attrs(func(attr slog.Attr) bool {
			present[attr.Key] = true
			return true
		})
		for _, field := range fields {
			if !h.bound[field.Key] && !present[field.Key] {
				record.AddAttrs(field)
			}
		}
	}
	if h.sessionID != "" {
		record.AddAttrs(slog.String(FieldSessionID, h.sessionID))
	}
	return h.next.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]bool, len(h.bound)+len(attrs))
	for key := range h.bound {
		bound[key] = true
	}
	for _, attr := range attrs {
		bound[attr.Key] = true
	}
	return &contextHandler{next: h.next.WithAttrs(attrs), sessionID: h.sessionID, bound: bound}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), sessionID: h.sessionID, bound: h.bound}
}

// streamHandler publishes each record to a StreamHub before passing it on.
type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	bound []slog.Attr
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(newLogEvent(record, h.bound))
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &streamHandler{
		next:  h.next.WithAttrs(attrs),
		hub:   h.hub,
		bound: append(slices.Clip(h.bound), attrs...),
	}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub}
}
