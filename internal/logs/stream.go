package logs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/api"
)

const (
	defaultPageSize = 200
	fileFollowWait  = time.Second
)

// ErrFiltersRequireServer is returned when filters were requested but only
// the log file is reachable.
var ErrFiltersRequireServer = errors.New("log filters require a running server")

// Options controls Stream.
type Options struct {
	Lines     int
	Follow    bool
	Component string
	RunID     string
}

func (o Options) filtered() bool {
	return strings.TrimSpace(o.Component) != "" || strings.TrimSpace(o.RunID) != ""
}

// Stream emits events from the server when one answers and falls back to
// lines from the log file at path. It reports whether anything was emitted.
// Following ends when ctx is done.
func Stream(ctx context.Context, client *Client, path string, opts Options, onEvent func(api.LogEvent), onLine func(string)) (bool, error) {
	printed, err := streamServer(ctx, client, opts, onEvent)
	if err == nil || !IsUnavailable(err) {
		return printed, ignoreDone(ctx, err)
	}
	if opts.filtered() {
		return false, fmt.Errorf("%w: %w", ErrFiltersRequireServer, ErrUnavailable)
	}
	printed, err = streamFile(ctx, path, opts, onLine)
	return printed, ignoreDone(ctx, err)
}

func streamServer(ctx context.Context, client *Client, opts Options, onEvent func(api.LogEvent)) (bool, error) {
	query := Query{
		Limit:     opts.Lines,
		Tail:      true,
		Component: opts.Component,
		RunID:     opts.RunID,
	}
	if query.Limit <= 0 {
		query.Limit = defaultPageSize
	}

	printed := false
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			return printed, err
		}
		for _, evt := range resp.Events {
			if onEvent != nil {
				onEvent(evt)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		query.Since = resp.Next
		query.Limit = defaultPageSize
		query.Tail = false
		query.Follow = true
	}
}

func streamFile(ctx context.Context, path string, opts Options, onLine func(string)) (bool, error) {
	tail := TailOptions{Offset: -1, Limit: max(opts.Lines, 0), Follow: opts.Follow, Wait: fileFollowWait}
	if tail.Limit == 0 {
		tail.Offset = 0
	}

	printed := false
	for {
		result, err := Tail(ctx, path, tail)
		if err != nil {
			return printed, err
		}
		for _, line := range result.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		if err := ctx.Err(); err != nil {
			return printed, err
		}
		tail.Offset = result.Offset
		tail.Limit = 0
	}
}

func ignoreDone(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
