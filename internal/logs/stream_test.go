package logs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/api"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logs"
)

func closedClient(t *testing.T) *logs.Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()
	client, err := logs.NewClient(addr)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestStreamPrefersServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tail") != "1" {
			t.Errorf("first page should request the tail")
		}
		_ = json.NewEncoder(w).Encode(api.LogStreamResponse{
			Events: []api.LogEvent{{Sequence: 1, Message: "from server"}},
			Next:   2,
		})
	}))
	defer srv.Close()
	client, _ := logs.NewClient(srv.URL)

	var events []string
	var lines []string
	printed, err := logs.Stream(context.Background(), client, writeLog(t, "from file\n"), logs.Options{Lines: 5},
		func(evt api.LogEvent) { events = append(events, evt.Message) },
		func(line string) { lines = append(lines, line) },
	)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed || len(events) != 1 || events[0] != "from server" || len(lines) != 0 {
		t.Fatalf("unexpected output events=%v lines=%v", events, lines)
	}
}

func TestStreamFallsBackToFile(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthree\n")
	var lines []string
	printed, err := logs.Stream(context.Background(), closedClient(t), path, logs.Options{Lines: 2}, nil,
		func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !printed || strings.Join(lines, ",") != "two,three" {
		t.Fatalf("unexpected lines %v", lines)
	}

	lines = nil
	if _, err := logs.Stream(context.Background(), nil, path, logs.Options{}, nil,
		func(line string) { lines = append(lines, line) }); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("Lines 0 should print the whole file, got %v", lines)
	}
}

func TestStreamFiltersNeedServer(t *testing.T) {
	_, err := logs.Stream(context.Background(), closedClient(t), writeLog(t, "x\n"), logs.Options{Component: "rewrite"}, nil, nil)
	if !errors.Is(err, logs.ErrFiltersRequireServer) {
		t.Fatalf("expected ErrFiltersRequireServer, got %v", err)
	}
}

func TestStreamFollowsFileUntilCanceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.log")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got atomic.Int32
	done := make(chan error, 1)
	go func() {
		_, err := logs.Stream(ctx, nil, path, logs.Options{Lines: 10, Follow: true}, nil, func(line string) {
			if line == "arrived" {
				got.Add(1)
				cancel()
			}
		})
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	appendLog(t, path, "arrived\n")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stream returned %v after cancel", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not stop")
	}
	if got.Load() != 1 {
		t.Fatalf("expected the appended line once, got %d", got.Load())
	}
}
