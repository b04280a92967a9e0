package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/config"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/ledger"
)

func openTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = ""
	store, err := ledger.Open(&cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := store.StartRun(ctx, ledger.Run{
		ID:        "run-1",
		Kind:      ledger.KindOptimize,
		Source:    "ep01.srt",
		Model:     "gemini-3-flash-preview",
		Total:     10,
		StartedAt: started,
	}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.UpdateProgress(ctx, "run-1", 5, 10, 120); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Outcome != ledger.OutcomeRunning || run.Processed != 5 || run.Tokens != 120 {
		t.Fatalf("unexpected running state: %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Fatalf("started_at not preserved: %v", run.StartedAt)
	}

	finished := started.Add(90 * time.Second)
	if err := store.FinishRun(ctx, ledger.Run{
		ID:         "run-1",
		Processed:  5,
		Total:      10,
		Tokens:     240,
		Outcome:    ledger.OutcomeCanceled,
		FinishedAt: finished,
	}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Outcome != ledger.OutcomeCanceled || run.Duration() != 90*time.Second {
		t.Fatalf("unexpected finished run: %+v", run)
	}
	if err := store.UpdateProgress(ctx, "run-1", 6, 10, 0); !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("expected finished run to reject progress, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.StartRun(ctx, ledger.Run{
			ID:        id,
			Kind:      ledger.KindTranslate,
			StartedAt: base.Add(time.Duration(i) * 100 * time.Millisecond),
		}); err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	all, err := store.ListRuns(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all runs, got %d (%v)", len(all), err)
	}
}

func TestMarkInterrupted(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	if err := store.StartRun(ctx, ledger.Run{ID: "stale", Kind: ledger.KindOptimize}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	n, err := store.MarkInterrupted(ctx)
	if err != nil || n != 1 {
		t.Fatalf("MarkInterrupted = %d, %v", n, err)
	}
	run, err := store.GetRun(ctx, "stale")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Outcome != ledger.OutcomeInterrupted || run.FinishedAt.IsZero() {
		t.Fatalf("unexpected run after interrupt: %+v", run)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetRun(context.Background(), "nope"); !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestTitleCache(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, ok, err := store.GetTitle(ctx, "斗破苍穹", "m1"); err != nil || ok {
		t.Fatalf("expected cache miss, got ok=%v err=%v", ok, err)
	}
	if err := store.PutTitle(ctx, "斗破苍穹", "m1", `{"translatedTitle":"Đấu Phá Thương Khung"}`); err != nil {
		t.Fatalf("PutTitle: %v", err)
	}
	if err := store.PutTitle(ctx, " 斗破苍穹  ", "m1", `{"translatedTitle":"v2"}`); err != nil {
		t.Fatalf("PutTitle overwrite: %v", err)
	}
	payload, ok, err := store.GetTitle(ctx, "斗破苍穹", "m1")
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if payload != `{"translatedTitle":"v2"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
	if _, ok, _ := store.GetTitle(ctx, "斗破苍穹", "m2"); ok {
		t.Fatal("expected cache to be keyed by model")
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := ledger.OpenPath(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestMarkInterruptedSkipsWhenShared(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	first, err := ledger.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer first.Close()
	if err := first.StartRun(ctx, ledger.Run{ID: "live", Kind: ledger.KindTranslate}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	second, err := ledger.OpenPath(path)
	if err != nil {
		t.Fatalf("second OpenPath: %v", err)
	}
	defer second.Close()
	if n, err := second.MarkInterrupted(ctx); err != nil || n != 0 {
		t.Fatalf("MarkInterrupted on shared ledger = %d, %v", n, err)
	}
	run, err := first.GetRun(ctx, "live")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Outcome != ledger.OutcomeRunning {
		t.Fatalf("expected live run untouched, got %q", run.Outcome)
	}
}
