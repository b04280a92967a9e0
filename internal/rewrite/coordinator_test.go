package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/readability"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/subtitles"
)

// fastDocument builds n segments that all land in the AI tier.
func fastDocument(n int) *subtitles.Document {
	segments := make([]subtitles.Segment, n)
	for i := range n {
		start := int64(i) * 2_000
		segments[i] = subtitles.Segment{
			Index:        fmt.Sprint(i + 1),
			Timestamp:    subtitles.FormatRange(start, start+500),
			OriginalText: strings.Repeat("字", 30),
		}
	}
	return subtitles.NewDocument(segments)
}

func aiSuggestions(t *testing.T, doc *subtitles.Document) []readability.Suggestion {
	t.Helper()
	analysis := readability.Analyze(doc.Snapshot(), readability.DefaultThresholds())
	if analysis.AIRequiredCount != doc.Len() {
		t.Fatalf("expected every segment in the ai tier, got %d/%d", analysis.AIRequiredCount, doc.Len())
	}
	return analysis.AIRequiredSuggestions
}

// shortener answers every target with a short text, reversed to prove
// matching is by id rather than position.
type shortener struct {
	mu      sync.Mutex
	calls   [][]Target
	failOn  int
	onCall  func(call int)
	timings map[string]string
}

func (s *shortener) Rewrite(_ context.Context, targets []Target) ([]Revision, error) {
	s.mu.Lock()
	s.calls = append(s.calls, targets)
	call := len(s.calls)
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall(call)
	}
	if s.failOn == call {
		return nil, errors.New("429 quota exceeded")
	}
	out := make([]Revision, 0, len(targets))
	for i := len(targets) - 1; i >= 0; i-- {
		out = append(out, Revision{
			ID:             targets[i].TargetID,
			AfterText:      "ngắn " + targets[i].TargetID,
			AfterTimestamp: s.timings[targets[i].TargetID],
		})
	}
	return out, nil
}

func TestRunAppliesAllBatches(t *testing.T) {
	doc := fastDocument(12)
	oracle := &shortener{timings: map[string]string{"3": "00:00:04,000 --> 00:00:05,400", "4": "garbage"}}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var snapshots []Progress
	report := NewCoordinator(oracle, WithClock(func() time.Time { return fixed })).
		Run(context.Background(), doc, aiSuggestions(t, doc), func(p Progress) { snapshots = append(snapshots, p) })

	if report.Outcome != OutcomeCompleted || report.Processed != 12 || report.Applied != 12 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(oracle.calls) != 3 {
		t.Fatalf("expected 3 batches of 5, got %d", len(oracle.calls))
	}
	if len(oracle.calls[2]) != 2 {
		t.Fatalf("last batch size = %d, want 2", len(oracle.calls[2]))
	}
	for _, seg := range doc.Snapshot() {
		if seg.TranslatedText != "ngắn "+seg.Index {
			t.Fatalf("segment %s not rewritten: %q", seg.Index, seg.TranslatedText)
		}
	}
	seg, _, _ := doc.Lookup("3")
	if seg.Timestamp != "00:00:04,000 --> 00:00:05,400" {
		t.Fatalf("valid timestamp not applied: %q", seg.Timestamp)
	}
	seg, _, _ = doc.Lookup("4")
	if seg.Timestamp != subtitles.FormatRange(6_000, 6_500) {
		t.Fatalf("invalid timestamp must keep original timing: %q", seg.Timestamp)
	}
	for _, s := range report.Suggestions {
		if s.Status != readability.StatusApplied || !s.AppliedAt.Equal(fixed) || s.AfterText == s.BeforeText {
			t.Fatalf("suggestion not applied: %+v", s)
		}
	}
	last := snapshots[len(snapshots)-1]
	if last.Processed != 12 || last.Total != 12 {
		t.Fatalf("final progress = %+v", last)
	}
}

func TestRunSendsContextWindow(t *testing.T) {
	doc := fastDocument(6)
	oracle := &shortener{}
	NewCoordinator(oracle, WithBatchSize(1), WithContextWindow(2)).
		Run(context.Background(), doc, aiSuggestions(t, doc), nil)

	first := oracle.calls[0][0]
	if first.TargetID != "1" || len(first.Context) != 2 || first.Context[0].ID != "2" || first.Context[1].ID != "3" {
		t.Fatalf("unexpected context for first target: %+v", first.Context)
	}
	third := oracle.calls[2][0]
	ids := make([]string, 0, len(third.Context))
	for _, c := range third.Context {
		ids = append(ids, c.ID)
	}
	if strings.Join(ids, ",") != "1,2,4,5" {
		t.Fatalf("context ids = %v, want 1,2,4,5", ids)
	}
	// Earlier batches are visible to later context windows.
	if third.Context[0].Text != "ngắn 1" {
		t.Fatalf("context should carry applied rewrite, got %q", third.Context[0].Text)
	}
	if first.CurrentCPS <= readability.AIAboveCPS {
		t.Fatalf("target cps = %v", first.CurrentCPS)
	}
}

func TestRunStopsOnFailureAndKeepsEarlierBatches(t *testing.T) {
	doc := fastDocument(15)
	oracle := &shortener{failOn: 2}
	report := NewCoordinator(oracle).Run(context.Background(), doc, aiSuggestions(t, doc), nil)

	if report.Outcome != OutcomeFailed || report.Err == nil {
		t.Fatalf("expected failed outcome, got %+v", report)
	}
	if len(oracle.calls) != 2 {
		t.Fatalf("run must halt after the failing batch, saw %d calls", len(oracle.calls))
	}
	if report.Applied != 5 || report.Failed != 5 || report.Processed != 10 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	for i, s := range report.Suggestions {
		var want readability.Status
		switch {
		case i < 5:
			want = readability.StatusApplied
		case i < 10:
			want = readability.StatusError
		default:
			want = readability.StatusPending
		}
		if s.Status != want {
			t.Fatalf("suggestion %d status = %s, want %s", i, s.Status, want)
		}
		if want == readability.StatusError && !strings.Contains(s.Error, "quota") {
			t.Fatalf("error message not carried: %q", s.Error)
		}
	}
	seg, _, _ := doc.Lookup("1")
	if seg.TranslatedText != "ngắn 1" {
		t.Fatalf("batch 1 result lost after failure: %q", seg.TranslatedText)
	}
	seg, _, _ = doc.Lookup("6")
	if seg.TranslatedText != "" {
		t.Fatalf("failed batch must not touch segment: %q", seg.TranslatedText)
	}
}

func TestRunCancelsAtBatchBoundary(t *testing.T) {
	doc := fastDocument(15)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var sawCanceled bool
	oracle := &shortener{}
	oracle.onCall = func(call int) {
		if call == 2 {
			cancel()
		}
	}
	oracleCtx := OracleFunc(func(ctx context.Context, targets []Target) ([]Revision, error) {
		revisions, err := oracle.Rewrite(ctx, targets)
		if ctx.Err() != nil {
			sawCanceled = true
		}
		return revisions, err
	})
	report := NewCoordinator(oracleCtx).Run(ctx, doc, aiSuggestions(t, doc), nil)

	if report.Outcome != OutcomeCanceled || report.Err != nil {
		t.Fatalf("expected canceled outcome, got %+v", report)
	}
	if sawCanceled {
		t.Fatal("in-flight batch must not observe cancellation")
	}
	if report.Processed != 10 || report.Total != 15 || report.Applied != 10 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	for _, s := range report.Suggestions[10:] {
		if s.Status != readability.StatusPending {
			t.Fatalf("remaining suggestion status = %s, want pending", s.Status)
		}
	}
}

func TestRunMarksMissingRevisions(t *testing.T) {
	doc := fastDocument(3)
	oracle := OracleFunc(func(_ context.Context, targets []Target) ([]Revision, error) {
		return []Revision{
			{ID: targets[1].TargetID, AfterText: "ok"},
			{ID: "999", AfterText: "stray"},
			{ID: targets[2].TargetID, AfterText: "   "},
		}, nil
	})
	report := NewCoordinator(oracle).Run(context.Background(), doc, aiSuggestions(t, doc), nil)

	if report.Outcome != OutcomeCompleted || report.Applied != 1 || report.Failed != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Suggestions[0].Status != readability.StatusError || report.Suggestions[1].Status != readability.StatusApplied {
		t.Fatalf("unexpected statuses: %+v", report.Suggestions)
	}
	if doc.Len() != 3 {
		t.Fatal("unknown ids must not add segments")
	}
}

func TestRunSkipsNonAISuggestions(t *testing.T) {
	doc := fastDocument(2)
	suggestions := aiSuggestions(t, doc)
	suggestions[0].Tier = readability.TierLocal
	oracle := &shortener{}
	report := NewCoordinator(oracle).Run(context.Background(), doc, suggestions, nil)
	if report.Total != 1 || len(oracle.calls[0]) != 1 {
		t.Fatalf("only ai-tier suggestions should be sent: %+v", report)
	}
}
