package workbench_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/ledger"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/readability"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/subtitles"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/translation"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/workbench"
)

// scriptedProvider answers title, translate and rewrite prompts by shape.
type scriptedProvider struct {
	mu      sync.Mutex
	calls   int
	rewrite func(call int) error
}

func (p *scriptedProvider) Name() string  { return "fake" }
func (p *scriptedProvider) Model() string { return "fake-model" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.Request) (llm.Completion, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()

	switch {
	case strings.HasPrefix(req.User, "Phân tích tiêu đề"):
		return llm.Completion{Content: `{"translatedTitle":"Đấu Phá Thương Khung","tone":"Nghiêm túc"}`, Tokens: 7}, nil
	case gjson.Get(req.User, "targets").Exists():
		if p.rewrite != nil {
			if err := p.rewrite(call); err != nil {
				return llm.Completion{}, err
			}
		}
		var parts []string
		gjson.Get(req.User, "targets").ForEach(func(_, item gjson.Result) bool {
			parts = append(parts, fmt.Sprintf(`{"id":%q,"afterText":"ngắn","afterTimestamp":""}`, item.Get("targetId").String()))
			return true
		})
		return llm.Completion{Content: "[" + strings.Join(parts, ",") + "]", Tokens: 5}, nil
	default:
		_, data, _ := strings.Cut(req.User, "Dữ liệu: ")
		var parts []string
		gjson.Parse(data).ForEach(func(_, item gjson.Result) bool {
			parts = append(parts, fmt.Sprintf(`{"id":%q,"translated":%q}`, item.Get("id").String(), "vi:"+item.Get("text").String()))
			return true
		})
		return llm.Completion{Content: "[" + strings.Join(parts, ",") + "]", Tokens: 3}, nil
	}
}

type fakeRecorder struct {
	mu       sync.Mutex
	started  []ledger.Run
	finished []ledger.Run
	updates  int
}

func (r *fakeRecorder) StartRun(_ context.Context, run ledger.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, run)
	return nil
}

func (r *fakeRecorder) UpdateProgress(context.Context, string, int, int, int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	return nil
}

func (r *fakeRecorder) FinishRun(_ context.Context, run ledger.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, run)
	return nil
}

func (r *fakeRecorder) snapshot() ([]ledger.Run, []ledger.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ledger.Run(nil), r.started...), append([]ledger.Run(nil), r.finished...)
}

// readabilitySRT has one ignored, one local and two AI-tier segments.
func readabilitySRT() string {
	segments := []subtitles.Segment{
		{Index: "1", Timestamp: "00:00:00,000 --> 00:00:01,000", OriginalText: strings.Repeat("a", 10)},
		{Index: "2", Timestamp: "00:00:02,000 --> 00:00:03,000", OriginalText: strings.Repeat("b", 30)},
		{Index: "3", Timestamp: "00:00:10,000 --> 00:00:11,000", OriginalText: strings.Repeat("c", 50)},
		{Index: "4", Timestamp: "00:00:12,000 --> 00:00:13,000", OriginalText: strings.Repeat("d", 60)},
	}
	return subtitles.Serialize(segments)
}

func newService(p llm.Provider) *translation.Service {
	return translation.NewService(p, translation.WithSleeper(func(context.Context, time.Duration) error { return nil }))
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoadRejectsEmptyInput(t *testing.T) {
	s := workbench.NewSession(context.Background(), workbench.DefaultSettings())
	if _, err := s.Load("empty.srt", "\n\n  \n"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.Analyze(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without a file, got %v", err)
	}
	if _, _, err := s.Download(); err == nil {
		t.Fatal("expected download error without a file")
	}
}

func TestAnalyzeAndFixLocal(t *testing.T) {
	recorder := &fakeRecorder{}
	s := workbench.NewSession(context.Background(), workbench.DefaultSettings(), workbench.WithRecorder(recorder))
	loaded, err := s.Load("ep1.srt", readabilitySRT())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Segments != 4 || loaded.Resumed != 4 {
		t.Fatalf("unexpected load result: %+v", loaded)
	}

	analysis, err := s.Analyze()
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.IgnoredCount != 1 || analysis.LocalFixCount != 1 || analysis.AIRequiredCount != 2 {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}

	report, err := s.FixLocal(context.Background())
	if err != nil {
		t.Fatalf("FixLocal: %v", err)
	}
	if report.Applied != 1 || report.Skipped != 0 {
		t.Fatalf("unexpected fix report: %+v", report)
	}
	if got := s.Segments()[1].Timestamp; got != "00:00:02,000 --> 00:00:03,500" {
		t.Fatalf("fixed timestamp = %q", got)
	}

	status := s.Status()
	if status.Busy || status.Run == nil || status.Run.Kind != ledger.KindFix || status.Run.State != ledger.OutcomeCompleted {
		t.Fatalf("unexpected status: %+v", status.Run)
	}
	if status.Analysis.LocalSuggestions[0].Status != readability.StatusApplied {
		t.Fatalf("local suggestion not marked applied: %+v", status.Analysis.LocalSuggestions[0])
	}
	started, finished := recorder.snapshot()
	if len(started) != 1 || len(finished) != 1 || finished[0].Kind != ledger.KindFix {
		t.Fatalf("unexpected ledger calls: %+v %+v", started, finished)
	}

	name, content, err := s.Download()
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if name != "[Translated] ep1.srt" {
		t.Fatalf("download name = %q", name)
	}
	if !strings.Contains(content, "00:00:02,000 --> 00:00:03,500") {
		t.Fatalf("download missing fixed timing:\n%s", content)
	}
}

func TestNewAnalysisReplacesSuggestions(t *testing.T) {
	s := workbench.NewSession(context.Background(), workbench.DefaultSettings())
	if _, err := s.Load("ep1.srt", readabilitySRT()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	first, _ := s.Analyze()
	if _, err := s.FixLocal(context.Background()); err != nil {
		t.Fatalf("FixLocal: %v", err)
	}
	second, _ := s.Analyze()
	if len(second.LocalSuggestions) != 1 {
		t.Fatalf("expected one local suggestion, got %+v", second.LocalSuggestions)
	}
	if second.LocalSuggestions[0].ID == first.LocalSuggestions[0].ID {
		t.Fatal("expected a fresh suggestion after the timing changed")
	}
	if second.LocalSuggestions[0].Status != readability.StatusPending {
		t.Fatalf("fresh suggestion status = %s", second.LocalSuggestions[0].Status)
	}
}

func TestAIOperationsNeedProvider(t *testing.T) {
	s := workbench.NewSession(context.Background(), workbench.DefaultSettings())
	if _, err := s.Load("ep1.srt", readabilitySRT()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.StartOptimize(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("StartOptimize error = %v", err)
	}
	if _, err := s.StartTranslate("斗破苍穹"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("StartTranslate error = %v", err)
	}
	if s.Cancel() {
		t.Fatal("Cancel reported an active run")
	}
}

func TestOptimizeAppliesRewrites(t *testing.T) {
	recorder := &fakeRecorder{}
	s := workbench.NewSession(context.Background(), workbench.DefaultSettings(),
		workbench.WithService(newService(&scriptedProvider{})),
		workbench.WithRecorder(recorder),
	)
	if _, err := s.Load("ep1.srt", readabilitySRT()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.Analyze(); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	started, err := s.StartOptimize()
	if err != nil {
		t.Fatalf("StartOptimize: %v", err)
	}
	if started.Total != 2 || started.Kind != ledger.KindOptimize {
		t.Fatalf("unexpected start status: %+v", started)
	}

	final, err := s.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if final.State != ledger.OutcomeCompleted || final.Applied != 2 || final.Tokens != 5 {
		t.Fatalf("unexpected final status: %+v", final)
	}
	segments := s.Segments()
	if segments[2].TranslatedText != "ngắn" || segments[3].TranslatedText != "ngắn" {
		t.Fatalf("rewrites not applied: %+v", segments)
	}
	status := s.Status()
	for _, sug := range status.Analysis.AIRequiredSuggestions {
		if sug.Status != readability.StatusApplied {
			t.Fatalf("suggestion %s status = %s", sug.SegmentIndex, sug.Status)
		}
	}
	_, finished := recorder.snapshot()
	if len(finished) != 1 || finished[0].Outcome != ledger.OutcomeCompleted || finished[0].Model != "fake-model" {
		t.Fatalf("unexpected ledger finish: %+v", finished)
	}
}

func TestCancelStopsAtBatchBoundary(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	provider := &scriptedProvider{rewrite: func(call int) error {
		if call == 1 {
			close(entered)
			<-release
		}
		return nil
	}}
	settings := workbench.DefaultSettings()
	settings.BatchSize = 1
	s := workbench.NewSession(context.Background(), settings, workbench.WithService(newService(provider)))
	if _, err := s.Load("ep1.srt", readabilitySRT()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.StartOptimize(); err != nil {
		t.Fatalf("StartOptimize: %v", err)
	}
	<-entered

	if _, err := s.StartOptimize(); !workbench.IsBusy(err) {
		t.Fatalf("expected busy error, got %v", err)
	}
	if _, err := s.Load("other.srt", readabilitySRT()); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected busy load, got %v", err)
	}
	if !s.Status().Busy {
		t.Fatal("status should report busy")
	}
	if !s.Cancel() {
		t.Fatal("Cancel found no active run")
	}
	close(release)

	final, err := s.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if final.State != ledger.OutcomeCanceled || final.Processed != 1 || final.Applied != 1 {
		t.Fatalf("unexpected final status: %+v", final)
	}
	if !final.CancelRequested {
		t.Fatal("cancel flag not recorded")
	}
	segments := s.Segments()
	if segments[2].TranslatedText != "ngắn" || segments[3].TranslatedText == "ngắn" {
		t.Fatalf("expected only the in-flight batch applied: %+v", segments)
	}
}

func TestTranslateUsesFileTitle(t *testing.T) {
	srt := subtitles.Serialize([]subtitles.Segment{
		{Index: "1", Timestamp: "00:00:01,000 --> 00:00:03,000", OriginalText: "你好"},
		{Index: "2", Timestamp: "00:00:04,000 --> 00:00:06,000", OriginalText: "Xin chào"},
		{Index: "3", Timestamp: "00:00:07,000 --> 00:00:09,000", OriginalText: "师兄"},
	})
	s := workbench.NewSession(context.Background(), workbench.DefaultSettings(),
		workbench.WithService(newService(&scriptedProvider{})))
	loaded, err := s.Load("[Partial] 斗破苍穹 01.srt", srt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SuggestedTitle != "斗破苍穹" || loaded.Resumed != 1 {
		t.Fatalf("unexpected load result: %+v", loaded)
	}
	if name, _, _ := s.Download(); !strings.HasPrefix(name, "[Partial-2]") {
		t.Fatalf("partial download name = %q", name)
	}

	started, err := s.StartTranslate("")
	if err != nil {
		t.Fatalf("StartTranslate: %v", err)
	}
	if started.Title != "斗破苍穹" || started.Processed != 1 {
		t.Fatalf("unexpected start status: %+v", started)
	}
	final, err := s.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if final.State != ledger.OutcomeCompleted || final.Processed != 3 || final.TranslatedTitle != "Đấu Phá Thương Khung" {
		t.Fatalf("unexpected final status: %+v", final)
	}
	if final.Tokens != 7+3 {
		t.Fatalf("tokens = %d", final.Tokens)
	}

	name, content, err := s.Download()
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if name != "[Translated] 斗破苍穹 01.srt" {
		t.Fatalf("download name = %q", name)
	}
	if !strings.Contains(content, "vi:你好") || !strings.Contains(content, "vi:师兄") {
		t.Fatalf("translations missing:\n%s", content)
	}
}

func TestTranslateNeedsTitle(t *testing.T) {
	s := workbench.NewSession(context.Background(), workbench.DefaultSettings(),
		workbench.WithService(newService(&scriptedProvider{})))
	// The name cleans to nothing, so no fallback title exists.
	if _, err := s.Load("[Partial].srt", readabilitySRT()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.StartTranslate("  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
