package workbench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/ledger"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/readability"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/rewrite"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/subtitles"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/textutil"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/translation"
)

// Settings carries the tuning knobs a session applies to every run.
type Settings struct {
	Thresholds    readability.Thresholds
	BatchSize     int
	ContextWindow int
}

// DefaultSettings returns the stock thresholds and batch shape.
func DefaultSettings() Settings {
	return Settings{
		Thresholds:    readability.DefaultThresholds(),
		BatchSize:     rewrite.DefaultBatchSize,
		ContextWindow: rewrite.DefaultContextWindow,
	}
}

// RunRecorder persists run history. *ledger.Store satisfies it.
type RunRecorder interface {
	StartRun(ctx context.Context, run ledger.Run) error
	UpdateProgress(ctx context.Context, id string, processed, total, tokens int) error
	FinishRun(ctx context.Context, run ledger.Run) error
}

// Session owns one loaded subtitle file and at most one background run.
// All methods are safe for concurrent use.
type Session struct {
	settings Settings
	service  *translation.Service
	recorder RunRecorder
	logger   *slog.Logger
	root     context.Context
	newID    func() string
	now      func() time.Time

	mu       sync.Mutex
	fileName string
	doc      *subtitles.Document
	analysis *readability.Analysis
	run      *activeRun
	last     *RunStatus
}

type activeRun struct {
	status RunStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithService enables the AI operations. Without it optimize, translate and
// title analysis report a configuration error.
func WithService(service *translation.Service) Option {
	return func(s *Session) {
		s.service = service
	}
}

// WithRecorder stores run history.
func WithRecorder(recorder RunRecorder) Option {
	return func(s *Session) {
		s.recorder = recorder
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession builds an empty session. Background runs derive their context
// from ctx, so cancelling it stops every run at its next checkpoint.
func NewSession(ctx context.Context, settings Settings, opts ...Option) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Session{
		settings: settings,
		logger:   logging.NewNop(),
		root:     ctx,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = logging.NewComponentLogger(s.logger, "workbench")
	return s
}

// LoadResult describes a freshly loaded file.
type LoadResult struct {
	FileName       string `json:"fileName"`
	Segments       int    `json:"segments"`
	Resumed        int    `json:"resumed"`
	SuggestedTitle string `json:"suggestedTitle,omitempty"`
}

// Load replaces the current file. Segments without Chinese text count as
// already translated so a partial file resumes where it stopped.
func (s *Session) Load(name, raw string) (LoadResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "subtitle.srt"
	}
	doc := subtitles.ParseDocument(raw)
	if doc.Len() == 0 {
		return LoadResult{}, services.Wrap(services.ErrValidation, "workbench", "load", "no subtitle blocks found in "+name, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil {
		return LoadResult{}, errBusy(s.run.status.Kind)
	}
	resumed := translation.MarkResumed(doc)
	s.fileName = name
	s.doc = doc
	s.analysis = nil
	s.last = nil

	result := LoadResult{
		FileName:       name,
		Segments:       doc.Len(),
		Resumed:        resumed,
		SuggestedTitle: textutil.ExtractChineseTitle(name),
	}
	s.logger.Info("subtitle file loaded",
		logging.String("file", name),
		logging.Int("segments", result.Segments),
		logging.Int("resumed", resumed),
	)
	return result, nil
}

// Analyze classifies the current segments. The new suggestion list replaces
// the previous one.
func (s *Session) Analyze() (readability.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return readability.Analysis{}, errNoFile
	}
	if s.run != nil {
		return readability.Analysis{}, errBusy(s.run.status.Kind)
	}
	analysis := readability.Analyze(s.doc.Snapshot(), s.settings.Thresholds)
	s.analysis = &analysis
	s.logger.Info("readability analysis complete",
		logging.String("file", s.fileName),
		logging.Int("segments", analysis.TotalSegments),
		logging.Int("ignored", analysis.IgnoredCount),
		logging.Int("local", analysis.LocalFixCount),
		logging.Int("ai_required", analysis.AIRequiredCount),
	)
	return cloneAnalysis(analysis), nil
}

// FixLocal applies the timing fix to every pending local suggestion. It runs
// synchronously and analyzes first when no analysis exists.
func (s *Session) FixLocal(ctx context.Context) (readability.FixReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return readability.FixReport{}, errNoFile
	}
	if s.run != nil {
		return readability.FixReport{}, errBusy(s.run.status.Kind)
	}
	if s.analysis == nil {
		analysis := readability.Analyze(s.doc.Snapshot(), s.settings.Thresholds)
		s.analysis = &analysis
	}

	pending := make([]readability.Suggestion, 0, len(s.analysis.LocalSuggestions))
	for _, sug := range s.analysis.LocalSuggestions {
		if sug.Status == readability.StatusPending {
			pending = append(pending, sug)
		}
	}
	started := s.now()
	report := readability.FixLocal(s.doc, pending, s.settings.Thresholds)
	stamp := s.now()
	byID := make(map[string]readability.Suggestion, len(report.Suggestions))
	for _, sug := range report.Suggestions {
		if sug.Status == readability.StatusApplied {
			sug.AppliedAt = stamp
		}
		byID[sug.ID] = sug
	}
	for i, sug := range s.analysis.LocalSuggestions {
		if updated, ok := byID[sug.ID]; ok {
			s.analysis.LocalSuggestions[i] = updated
		}
	}

	run := ledger.Run{
		ID:         s.newID(),
		Kind:       ledger.KindFix,
		Source:     s.fileName,
		Processed:  len(pending),
		Total:      len(pending),
		Outcome:    ledger.OutcomeCompleted,
		StartedAt:  started,
		FinishedAt: stamp,
	}
	s.record(ctx, run)
	s.last = &RunStatus{
		ID:         run.ID,
		Kind:       run.Kind,
		Source:     run.Source,
		State:      run.Outcome,
		Processed:  len(pending),
		Total:      len(pending),
		Applied:    report.Applied,
		StartedAt:  started,
		FinishedAt: stamp,
	}
	s.logger.Info("local timing fix applied",
		logging.String("file", s.fileName),
		logging.Int("applied", report.Applied),
		logging.Int("skipped", report.Skipped),
	)
	return report, nil
}

// AnalyzeTitle asks the provider for the title brief used by translation.
func (s *Session) AnalyzeTitle(ctx context.Context, title string) (translation.TitleAnalysis, error) {
	if s.service == nil {
		return translation.TitleAnalysis{}, errNoProvider
	}
	analysis, _, err := s.service.AnalyzeTitle(ctx, title)
	return analysis, err
}

// StartOptimize launches a background rewrite of the AI-tier suggestions.
func (s *Session) StartOptimize() (RunStatus, error) {
	if s.service == nil {
		return RunStatus{}, errNoProvider
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return RunStatus{}, errNoFile
	}
	if s.run != nil {
		return RunStatus{}, errBusy(s.run.status.Kind)
	}
	if s.analysis == nil {
		analysis := readability.Analyze(s.doc.Snapshot(), s.settings.Thresholds)
		s.analysis = &analysis
	}

	rewriter := s.service.Rewriter()
	coordinator := rewrite.NewCoordinator(rewriter,
		rewrite.WithBatchSize(s.settings.BatchSize),
		rewrite.WithContextWindow(s.settings.ContextWindow),
		rewrite.WithLogger(s.logger),
		rewrite.WithClock(s.now),
	)
	suggestions := append([]readability.Suggestion(nil), s.analysis.AIRequiredSuggestions...)
	doc := s.doc
	total := 0
	for _, sug := range suggestions {
		if sug.Status == readability.StatusPending {
			total++
		}
	}

	ctx, run := s.begin(ledger.KindOptimize, total)
	go func() {
		report := coordinator.Run(ctx, doc, suggestions, func(p rewrite.Progress) {
			s.mu.Lock()
			run.status.Processed = p.Processed
			run.status.Applied = p.Applied
			run.status.Failed = p.Failed
			run.status.Tokens = rewriter.Tokens()
			s.mergeSuggestions(p.Suggestions)
			s.mu.Unlock()
			s.progress(ctx, run.status.ID, p.Processed, p.Total, rewriter.Tokens())
		})
		s.mu.Lock()
		s.mergeSuggestions(report.Suggestions)
		run.status.Processed = report.Processed
		run.status.Applied = report.Applied
		run.status.Failed = report.Failed
		run.status.Tokens = rewriter.Tokens()
		s.mu.Unlock()
		s.finish(run, report.Outcome, report.Err)
	}()
	return run.status, nil
}

// StartTranslate analyzes title and then translates every pending segment in
// the background.
func (s *Session) StartTranslate(title string) (RunStatus, error) {
	if s.service == nil {
		return RunStatus{}, errNoProvider
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return RunStatus{}, errNoFile
	}
	if s.run != nil {
		return RunStatus{}, errBusy(s.run.status.Kind)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = textutil.ExtractChineseTitle(s.fileName)
	}
	if title == "" {
		return RunStatus{}, services.Wrap(services.ErrValidation, "workbench", "translate", "a title is required to translate", nil)
	}

	doc := s.doc
	service := s.service
	ctx, run := s.begin(ledger.KindTranslate, doc.Len())
	run.status.Processed = translation.Translated(doc)
	run.status.Title = title
	go func() {
		analysis, tokens, err := service.AnalyzeTitle(context.WithoutCancel(ctx), title)
		if err != nil {
			s.finish(run, rewrite.OutcomeFailed, err)
			return
		}
		s.mu.Lock()
		run.status.Tokens = tokens
		run.status.TranslatedTitle = analysis.TranslatedTitle
		s.mu.Unlock()

		report, _ := service.Translate(ctx, doc, analysis, func(p translation.Progress) {
			s.mu.Lock()
			run.status.Processed = p.Translated
			run.status.Total = p.Total
			run.status.Tokens = tokens + p.Tokens
			s.mu.Unlock()
			s.progress(ctx, run.status.ID, p.Translated, p.Total, tokens+p.Tokens)
		})
		s.mu.Lock()
		run.status.Processed = report.Translated
		run.status.Tokens = tokens + report.Tokens
		s.mu.Unlock()
		s.finish(run, report.Outcome, report.Err)
	}()
	return run.status, nil
}

// Cancel asks the active run to stop at its next checkpoint. It reports
// whether a run was active.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return false
	}
	s.run.status.CancelRequested = true
	s.run.cancel()
	s.logger.Info("run cancellation requested",
		logging.String(logging.FieldRunID, s.run.status.ID),
		logging.String("kind", string(s.run.status.Kind)),
	)
	return true
}

// Wait blocks until the active run finishes or ctx ends and returns the final
// status. With no active run it returns the last finished status.
func (s *Session) Wait(ctx context.Context) (RunStatus, error) {
	s.mu.Lock()
	run := s.run
	last := s.last
	s.mu.Unlock()
	if run == nil {
		if last == nil {
			return RunStatus{}, services.Wrap(services.ErrNotFound, "workbench", "wait", "no run has been started", nil)
		}
		return *last, nil
	}
	select {
	case <-run.done:
	case <-ctx.Done():
		return RunStatus{}, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return run.status, nil
}

// Status returns a point-in-time view of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{FileName: s.fileName}
	if s.doc != nil {
		st.Segments = s.doc.Len()
		st.Translated = translation.Translated(s.doc)
	}
	if s.analysis != nil {
		a := cloneAnalysis(*s.analysis)
		st.Analysis = &a
	}
	switch {
	case s.run != nil:
		run := s.run.status
		st.Busy = true
		st.Run = &run
	case s.last != nil:
		run := *s.last
		st.Run = &run
	}
	return st
}

// Segments returns the current segments.
func (s *Session) Segments() []subtitles.Segment {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()
	if doc == nil {
		return nil
	}
	return doc.Snapshot()
}

// Download renders the current document together with its output name. A
// fully translated document is named [Translated], anything else [Partial].
// It is safe to call during a run and returns the state so far.
func (s *Session) Download() (string, string, error) {
	s.mu.Lock()
	doc := s.doc
	name := s.fileName
	s.mu.Unlock()
	if doc == nil {
		return "", "", errNoFile
	}
	finished := translation.Translated(doc) == doc.Len()
	return textutil.GenerateFileName(name, finished, 1), doc.Serialize(), nil
}

// begin registers a new active run. Callers hold s.mu.
func (s *Session) begin(kind ledger.Kind, total int) (context.Context, *activeRun) {
	ctx, cancel := context.WithCancel(s.root)
	run := &activeRun{
		status: RunStatus{
			ID:        s.newID(),
			Kind:      kind,
			Source:    s.fileName,
			State:     ledger.OutcomeRunning,
			Total:     total,
			StartedAt: s.now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if s.service != nil {
		run.status.Model = s.service.Model()
	}
	ctx = services.WithRunID(ctx, run.status.ID)
	ctx = services.WithStage(ctx, string(kind))
	s.run = run
	s.last = nil
	s.record(ctx, ledgerRun(run.status))
	s.logger.Info("run started",
		logging.String(logging.FieldRunID, run.status.ID),
		logging.String("kind", string(kind)),
		logging.String("file", s.fileName),
		logging.Int("total", total),
	)
	return ctx, run
}

// finish closes out run with the given outcome and stores it as the last
// status.
func (s *Session) finish(run *activeRun, outcome rewrite.Outcome, err error) {
	s.mu.Lock()
	run.status.State = string(outcome)
	if run.status.State == "" {
		run.status.State = ledger.OutcomeCompleted
	}
	if err != nil {
		run.status.State = ledger.OutcomeFailed
		run.status.Error = err.Error()
	}
	run.status.FinishedAt = s.now()
	final := run.status
	if s.run == run {
		s.run = nil
	}
	s.last = &final
	s.mu.Unlock()

	run.cancel()
	ctx := context.WithoutCancel(s.root)
	if s.recorder != nil {
		if recErr := s.recorder.FinishRun(ctx, ledgerRun(final)); recErr != nil {
			s.logger.Warn("run history update failed",
				logging.String(logging.FieldRunID, final.ID),
				logging.Error(recErr),
				logging.String(logging.FieldEventType, "ledger_finish_failed"),
				logging.String(logging.FieldErrorHint, "check the state directory is writable"),
				logging.String(logging.FieldImpact, "run history will show this run as running"),
			)
		}
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldRunID, final.ID),
		logging.String("kind", string(final.Kind)),
		logging.String("outcome", final.State),
		logging.Int("processed", final.Processed),
		logging.Int("total", final.Total),
		logging.Int("tokens", final.Tokens),
		logging.Duration("duration", final.FinishedAt.Sub(final.StartedAt)),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
		logging.ErrorWithContext(s.logger, "run failed", string(final.Kind)+"_failed", attrs...)
	} else {
		s.logger.Info("run finished", logging.Args(attrs...)...)
	}
	close(run.done)
}

func (s *Session) progress(ctx context.Context, id string, processed, total, tokens int) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.UpdateProgress(context.WithoutCancel(ctx), id, processed, total, tokens); err != nil {
		s.logger.Debug("run progress not recorded", logging.String(logging.FieldRunID, id), logging.Error(err))
	}
}

func (s *Session) record(ctx context.Context, run ledger.Run) {
	if s.recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.recorder.StartRun(ctx, run); err != nil {
		s.logger.Warn("run history insert failed",
			logging.String(logging.FieldRunID, run.ID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ledger_start_failed"),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
			logging.String(logging.FieldImpact, "run will be missing from history"),
		)
		return
	}
	if run.Outcome != ledger.OutcomeRunning {
		if err := s.recorder.FinishRun(ctx, run); err != nil {
			s.logger.Warn("run history update failed", logging.String(logging.FieldRunID, run.ID), logging.Error(err))
		}
	}
}

func ledgerRun(st RunStatus) ledger.Run {
	return ledger.Run{
		ID:         st.ID,
		Kind:       st.Kind,
		Source:     st.Source,
		Model:      st.Model,
		Processed:  st.Processed,
		Total:      st.Total,
		Tokens:     st.Tokens,
		Outcome:    st.State,
		Error:      st.Error,
		StartedAt:  st.StartedAt,
		FinishedAt: st.FinishedAt,
	}
}

// mergeSuggestions copies run results into the stored analysis. Callers hold
// s.mu. Suggestions from a discarded analysis are ignored.
func (s *Session) mergeSuggestions(updated []readability.Suggestion) {
	if s.analysis == nil || len(updated) == 0 {
		return
	}
	byID := make(map[string]readability.Suggestion, len(updated))
	for _, sug := range updated {
		byID[sug.ID] = sug
	}
	for i, sug := range s.analysis.AIRequiredSuggestions {
		if next, ok := byID[sug.ID]; ok {
			s.analysis.AIRequiredSuggestions[i] = next
		}
	}
}

func cloneAnalysis(a readability.Analysis) readability.Analysis {
	a.LocalSuggestions = append([]readability.Suggestion(nil), a.LocalSuggestions...)
	a.AIRequiredSuggestions = append([]readability.Suggestion(nil), a.AIRequiredSuggestions...)
	return a
}

var (
	errNoFile     = services.Wrap(services.ErrValidation, "workbench", "", "no subtitle file loaded", nil)
	errNoProvider = services.Wrap(services.ErrConfiguration, "workbench", "", "no AI provider configured", nil)
)

func errBusy(kind ledger.Kind) error {
	return services.Wrap(services.ErrBusy, "workbench", "", fmt.Sprintf("a %s run is already active", kind), nil)
}

// IsBusy reports whether err came from a conflicting run.
func IsBusy(err error) bool {
	return errors.Is(err, services.ErrBusy)
}
