package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/readability"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/subtitles"
)

const (
	DefaultBatchSize     = 5
	DefaultContextWindow = 2
)

// Outcome describes how a run ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeFailed    Outcome = "failed"
)

// Progress is reported after every state change of a batch.
type Progress struct {
	Processed   int
	Total       int
	Applied     int
	Failed      int
	Suggestions []readability.Suggestion
}

// ProgressFunc receives progress snapshots. It runs on the coordinator
// goroutine and must not block for long.
type ProgressFunc func(Progress)

// Report is the final state of a run.
type Report struct {
	Outcome     Outcome                  `json:"outcome"`
	Processed   int                      `json:"processed"`
	Total       int                      `json:"total"`
	Applied     int                      `json:"applied"`
	Failed      int                      `json:"failed"`
	Err         error                    `json:"-"`
	Suggestions []readability.Suggestion `json:"suggestions"`
}

// Coordinator runs AI rewrite batches sequentially.
type Coordinator struct {
	oracle        Oracle
	batchSize     int
	contextWindow int
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBatchSize sets how many targets go into one oracle call.
func WithBatchSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithContextWindow sets how many neighbors on each side accompany a target.
func WithContextWindow(n int) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.contextWindow = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for AppliedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator builds a coordinator around oracle.
func NewCoordinator(oracle Oracle, opts ...Option) *Coordinator {
	c := &Coordinator{
		oracle:        oracle,
		batchSize:     DefaultBatchSize,
		contextWindow: DefaultContextWindow,
		logger:        logging.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "rewrite")
	return c
}

var errNoRevision = errors.New("no rewrite returned for segment")

// Run processes the AI-tier suggestions against doc. Cancellation of ctx is
// observed only between batches; the batch in flight always completes. The
// first failed batch ends the run and earlier batches stay applied.
func (c *Coordinator) Run(ctx context.Context, doc *subtitles.Document, suggestions []readability.Suggestion, progress ProgressFunc) Report {
	items := make([]readability.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Tier == readability.TierAI && s.Status == readability.StatusPending {
			items = append(items, s)
		}
	}
	report := Report{Outcome: OutcomeCompleted, Total: len(items)}
	emit := func() {
		if progress == nil {
			return
		}
		progress(Progress{
			Processed:   report.Processed,
			Total:       report.Total,
			Applied:     report.Applied,
			Failed:      report.Failed,
			Suggestions: append([]readability.Suggestion(nil), items...),
		})
	}
	sampler := logging.NewProgressSampler(10)
	c.logger.Info("rewrite run started",
		logging.Int("suggestions", report.Total),
		logging.Int("batch_size", c.batchSize),
		logging.Int("context_window", c.contextWindow),
	)

	for start := 0; start < len(items); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			report.Outcome = OutcomeCanceled
			c.logger.Info("rewrite run canceled",
				logging.Int("processed", report.Processed),
				logging.Int("total", report.Total),
			)
			break
		}
		end := min(start+c.batchSize, len(items))
		batch := items[start:end]
		for i := range batch {
			batch[i].Status = readability.StatusProcessing
		}
		emit()

		if err := c.runBatch(ctx, doc, batch, &report); err != nil {
			report.Outcome = OutcomeFailed
			report.Err = err
			report.Processed += len(batch)
			logging.ErrorWithContext(c.logger, "rewrite batch failed", "rewrite_batch_failed",
				logging.Int("batch_start", start),
				logging.Int("batch_size", len(batch)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the provider credentials and quota, then re-run analysis"),
			)
			emit()
			break
		}
		report.Processed += len(batch)
		percent := float64(report.Processed) / float64(report.Total) * 100
		if sampler.ShouldLog(percent, "rewrite") {
			c.logger.Info("rewrite progress",
				logging.Int("processed", report.Processed),
				logging.Int("total", report.Total),
				logging.Int("applied", report.Applied),
			)
		}
		emit()
	}

	report.Suggestions = items
	c.logger.Info("rewrite run finished",
		logging.String("outcome", string(report.Outcome)),
		logging.Int("processed", report.Processed),
		logging.Int("applied", report.Applied),
		logging.Int("failed", report.Failed),
	)
	return report
}

// runBatch sends one batch and merges the answer. A non-nil error means the
// oracle call itself failed and every batch member was marked as failed.
func (c *Coordinator) runBatch(ctx context.Context, doc *subtitles.Document, batch []readability.Suggestion, report *Report) error {
	targets := make([]Target, 0, len(batch))
	for i := range batch {
		seg, pos, ok := doc.Lookup(batch[i].SegmentIndex)
		if !ok {
			c.fail(&batch[i], report, fmt.Errorf("segment %s not found", batch[i].SegmentIndex))
			continue
		}
		targets = append(targets, c.target(doc, seg, pos))
	}
	if len(targets) == 0 {
		return nil
	}

	// The oracle call is not interrupted by cancellation.
	revisions, err := c.oracle.Rewrite(context.WithoutCancel(ctx), targets)
	if err != nil {
		for i := range batch {
			if batch[i].Status == readability.StatusProcessing {
				c.fail(&batch[i], report, err)
			}
		}
		return err
	}

	byID := make(map[string]Revision, len(revisions))
	for _, rev := range revisions {
		id := strings.TrimSpace(rev.ID)
		if _, dup := byID[id]; dup {
			continue
		}
		byID[id] = rev
	}
	for i := range batch {
		s := &batch[i]
		if s.Status != readability.StatusProcessing {
			continue
		}
		rev, ok := byID[s.SegmentIndex]
		if !ok {
			c.fail(s, report, errNoRevision)
			continue
		}
		delete(byID, s.SegmentIndex)
		c.apply(doc, s, rev, report)
	}
	for id := range byID {
		logging.WarnWithContext(c.logger, "rewrite returned unknown segment", "rewrite_unknown_id",
			logging.String(logging.FieldSegment, id),
			logging.String(logging.FieldImpact, "revision ignored"),
		)
	}
	return nil
}

func (c *Coordinator) target(doc *subtitles.Document, seg subtitles.Segment, pos int) Target {
	window := doc.Window(pos, c.contextWindow, c.contextWindow)
	entries := make([]ContextEntry, 0, len(window))
	for _, neighbor := range window {
		entries = append(entries, ContextEntry{ID: neighbor.Index, Text: neighbor.Text(), Timestamp: neighbor.Timestamp})
	}
	return Target{
		TargetID:    seg.Index,
		CurrentText: seg.Text(),
		CurrentCPS:  readability.Measure(seg).CPS,
		Timestamp:   seg.Timestamp,
		Context:     entries,
	}
}

// apply writes one revision into the document. A timestamp is only taken
// when it parses and has start before end; otherwise the timing is kept.
func (c *Coordinator) apply(doc *subtitles.Document, s *readability.Suggestion, rev Revision, report *Report) {
	text := strings.TrimSpace(rev.AfterText)
	if text == "" {
		c.fail(s, report, fmt.Errorf("empty rewrite for segment %s", s.SegmentIndex))
		return
	}
	timestamp := ""
	if start, end, ok := subtitles.ParseRange(rev.AfterTimestamp); ok && start < end {
		timestamp = subtitles.FormatRange(start, end)
	} else if strings.TrimSpace(rev.AfterTimestamp) != "" {
		c.logger.Debug("rewrite timestamp rejected",
			logging.String(logging.FieldSegment, s.SegmentIndex),
			logging.String("after_timestamp", rev.AfterTimestamp),
		)
	}
	if !doc.Replace(s.SegmentIndex, text, timestamp) {
		c.fail(s, report, fmt.Errorf("segment %s not found", s.SegmentIndex))
		return
	}
	seg, _, _ := doc.Lookup(s.SegmentIndex)
	s.AfterText = text
	s.AfterTimestamp = seg.Timestamp
	s.Status = readability.StatusApplied
	s.AppliedAt = c.now()
	report.Applied++
}

func (c *Coordinator) fail(s *readability.Suggestion, report *Report, err error) {
	s.Status = readability.StatusError
	s.Error = err.Error()
	report.Failed++
}
