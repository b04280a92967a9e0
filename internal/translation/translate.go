package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/rewrite"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/subtitles"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/textutil"
)

var errEmptyTitle = errors.New("title required")

// Progress is reported after every chunk.
type Progress struct {
	Translated int
	Total      int
	Tokens     int
	Requests   int
}

// ProgressFunc receives translation progress.
type ProgressFunc func(Progress)

// Report summarizes a translation run. Translated counts segments with a
// translation, including those marked as resumed.
type Report struct {
	Outcome    rewrite.Outcome
	Translated int
	Total      int
	Tokens     int
	Requests   int
	Err        error
}

// MarkResumed treats segments whose source has no Chinese characters as
// already translated, which lets a partially translated file pick up where it
// stopped. It returns the number of segments marked.
func MarkResumed(doc *subtitles.Document) int {
	marked := 0
	doc.Update(func(segments []subtitles.Segment) {
		for i := range segments {
			if segments[i].TranslatedText != "" || textutil.ContainsChinese(segments[i].OriginalText) {
				continue
			}
			segments[i].TranslatedText = segments[i].OriginalText
			marked++
		}
	})
	return marked
}

// Translated counts segments that already carry a translation.
func Translated(doc *subtitles.Document) int {
	n := 0
	for _, seg := range doc.Snapshot() {
		if seg.TranslatedText != "" {
			n++
		}
	}
	return n
}

// Translate fills in translations for every untranslated segment, a chunk at a
// time. Cancellation is honored between chunks; an in-flight request is
// allowed to finish so its results are kept. The first chunk error stops the
// run, and translations from earlier chunks stay in doc.
func (s *Service) Translate(ctx context.Context, doc *subtitles.Document, analysis TitleAnalysis, progress ProgressFunc) (Report, error) {
	segments := doc.Snapshot()
	report := Report{Total: len(segments)}

	var pending []subtitles.Segment
	for _, seg := range segments {
		if seg.TranslatedText == "" {
			pending = append(pending, seg)
		}
	}
	report.Translated = report.Total - len(pending)

	emit := func() {
		if progress != nil {
			progress(Progress{Translated: report.Translated, Total: report.Total, Tokens: report.Tokens, Requests: report.Requests})
		}
	}

	sampler := logging.NewProgressSampler(10)
	for start := 0; start < len(pending); start += s.chunkSize {
		if ctx.Err() != nil {
			report.Outcome = rewrite.OutcomeCanceled
			s.logger.Info("translation canceled",
				logging.Int("translated", report.Translated),
				logging.Int("total", report.Total),
			)
			return report, nil
		}
		if start > 0 {
			if err := s.sleep(ctx, s.chunkDelay); err != nil {
				report.Outcome = rewrite.OutcomeCanceled
				return report, nil
			}
		}

		chunk := pending[start:min(start+s.chunkSize, len(pending))]
		applied, tokens, err := s.translateChunk(context.WithoutCancel(ctx), doc, analysis, chunk)
		report.Requests++
		report.Tokens += tokens
		report.Translated += applied
		if err != nil {
			report.Outcome = rewrite.OutcomeFailed
			report.Err = fmt.Errorf("translate chunk starting at segment %s: %w", chunk[0].Index, err)
			logging.ErrorWithContext(s.logger, "translation chunk failed", "translation_chunk_failed",
				logging.String(logging.FieldSegment, chunk[0].Index),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, llm.UserMessage(err)),
			)
			emit()
			return report, report.Err
		}
		emit()

		percent := 100 * float64(report.Translated) / float64(max(report.Total, 1))
		if sampler.ShouldLog(percent, "translate") {
			s.logger.Info("translation progress",
				logging.Int("translated", report.Translated),
				logging.Int("total", report.Total),
				logging.Float64(logging.FieldProgressPercent, percent),
				logging.Int("tokens", report.Tokens),
			)
		}
	}

	report.Outcome = rewrite.OutcomeCompleted
	return report, nil
}

func (s *Service) translateChunk(ctx context.Context, doc *subtitles.Document, analysis TitleAnalysis, chunk []subtitles.Segment) (int, int, error) {
	ids := make([]string, len(chunk))
	texts := make([]string, len(chunk))
	wanted := make(map[string]bool, len(chunk))
	for i, seg := range chunk {
		ids[i] = seg.Index
		texts[i] = seg.OriginalText
		wanted[seg.Index] = true
	}
	payload, err := chunkPayload(ids, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("build payload: %w", err)
	}

	completion, err := s.provider.Complete(ctx, llm.Request{
		System:      translateSystemPrompt,
		User:        translateUserPrompt(analysis, s.glossary.Relevant(texts), payload),
		JSON:        true,
		Temperature: translateTemperature,
	})
	if err != nil {
		return 0, 0, err
	}

	items, err := llm.ExtractArray(completion.Content)
	if err != nil {
		return 0, completion.Tokens, err
	}
	applied := 0
	for _, item := range items {
		id := strings.TrimSpace(item.Get("id").String())
		text := strings.TrimSpace(item.Get("translated").String())
		if !wanted[id] || text == "" {
			continue
		}
		if doc.SetTranslation(id, text) {
			delete(wanted, id)
			applied++
		}
	}
	if len(wanted) > 0 {
		s.logger.Debug("translation chunk incomplete",
			logging.Int("missing", len(wanted)),
			logging.Int("requested", len(chunk)),
		)
	}
	return applied, completion.Tokens, nil
}
