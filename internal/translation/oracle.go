package translation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/rewrite"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
)

// Rewriter shortens dense subtitles through the model provider. It satisfies
// rewrite.Oracle.
type Rewriter struct {
	service *Service
	tokens  atomic.Int64
}

// Rewriter returns the readability oracle backed by s.
func (s *Service) Rewriter() *Rewriter {
	return &Rewriter{service: s}
}

// Rewrite sends one batch of targets and decodes the revisions. Items without
// an id or afterText are dropped; the coordinator reports those targets as
// missing.
func (r *Rewriter) Rewrite(ctx context.Context, targets []rewrite.Target) ([]rewrite.Revision, error) {
	payload, err := rewritePayload(targets)
	if err != nil {
		return nil, fmt.Errorf("build rewrite payload: %w", err)
	}
	completion, err := r.service.provider.Complete(ctx, llm.Request{
		System:      rewriteSystemPrompt,
		User:        payload,
		JSON:        true,
		Temperature: rewriteTemperature,
	})
	if err != nil {
		return nil, err
	}
	r.tokens.Add(int64(completion.Tokens))

	items, err := llm.ExtractArray(completion.Content)
	if err != nil {
		return nil, err
	}
	revisions := make([]rewrite.Revision, 0, len(items))
	dropped := 0
	for _, item := range items {
		id := strings.TrimSpace(item.Get("id").String())
		text := strings.TrimSpace(item.Get("afterText").String())
		if id == "" || text == "" {
			dropped++
			continue
		}
		revisions = append(revisions, rewrite.Revision{
			ID:             id,
			AfterText:      text,
			AfterTimestamp: strings.TrimSpace(item.Get("afterTimestamp").String()),
		})
	}
	if dropped > 0 {
		logging.WarnWithContext(r.service.logger, "rewrite response had incomplete items", "rewrite_items_dropped",
			logging.Int("dropped", dropped),
			logging.Int("requested", len(targets)),
			logging.String(logging.FieldImpact, "affected segments are marked as errors"),
		)
	}
	r.service.logger.Debug("rewrite batch decoded",
		logging.Int("revisions", len(revisions)),
		logging.Int("tokens", completion.Tokens),
	)
	return revisions, nil
}

// Tokens reports the total tokens consumed by this rewriter.
func (r *Rewriter) Tokens() int {
	return int(r.tokens.Load())
}
