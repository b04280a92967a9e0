package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
)

// TitleAnalysis describes a show and steers the translation prompt.
type TitleAnalysis struct {
	OriginalTitle    string   `json:"originalTitle"`
	TranslatedTitle  string   `json:"translatedTitle"`
	MainGenres       []string `json:"mainGenres"`
	Summary          string   `json:"summary"`
	Tone             string   `json:"tone"`
	RecommendedStyle string   `json:"recommendedStyle"`
}

// AnalyzeTitle asks the model to describe title. Cached analyses are returned
// with zero tokens.
func (s *Service) AnalyzeTitle(ctx context.Context, title string) (TitleAnalysis, int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return TitleAnalysis{}, 0, fmt.Errorf("analyze title: %w", errEmptyTitle)
	}
	model := s.provider.Model()

	if s.cache != nil {
		payload, ok, err := s.cache.GetTitle(ctx, title, model)
		if err != nil {
			logging.WarnWithContext(s.logger, "title cache read failed", "title_cache_read_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "title will be analyzed again"),
			)
		} else if ok {
			var analysis TitleAnalysis
			if err := json.Unmarshal([]byte(payload), &analysis); err == nil {
				s.logger.Debug("title analysis cache hit", logging.String("title", title))
				return analysis, 0, nil
			}
		}
	}

	completion, err := s.provider.Complete(ctx, llm.Request{
		System:      titleSystemPrompt,
		User:        titleUserPrompt(title),
		JSON:        true,
		Temperature: titleTemperature,
	})
	if err != nil {
		return TitleAnalysis{}, 0, fmt.Errorf("analyze title: %w", err)
	}

	var analysis TitleAnalysis
	if err := llm.DecodeLLMJSON(completion.Content, &analysis); err != nil {
		return TitleAnalysis{}, completion.Tokens, fmt.Errorf("analyze title: %w", err)
	}
	analysis.TranslatedTitle = strings.TrimSpace(analysis.TranslatedTitle)
	if analysis.TranslatedTitle == "" {
		return TitleAnalysis{}, completion.Tokens, fmt.Errorf("analyze title: %w: translatedTitle missing", llm.ErrMalformedResponse)
	}
	if strings.TrimSpace(analysis.OriginalTitle) == "" {
		analysis.OriginalTitle = title
	}

	if s.cache != nil {
		encoded, err := json.Marshal(analysis)
		if err == nil {
			err = s.cache.PutTitle(ctx, title, model, string(encoded))
		}
		if err != nil {
			logging.WarnWithContext(s.logger, "title cache write failed", "title_cache_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next run will analyze the title again"),
			)
		}
	}

	s.logger.Info("title analyzed",
		logging.String("title", analysis.TranslatedTitle),
		logging.String("model", model),
		logging.Int("tokens", completion.Tokens),
	)
	return analysis, completion.Tokens, nil
}
