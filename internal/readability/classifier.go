package readability

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/subtitles"
)

// Measurement is the reading speed of a single segment.
type Measurement struct {
	CharCount       int
	DurationSeconds float64
	CPS             float64
}

// CharCount counts characters in composed (NFC) form so decomposed
// Vietnamese diacritics are not counted twice. Line breaks count.
func CharCount(text string) int {
	return utf8.RuneCountInString(norm.NFC.String(text))
}

// Measure computes the reading speed of a segment from its effective text.
// Zero or negative durations report InvalidDurationCPS.
func Measure(seg subtitles.Segment) Measurement {
	start, end := seg.Range()
	chars := CharCount(seg.Text())
	duration := float64(end-start) / 1000
	cps := InvalidDurationCPS
	if duration > 0 {
		cps = float64(chars) / duration
	}
	return Measurement{CharCount: chars, DurationSeconds: duration, CPS: cps}
}

// Analyze classifies every segment. It never mutates its input, and the same
// input always yields the same result, suggestion IDs included.
func Analyze(segments []subtitles.Segment, thresholds Thresholds) Analysis {
	analysis := Analysis{
		TotalSegments:         len(segments),
		LocalSuggestions:      []Suggestion{},
		AIRequiredSuggestions: []Suggestion{},
	}
	for _, seg := range segments {
		m := Measure(seg)
		tier, flagged := thresholds.Classify(m.CPS)
		if !flagged {
			analysis.IgnoredCount++
			continue
		}
		suggestion := Suggestion{
			ID:              suggestionID(seg),
			SegmentIndex:    seg.Index,
			Tier:            tier,
			CPS:             m.CPS,
			CharCount:       m.CharCount,
			DurationSeconds: m.DurationSeconds,
			BeforeTimestamp: seg.Timestamp,
			AfterTimestamp:  seg.Timestamp,
			BeforeText:      seg.Text(),
			AfterText:       seg.Text(),
			Status:          StatusPending,
		}
		if tier == TierAI {
			analysis.AIRequiredCount++
			analysis.AIRequiredSuggestions = append(analysis.AIRequiredSuggestions, suggestion)
			continue
		}
		analysis.LocalFixCount++
		analysis.LocalSuggestions = append(analysis.LocalSuggestions, suggestion)
	}
	return analysis
}

func suggestionID(seg subtitles.Segment) string {
	key := strings.Join([]string{seg.Index, seg.Timestamp, seg.Text()}, "\x1f")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
