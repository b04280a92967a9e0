package readability

import (
	"math"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/subtitles"
)

// FixReport summarizes a local fix pass.
type FixReport struct {
	Applied     int          `json:"applied"`
	Skipped     int          `json:"skipped"`
	Suggestions []Suggestion `json:"suggestions"`
}

// FixLocal extends the end time of every local-tier suggestion toward the
// target reading speed. Each segment is capped at the next segment's start
// minus the safe gap, end times only ever grow, and start times and text are
// untouched. Segments are visited in document order against the current
// timing so earlier fixes are seen by later ones.
func FixLocal(doc *subtitles.Document, suggestions []Suggestion, thresholds Thresholds) FixReport {
	updated := make([]Suggestion, 0, len(suggestions))
	wanted := make(map[string]int, len(suggestions))
	for _, s := range suggestions {
		if s.Tier != TierLocal {
			continue
		}
		wanted[s.SegmentIndex] = len(updated)
		updated = append(updated, s)
	}

	report := FixReport{}
	doc.Update(func(segments []subtitles.Segment) {
		for i := range segments {
			pos, ok := wanted[segments[i].Index]
			if !ok {
				continue
			}
			delete(wanted, segments[i].Index)
			var next *subtitles.Segment
			if i+1 < len(segments) {
				next = &segments[i+1]
			}
			timestamp, changed := extendEnd(segments[i], next, thresholds)
			if !changed {
				continue
			}
			fixed := &updated[pos]
			if !fixed.advance(StatusProcessing) || !fixed.advance(StatusApplied) {
				continue
			}
			segments[i].Timestamp = timestamp
			fixed.AfterTimestamp = timestamp
			report.Applied++
		}
	})
	report.Skipped = len(updated) - report.Applied
	report.Suggestions = updated
	return report
}

// extendEnd computes the fixed timing line for seg. It reports false when the
// range is unreadable or the segment cannot be lengthened.
func extendEnd(seg subtitles.Segment, next *subtitles.Segment, thresholds Thresholds) (string, bool) {
	start, end, ok := subtitles.ParseRange(seg.Timestamp)
	if !ok {
		return "", false
	}
	required := float64(CharCount(seg.Text())) / thresholds.TargetCPS * 1000
	ideal := start + int64(math.Round(required))
	if next != nil {
		nextStart, _ := next.Range()
		ideal = min(ideal, nextStart-thresholds.SafeGapMS)
	}
	if ideal <= end {
		return "", false
	}
	return subtitles.FormatRange(start, ideal), true
}
