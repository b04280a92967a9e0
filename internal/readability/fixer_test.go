package readability

import (
	"strings"
	"testing"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/subtitles"
)

func TestFixLocalExampleScenario(t *testing.T) {
	text30 := strings.Repeat("字", 30)
	doc := subtitles.NewDocument([]subtitles.Segment{
		segment("1", 10_000, 11_000, text30),
		segment("2", 11_550, 14_000, "ok"),
	})
	analysis := Analyze(doc.Snapshot(), DefaultThresholds())
	report := FixLocal(doc, analysis.LocalSuggestions, DefaultThresholds())

	if report.Applied != 1 || report.Skipped != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	seg, _, _ := doc.Lookup("1")
	if seg.Timestamp != "00:00:10,000 --> 00:00:11,500" {
		t.Fatalf("fixed timestamp = %q", seg.Timestamp)
	}
	if seg.Text() != text30 {
		t.Fatal("fixer must not touch text")
	}
	if report.Suggestions[0].AfterTimestamp != seg.Timestamp || report.Suggestions[0].Status != StatusApplied {
		t.Fatalf("suggestion not updated: %+v", report.Suggestions[0])
	}
}

func TestFixLocalCapsAtNextSegment(t *testing.T) {
	text30 := strings.Repeat("字", 30)
	doc := subtitles.NewDocument([]subtitles.Segment{
		segment("1", 10_000, 11_000, text30),
		segment("2", 11_200, 14_000, "ok"),
	})
	analysis := Analyze(doc.Snapshot(), DefaultThresholds())
	FixLocal(doc, analysis.LocalSuggestions, DefaultThresholds())
	seg, _, _ := doc.Lookup("1")
	if _, end := seg.Range(); end != 11_150 {
		t.Fatalf("end = %d, want 11150", end)
	}
}

func TestFixLocalNeverShortensOrOverlaps(t *testing.T) {
	text := strings.Repeat("x", 25)
	var segments []subtitles.Segment
	// Tight runs where the safe gap leaves no room, plus roomy ones.
	starts := []int64{0, 1_000, 1_030, 2_000, 5_000, 6_100, 6_140, 9_000}
	for i, start := range starts {
		end := start + 1_000
		if i+1 < len(starts) {
			end = min(end, starts[i+1])
		}
		segments = append(segments, segment(strings.Repeat("i", i+1), start, end, text))
	}
	doc := subtitles.NewDocument(segments)
	before := doc.Snapshot()
	analysis := Analyze(before, DefaultThresholds())
	FixLocal(doc, analysis.LocalSuggestions, DefaultThresholds())
	after := doc.Snapshot()

	for i := range after {
		bs, be := before[i].Range()
		as, ae := after[i].Range()
		if as != bs {
			t.Fatalf("segment %d start moved %d -> %d", i, bs, as)
		}
		if ae < be {
			t.Fatalf("segment %d end shortened %d -> %d", i, be, ae)
		}
		if i+1 < len(after) {
			nextStart, _ := after[i+1].Range()
			if ae > be && ae > nextStart-SafeGapMS {
				t.Fatalf("segment %d end %d exceeds next start %d minus gap", i, ae, nextStart)
			}
			if ae > nextStart {
				t.Fatalf("segment %d overlaps next: %d > %d", i, ae, nextStart)
			}
		}
	}
}

func TestFixLocalIgnoresAISuggestions(t *testing.T) {
	doc := subtitles.NewDocument([]subtitles.Segment{
		segment("1", 0, 500, strings.Repeat("字", 45)),
	})
	analysis := Analyze(doc.Snapshot(), DefaultThresholds())
	report := FixLocal(doc, analysis.AIRequiredSuggestions, DefaultThresholds())
	if report.Applied != 0 || len(report.Suggestions) != 0 {
		t.Fatalf("ai suggestions must be left to the coordinator: %+v", report)
	}
}

func TestFixLocalBoundaryIsNoop(t *testing.T) {
	doc := subtitles.NewDocument([]subtitles.Segment{
		segment("1", 10_000, 11_500, strings.Repeat("字", 30)),
	})
	analysis := Analyze(doc.Snapshot(), DefaultThresholds())
	report := FixLocal(doc, analysis.LocalSuggestions, DefaultThresholds())
	if report.Applied != 0 || report.Skipped != 1 {
		t.Fatalf("segment already at target must be skipped: %+v", report)
	}
}

func TestFixLocalFollowsStatusTransitions(t *testing.T) {
	if StatusPending.CanTransition(StatusApplied) {
		t.Fatal("pending must pass through processing before applied")
	}
	doc := subtitles.NewDocument([]subtitles.Segment{
		segment("1", 10_000, 11_000, strings.Repeat("字", 30)),
	})
	analysis := Analyze(doc.Snapshot(), DefaultThresholds())
	first := FixLocal(doc, analysis.LocalSuggestions, DefaultThresholds())
	if first.Applied != 1 || first.Suggestions[0].Status != StatusApplied {
		t.Fatalf("unexpected first pass: %+v", first)
	}

	// Applied is terminal; replaying the same suggestions changes nothing.
	second := FixLocal(doc, first.Suggestions, DefaultThresholds())
	if second.Applied != 0 || second.Skipped != 1 {
		t.Fatalf("applied suggestion must not be fixed again: %+v", second)
	}
}
