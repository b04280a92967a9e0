package readability

import "time"

// Tier names the remedy a segment needs.
type Tier string

const (
	TierLocal Tier = "local"
	TierAI    Tier = "ai"
)

// Status tracks a suggestion through an optimization run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusApplied    Status = "applied"
	StatusError      Status = "error"
)

// CanTransition reports whether moving from s to next is allowed. Applied and
// error are terminal; only a fresh analysis replaces them.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusApplied || next == StatusError
	default:
		return false
	}
}

// advance moves s to next when the transition is allowed and reports
// whether it did.
func (s *Suggestion) advance(next Status) bool {
	if !s.Status.CanTransition(next) {
		return false
	}
	s.Status = next
	return true
}

// Suggestion describes one segment that reads too fast. SegmentIndex refers
// back to Segment.Index; the suggestion never owns the segment.
type Suggestion struct {
	ID              string    `json:"id"`
	SegmentIndex    string    `json:"segmentIndex"`
	Tier            Tier      `json:"tier"`
	CPS             float64   `json:"cps"`
	CharCount       int       `json:"charCount"`
	DurationSeconds float64   `json:"durationSeconds"`
	BeforeTimestamp string    `json:"beforeTimestamp"`
	AfterTimestamp  string    `json:"afterTimestamp"`
	BeforeText      string    `json:"beforeText"`
	AfterText       string    `json:"afterText"`
	Status          Status    `json:"status"`
	Error           string    `json:"error,omitempty"`
	AppliedAt       time.Time `json:"appliedAt,omitzero"`
}

// Analysis is the aggregate result of one classifier pass.
type Analysis struct {
	TotalSegments         int          `json:"totalSegments"`
	IgnoredCount          int          `json:"ignoredCount"`
	LocalFixCount         int          `json:"localFixCount"`
	AIRequiredCount       int          `json:"aiRequiredCount"`
	LocalSuggestions      []Suggestion `json:"localSuggestions"`
	AIRequiredSuggestions []Suggestion `json:"aiRequiredSuggestions"`
}
