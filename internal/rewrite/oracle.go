package rewrite

import "context"

// ContextEntry is a neighboring segment sent for narrative continuity.
type ContextEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Target is one segment the oracle should shorten.
type Target struct {
	TargetID    string         `json:"targetId"`
	CurrentText string         `json:"currentText"`
	CurrentCPS  float64        `json:"currentCps"`
	Timestamp   string         `json:"timestamp"`
	Context     []ContextEntry `json:"context"`
}

// Revision is the oracle's answer for one target. AfterTimestamp may be empty
// when the oracle keeps the original timing.
type Revision struct {
	ID             string `json:"id"`
	AfterText      string `json:"afterText"`
	AfterTimestamp string `json:"afterTimestamp"`
}

// Oracle rewrites a batch of targets. Revisions are matched back by ID, so
// order and completeness are not assumed. Implementations own their retry
// policy; a returned error is terminal for the batch.
type Oracle interface {
	Rewrite(ctx context.Context, targets []Target) ([]Revision, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, targets []Target) ([]Revision, error)

// Rewrite calls f.
func (f OracleFunc) Rewrite(ctx context.Context, targets []Target) ([]Revision, error) {
	return f(ctx, targets)
}
