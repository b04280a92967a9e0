package workbench

import (
	"time"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/ledger"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/readability"
)

// RunStatus is the live or final state of one session run. State uses the
// ledger outcome values.
type RunStatus struct {
	ID              string      `json:"id"`
	Kind            ledger.Kind `json:"kind"`
	Source          string      `json:"source"`
	Model           string      `json:"model,omitempty"`
	State           string      `json:"state"`
	Processed       int         `json:"processed"`
	Total           int         `json:"total"`
	Applied         int         `json:"applied,omitempty"`
	Failed          int         `json:"failed,omitempty"`
	Tokens          int         `json:"tokens"`
	Title           string      `json:"title,omitempty"`
	TranslatedTitle string      `json:"translatedTitle,omitempty"`
	CancelRequested bool        `json:"cancelRequested,omitempty"`
	Error           string      `json:"error,omitempty"`
	StartedAt       time.Time   `json:"startedAt"`
	FinishedAt      time.Time   `json:"finishedAt,omitzero"`
}

// Running reports whether the run has not finished yet.
func (r RunStatus) Running() bool {
	return r.State == ledger.OutcomeRunning
}

// Percent returns processed over total as a percentage.
func (r RunStatus) Percent() float64 {
	if r.Total <= 0 {
		return 100
	}
	return 100 * float64(r.Processed) / float64(r.Total)
}

// Status is a snapshot of a session.
type Status struct {
	FileName   string                `json:"fileName,omitempty"`
	Segments   int                   `json:"segments"`
	Translated int                   `json:"translated"`
	Busy       bool                  `json:"busy"`
	Analysis   *readability.Analysis `json:"analysis,omitempty"`
	Run        *RunStatus            `json:"run,omitempty"`
}
