package api

import (
	"time"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/ledger"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/readability"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/translation"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/workbench"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoadResponse answers an upload.
type LoadResponse = workbench.LoadResult

// AnalyzeResponse wraps a readability analysis.
type AnalyzeResponse struct {
	Analysis readability.Analysis `json:"analysis"`
}

// FixResponse wraps a local fix pass.
type FixResponse struct {
	Report readability.FixReport `json:"report"`
}

// TitleRequest carries the title to analyze or translate with.
type TitleRequest struct {
	Title string `json:"title"`
}

// TitleResponse wraps a title analysis.
type TitleResponse struct {
	Analysis translation.TitleAnalysis `json:"analysis"`
}

// RunResponse describes a started or finished run.
type RunResponse struct {
	Run RunView `json:"run"`
}

// RunView is the transport form of a session run.
type RunView struct {
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	Source          string  `json:"source"`
	Model           string  `json:"model,omitempty"`
	State           string  `json:"state"`
	Processed       int     `json:"processed"`
	Total           int     `json:"total"`
	Percent         float64 `json:"percent"`
	Applied         int     `json:"applied"`
	Failed          int     `json:"failed"`
	Tokens          int     `json:"tokens"`
	Title           string  `json:"title,omitempty"`
	TranslatedTitle string  `json:"translatedTitle,omitempty"`
	CancelRequested bool    `json:"cancelRequested"`
	Error           string  `json:"error,omitempty"`
	StartedAt       string  `json:"startedAt,omitempty"`
	FinishedAt      string  `json:"finishedAt,omitempty"`
}

// CancelResponse reports whether a run was asked to stop.
type CancelResponse struct {
	Canceled bool `json:"canceled"`
}

// StatusResponse is the session snapshot.
type StatusResponse struct {
	FileName   string                `json:"fileName,omitempty"`
	Segments   int                   `json:"segments"`
	Translated int                   `json:"translated"`
	Busy       bool                  `json:"busy"`
	Analysis   *readability.Analysis `json:"analysis,omitempty"`
	Run        *RunView              `json:"run,omitempty"`
}

// HealthResponse reports server and provider readiness.
type HealthResponse struct {
	Status    string `json:"status"`
	AIEnabled bool   `json:"aiEnabled"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	Probed    bool   `json:"probed"`
	Error     string `json:"error,omitempty"`
}

// HistoryResponse lists recorded runs, newest first.
type HistoryResponse struct {
	Runs []HistoryEntry `json:"runs"`
}

// HistoryEntry is one ledger row.
type HistoryEntry struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Source     string `json:"source"`
	Model      string `json:"model,omitempty"`
	Processed  int    `json:"processed"`
	Total      int    `json:"total"`
	Tokens     int    `json:"tokens"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// LogEvent is a structured log line for live tailing.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp string            `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	Stage     string            `json:"stage,omitempty"`
	RunID     string            `json:"runId,omitempty"`
	Segment   string            `json:"segment,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   []DetailField     `json:"details,omitempty"`
}

// DetailField mirrors a console detail bullet.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse carries a page of log events and the cursor to resume
// from.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// FromRunStatus converts a session run.
func FromRunStatus(st workbench.RunStatus) RunView {
	return RunView{
		ID:              st.ID,
		Kind:            string(st.Kind),
		Source:          st.Source,
		Model:           st.Model,
		State:           st.State,
		Processed:       st.Processed,
		Total:           st.Total,
		Percent:         st.Percent(),
		Applied:         st.Applied,
		Failed:          st.Failed,
		Tokens:          st.Tokens,
		Title:           st.Title,
		TranslatedTitle: st.TranslatedTitle,
		CancelRequested: st.CancelRequested,
		Error:           st.Error,
		StartedAt:       formatTime(st.StartedAt),
		FinishedAt:      formatTime(st.FinishedAt),
	}
}

// FromStatus converts a session snapshot.
func FromStatus(st workbench.Status) StatusResponse {
	resp := StatusResponse{
		FileName:   st.FileName,
		Segments:   st.Segments,
		Translated: st.Translated,
		Busy:       st.Busy,
		Analysis:   st.Analysis,
	}
	if st.Run != nil {
		view := FromRunStatus(*st.Run)
		resp.Run = &view
	}
	return resp
}

// FromRun converts a ledger row.
func FromRun(run ledger.Run) HistoryEntry {
	return HistoryEntry{
		ID:         run.ID,
		Kind:       string(run.Kind),
		Source:     run.Source,
		Model:      run.Model,
		Processed:  run.Processed,
		Total:      run.Total,
		Tokens:     run.Tokens,
		Outcome:    run.Outcome,
		Error:      run.Error,
		StartedAt:  formatTime(run.StartedAt),
		FinishedAt: formatTime(run.FinishedAt),
		DurationMS: run.Duration().Milliseconds(),
	}
}

func convertLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		details := make([]DetailField, 0, len(evt.Details))
		for _, detail := range evt.Details {
			details = append(details, DetailField{Label: detail.Label, Value: detail.Value})
		}
		out = append(out, LogEvent{
			Sequence:  evt.Sequence,
			Timestamp: formatTime(evt.Timestamp),
			Level:     evt.Level,
			Message:   evt.Message,
			Component: evt.Component,
			Stage:     evt.Stage,
			RunID:     evt.RunID,
			Segment:   evt.Segment,
			Fields:    evt.Fields,
			Details:   details,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
