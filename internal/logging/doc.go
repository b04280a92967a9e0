// Package logging assembles structured slog loggers and formatting helpers used
// across donghuasub.
//
// It owns the console and JSON handlers, the dated JSON log file, and an
// in-memory StreamHub that the HTTP API exposes for live log tailing.
// Context-aware helpers tag records with run IDs, stages, and correlation IDs,
// and WarnWithContext enforces the event/hint/impact shape for warnings.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits the same record shape.
package logging
