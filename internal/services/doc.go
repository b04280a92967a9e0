// Package services defines shared utilities consumed by the workbench, the
// HTTP API, and the LLM integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent API status codes.
package services
