// Package api serves the subtitle workbench over HTTP.
//
// Routes live under /api and exchange camelCase JSON. The server wraps a
// single workbench.Session: uploads replace the loaded file, long runs
// (optimize, translate) start in the background and are polled through
// /api/status, and /api/download returns the current SRT at any time.
// Errors marked with services sentinels map to HTTP codes through
// services.HTTPStatus, so a second run while one is active answers 409.
//
// /api/logs serves the in-memory log stream for live tailing; /api/history
// lists recorded runs when a ledger is attached.
package api
