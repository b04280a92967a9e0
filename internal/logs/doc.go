// Package logs reads back what the logger wrote.
//
// A running `donghuasub serve` exposes its in-memory event stream at
// /api/logs; Client pages through it and Stream follows it. When no server
// answers, Stream falls back to tailing today's JSON log file with bounded
// memory, so `donghuasub logs --follow` works for one-shot commands too.
// Component and run filters need the server.
package logs
