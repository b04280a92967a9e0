// Package ledger records subtitle runs and caches title analyses in SQLite.
//
// The database lives under paths.state_dir and is shared by the CLI and the
// HTTP server, so every write goes through a short busy-retry loop. The schema
// is embedded and versioned; a mismatch returns ErrSchemaMismatch rather than
// migrating in place.
package ledger
