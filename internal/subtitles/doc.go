// Package subtitles reads and writes SubRip (.srt) files.
//
// It owns the timestamp codec, the lenient block parser and strict writer,
// the speed editor, and Document, the concurrency-safe segment sequence that
// optimization runs mutate while readers download progress.
package subtitles
