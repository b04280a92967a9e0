// Package readability measures how fast subtitles have to be read and fixes
// the cases that only need more screen time.
//
// Analyze sorts every segment by characters per second into an ignore tier,
// a local tier that FixLocal repairs by extending end times, and an AI tier
// that needs its text shortened by the rewrite coordinator.
package readability
