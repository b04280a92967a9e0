package subtitles

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// RangeSeparator splits the start and end halves of an SRT timing line.
	RangeSeparator = " --> "

	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
)

var timestampPattern = regexp.MustCompile(`(\d{2,}):(\d{2}):(\d{2}),(\d{3})`)

// ParseTimestamp converts an SRT timestamp (HH:MM:SS,mmm) to milliseconds.
// Values that do not match the pattern yield 0 so callers can keep going on
// malformed lines.
func ParseTimestamp(value string) int64 {
	match := timestampPattern.FindStringSubmatch(value)
	if match == nil {
		return 0
	}
	var parts [4]int64
	for i := range parts {
		n, err := strconv.ParseInt(match[i+1], 10, 64)
		if err != nil {
			return 0
		}
		parts[i] = n
	}
	return parts[0]*msPerHour + parts[1]*msPerMinute + parts[2]*msPerSecond + parts[3]
}

// FormatTimestamp renders milliseconds as HH:MM:SS,mmm. Negative input is
// clamped to zero.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / msPerHour
	minutes := (ms % msPerHour) / msPerMinute
	seconds := (ms % msPerMinute) / msPerSecond
	millis := ms % msPerSecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// ParseRange splits a "<start> --> <end>" line into millisecond offsets. ok is
// false when the line carries no arrow or either side fails to match.
func ParseRange(value string) (start, end int64, ok bool) {
	left, right, found := strings.Cut(value, "-->")
	if !found {
		return 0, 0, false
	}
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)
	if !timestampPattern.MatchString(left) || !timestampPattern.MatchString(right) {
		return 0, 0, false
	}
	return ParseTimestamp(left), ParseTimestamp(right), true
}

// FormatRange renders a timing line from millisecond offsets.
func FormatRange(start, end int64) string {
	return FormatTimestamp(start) + RangeSeparator + FormatTimestamp(end)
}
