package textutil

import (
	"strconv"
	"strings"
	"unicode"
)

// GenerateFileName names the next output file. A speed other than 0 or 1
// replaces any [Speed-x] tag. Otherwise a finished file becomes
// "[Translated] name.srt" and an unfinished one gets a [Partial] tag that
// counts up on every resumed attempt: [Partial], [Partial-2], [Partial-3].
func GenerateFileName(current string, finished bool, speed float64) string {
	base := SanitizeFileName(trimExtension(strings.TrimSpace(current)))
	base = doneTagPattern.ReplaceAllString(base, "")
	if base == "" {
		base = "subtitle"
	}

	if speed != 0 && speed != 1 {
		base = speedTagPattern.ReplaceAllString(base, "")
		return "[Speed-" + strconv.FormatFloat(speed, 'f', -1, 64) + "] " + base + ".srt"
	}

	match := partialTagRegexp.FindStringSubmatch(base)
	clean := partialTagRegexp.ReplaceAllString(base, "")
	if finished {
		return "[Translated] " + clean + ".srt"
	}
	if match == nil {
		return "[Partial] " + base + ".srt"
	}
	attempt := 1
	if match[1] != "" {
		if n, err := strconv.Atoi(match[1]); err == nil {
			attempt = n
		}
	}
	return "[Partial-" + strconv.Itoa(attempt+1) + "] " + clean + ".srt"
}

// SanitizeFileName makes name safe on common filesystems. Path separators,
// colons and asterisks become dashes; quotes, wildcards, pipes, angle
// brackets and control characters are dropped.
func SanitizeFileName(name string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			return '-'
		case r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name)))
}
