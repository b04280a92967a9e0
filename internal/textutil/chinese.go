package textutil

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	chinesePattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]`)
	// Han characters plus CJK punctuation, full-width forms, and the
	// separators that commonly appear inside a title.
	titleRunPattern  = regexp.MustCompile(`[\x{4e00}-\x{9fa5}\x{3000}-\x{303f}\x{ff00}-\x{ffef}\s,，!！?？:：]+`)
	bracketedPattern = regexp.MustCompile(`\[.*?\]|\(.*?\)|\{.*?\}`)
	noisePattern     = regexp.MustCompile(`(?i)translated|bilibili|ep\d+|tập\d+|1080p|720p|4k|review|subtitle|vietsub`)
	speedTagPattern  = regexp.MustCompile(`(?i)^\[Speed-[\d.]+\]\s*`)
	partialTagRegexp = regexp.MustCompile(`(?i)^\[Partial(?:-(\d+))?\]\s*`)
	doneTagPattern   = regexp.MustCompile(`(?i)^\[Translated\]\s*`)
)

// ContainsChinese reports whether text holds at least one CJK unified
// ideograph in the common range.
func ContainsChinese(text string) bool {
	return chinesePattern.MatchString(text)
}

// ExtractChineseTitle guesses a show title from a subtitle file name. Tool
// tags, bracketed metadata, and release noise are stripped first; the
// longest run of Chinese text wins. Without one the cleaned name is returned.
func ExtractChineseTitle(fileName string) string {
	name := trimExtension(filepath.Base(fileName))
	name = stripToolTags(name)
	name = bracketedPattern.ReplaceAllString(name, "")
	name = noisePattern.ReplaceAllString(name, "")

	best := ""
	for _, run := range titleRunPattern.FindAllString(name, -1) {
		run = strings.Trim(run, "_- \t　")
		if !ContainsChinese(run) {
			continue
		}
		if utf8.RuneCountInString(run) > utf8.RuneCountInString(best) {
			best = run
		}
	}
	if best != "" {
		return best
	}
	return strings.TrimSpace(name)
}

func stripToolTags(name string) string {
	name = speedTagPattern.ReplaceAllString(name, "")
	name = partialTagRegexp.ReplaceAllString(name, "")
	return doneTagPattern.ReplaceAllString(name, "")
}

func trimExtension(name string) string {
	if ext := filepath.Ext(name); ext != "" && ext != name {
		return strings.TrimSuffix(name, ext)
	}
	return name
}
