package utils

import (
	"strings"
	"unicode"
)

const ellipsis = "..."

// Truncate is a simple string truncate
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + ellipsis
}

// TruncateSentence shortens s to at most maxRunes runes, preferring to end
// on a sentence boundary. It scans back up to window runes from the limit
// for '.', '?' or '!' and cuts just after the last one found. Without a
// boundary the text is hard-cut and an ellipsis appended, so the result is
// never longer than maxRunes plus the ellipsis. A window <= 0 always
// hard-cuts.
func TruncateSentence(s string, maxRunes, window int) string {
	runes := []rune(s)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return s
	}

	floor := max(maxRunes-window, 0)
	for i := maxRunes - 1; i >= floor; i-- {
		switch runes[i] {
		case '.', '?', '!':
			return string(runes[:i+1])
		}
	}

	return strings.TrimRightFunc(string(runes[:maxRunes]), unicode.IsSpace) + ellipsis
}
