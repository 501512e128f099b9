package content

import (
	"strings"
	"unicode/utf8"
)

// collapse joins the whitespace-separated words of s with single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize lowercases a name and collapses its whitespace, so "My  Work"
// and "my work" compare equal.
func Normalize(s string) string {
	return collapse(strings.ToLower(s))
}

// CountChars counts runes, which is how every size limit is expressed.
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// Truncate keeps the first max runes of s and marks the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 || CountChars(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// Preview is a one-line excerpt of s at most max runes long, plus the marker.
func Preview(s string, max int) string {
	return Truncate(collapse(s), max)
}
