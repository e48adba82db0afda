// Package sanitizer normalizes free-text fields before validation and storage.
// Every function is idempotent.
package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims s and collapses each run of whitespace to one space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		result.WriteRune(r)
		lastWasSpace = false
	}
	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeDescription keeps paragraph breaks but trims each line.
func NormalizeDescription(description string) string {
	lines := strings.Split(strings.TrimSpace(description), "\n")
	out := lines[:0]
	for _, line := range lines {
		out = append(out, TrimAndNormalize(line))
	}
	return strings.Join(out, "\n")
}
