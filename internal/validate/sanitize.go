package validate

import (
	"strings"
	"unicode"
)

// SanitizeText trims s, drops control characters and folds runs of
// whitespace into single spaces. Used for medication names, dosages and
// instructions.
func SanitizeText(s string) string {
	return strings.Join(strings.Fields(StripControlChars(s)), " ")
}

// StripControlChars removes all control characters except newline and tab.
func StripControlChars(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// TruncateString truncates a string to maxLen runes, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
