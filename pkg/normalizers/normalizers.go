// Package normalizers provides attribute normalization used by scoring and store lookups
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// Text lowercases, strips punctuation, collapses internal whitespace to single spaces and trims
func Text(s string) string {
	s = strings.ToLower(s)

	var result strings.Builder
	prevSpace := true
	for _, r := range s {
		switch {
		case unicode.IsPunct(r):
			continue
		case unicode.IsSpace(r):
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		default:
			result.WriteRune(r)
			prevSpace = false
		}
	}

	return strings.TrimRight(result.String(), " ")
}

// Email normalizes an email address (lowercase, trim)
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name normalizes a name for case-insensitive equality (lowercase, trim)
func Name(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Prefix returns the first n runes of the lowercased, trimmed value.
// Values shorter than n are returned whole.
func Prefix(s string, n int) string {
	runes := []rune(Name(s))
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
