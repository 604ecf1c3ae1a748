// Package textutil holds the small string helpers shared by the agents.
package textutil

import "strings"

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// FirstWords returns the first n whitespace-separated words of s joined by
// single spaces.
func FirstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// Fallback returns primary unless it is blank.
func Fallback(primary, secondary string) string {
	if strings.TrimSpace(primary) == "" {
		return secondary
	}
	return primary
}
