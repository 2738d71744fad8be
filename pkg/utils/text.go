// Package utils provides shared utilities for text, math, and logging.
package utils

// Truncate shortens s to at most max runes, appending "..." when anything
// was cut. Counting runes keeps multi-byte characters intact, which matters
// because truncated user text ends up in log lines. A max of 0 or less
// disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
