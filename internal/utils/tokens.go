package utils

import (
	"strings"
	"unicode/utf8"
)

// CountTokens estimates the token count of text for logging and cost
// estimates. It takes the larger of the word count and runes/4, which tracks
// BPE tokenizers closely enough for English prose and tabular text.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	byRunes := utf8.RuneCountInString(text) / 4
	n := words
	if byRunes > n {
		n = byRunes
	}
	if n == 0 {
		return 1
	}
	return n
}

// TokenBreakdown counts tokens per labeled section.
func TokenBreakdown(sections map[string]string) map[string]int {
	out := make(map[string]int, len(sections))
	for k, v := range sections {
		out[k] = CountTokens(v)
	}
	return out
}
