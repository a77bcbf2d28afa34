package textmatch

import (
	"regexp"
	"strings"
)

var (
	urlPattern = regexp.MustCompile(`https?://\S+`)
	// codeBlockPattern strips fenced code blocks; \x60 is a backtick,
	// which Go raw strings cannot contain.
	codeBlockPattern   = regexp.MustCompile("\x60\x60\x60[^\x60]*\x60\x60\x60")
	nonAlphanumeric    = regexp.MustCompile(`[^a-z0-9\s]`)
	repeatedWhitespace = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text and strips URLs, code blocks, and punctuation so
// that tokenization sees only bare words.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, "")
	text = codeBlockPattern.ReplaceAllString(text, "")
	text = nonAlphanumeric.ReplaceAllString(text, " ")
	text = repeatedWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Tokenize returns the set of distinct words in the normalized text.
func Tokenize(text string) map[string]struct{} {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	words := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		words[w] = struct{}{}
	}
	return words
}
