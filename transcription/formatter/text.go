package formatter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ApplySmartFormatting capitalizes the first letter of the text and of
// every fragment following ". ".
func ApplySmartFormatting(text string) string {
	if text == "" {
		return text
	}
	fragments := strings.Split(text, ". ")
	for i, f := range fragments {
		fragments[i] = capitalize(f)
	}
	return capitalize(strings.Join(fragments, ". "))
}

// ApplyPunctuation collapses whitespace runs and ends the text with a
// period unless it already ends in ".", "!" or "?".
func ApplyPunctuation(text string) string {
	if text == "" {
		return text
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return text
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return text
	}
	return text + "."
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
