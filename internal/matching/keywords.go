package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minKeywordLen = 2
	maxKeywords   = 15
)

// ExtractKeywords splits normalized text on whitespace, commas, periods,
// slashes and parentheses, keeps only letters and numbers of each token, and
// returns the first 15 tokens that are at least two characters long.
func ExtractKeywords(s string) []string {
	tokens := strings.FieldsFunc(normalize(s), isKeywordSeparator)
	out := make([]string, 0, maxKeywords)
	for _, tok := range tokens {
		word := strings.Map(keepLetterOrNumber, tok)
		if utf8.RuneCountInString(word) < minKeywordLen {
			continue
		}
		out = append(out, word)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func isKeywordSeparator(r rune) bool {
	switch r {
	case ',', '.', '/', '(', ')':
		return true
	}
	return unicode.IsSpace(r)
}

func keepLetterOrNumber(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return r
	}
	return -1
}
