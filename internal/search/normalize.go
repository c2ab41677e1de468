package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Hiragana letters U+3041..U+3096 map to katakana by a fixed offset.
const (
	hiraganaFirst = 'ぁ'
	hiraganaLast  = 'ゖ'
	kanaOffset    = 'ァ' - 'ぁ'
)

// Normalize folds s for matching: NFKC (which also composes half-width
// katakana with their voicing marks), width folding, lower case, hiragana to
// katakana, and runs of white space collapsed to one space.
func Normalize(s string) string {
	return string(appendNormalized(nil, s))
}

// appendNormalized appends the normalized runes of s to dst.
func appendNormalized(dst []rune, s string) []rune {
	s = width.Fold.String(norm.NFKC.String(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space && len(dst) > 0 {
				dst = append(dst, ' ')
			}
			space = true
			continue
		}
		space = false
		r = unicode.ToLower(r)
		if r >= hiraganaFirst && r <= hiraganaLast {
			r += kanaOffset
		}
		dst = append(dst, r)
	}
	if n := len(dst); n > 0 && dst[n-1] == ' ' {
		dst = dst[:n-1]
	}
	return dst
}

// isBlank reports whether s contains only white space.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
