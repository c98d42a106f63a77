package ops

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func StartsWith(s, prefix string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.HasPrefix(s, prefix)
	}

	for _, p := range prefix {
		if len(s) == 0 {
			return false
		}
		r, size := utf8.DecodeRuneInString(s)
		if !runeEqualFold(r, p) {
			return false
		}
		s = s[size:]
	}
	return true
}

func EndsWith(s, suffix string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.HasSuffix(s, suffix)
	}

	for len(suffix) > 0 {
		if len(s) == 0 {
			return false
		}
		r, size := utf8.DecodeLastRuneInString(s)
		p, psize := utf8.DecodeLastRuneInString(suffix)
		if !runeEqualFold(r, p) {
			return false
		}
		s = s[:len(s)-size]
		suffix = suffix[:len(suffix)-psize]
	}
	return true
}

func Contains(s, sub string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(s, sub)
	}
	if sub == "" {
		return true
	}

	for i := range s {
		if StartsWith(s[i:], sub, false) {
			return true
		}
	}
	return false
}

func Equal(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return Fold(a) == Fold(b)
}

// FoldRune maps every rune of a simple case folding orbit (k, K and the Kelvin sign)
// to one representative, the lower case of the orbit's smallest rune.
func FoldRune(r rune) rune {
	least := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		least = min(least, f)
	}
	return unicode.ToLower(least)
}

// Fold is the case-insensitive form of s used for equality, ordering and grouping.
func Fold(s string) string {
	return strings.Map(FoldRune, s)
}

func runeEqualFold(a, b rune) bool {
	return a == b || FoldRune(a) == FoldRune(b)
}
