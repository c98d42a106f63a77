package ops

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dot5enko/simple-object-db/bits"
)

var (
	ErrBadPattern = errors.New("malformed wildcard pattern")
)

type tokenKind uint8

const (
	literalToken tokenKind = iota
	anyOneToken
	anyManyToken
)

type token struct {
	kind tokenKind
	r    rune
}

// Wildcard is a compiled, whole string pattern where `*` matches any run of characters,
// `?` exactly one character and `\` escapes the next character.
type Wildcard struct {
	source        string
	caseSensitive bool
	tokens        []token
}

func CompileWildcard(pattern string, caseSensitive bool) (*Wildcard, error) {

	w := &Wildcard{source: pattern, caseSensitive: caseSensitive}

	escaped := false
	for pos := 0; pos < len(pattern); {

		r, size := utf8.DecodeRuneInString(pattern[pos:])
		if r == utf8.RuneError && size == 1 {
			return nil, fmt.Errorf("%w: invalid utf-8 at byte %d", ErrBadPattern, pos)
		}
		pos += size

		if escaped {
			w.tokens = append(w.tokens, token{kind: literalToken, r: r})
			escaped = false
			continue
		}

		switch r {
		case '\\':
			escaped = true
		case '?':
			w.tokens = append(w.tokens, token{kind: anyOneToken})
		case '*':
			// consecutive stars are one star
			if n := len(w.tokens); n > 0 && w.tokens[n-1].kind == anyManyToken {
				continue
			}
			w.tokens = append(w.tokens, token{kind: anyManyToken})
		default:
			w.tokens = append(w.tokens, token{kind: literalToken, r: r})
		}
	}

	if escaped {
		return nil, fmt.Errorf("%w: dangling escape at the end of `%s`", ErrBadPattern, pattern)
	}

	return w, nil
}

func (w *Wildcard) String() string {
	return w.source
}

// closure adds the states reachable through stars without consuming input.
func (w *Wildcard) closure(set bits.Bitset) {
	for i := 0; i < len(w.tokens); i++ {
		if set.Has(i) && w.tokens[i].kind == anyManyToken {
			set.Set(i + 1)
		}
	}
}

// Match runs the pattern as an NFA over s, in O(len(s) * len(pattern)).
func (w *Wildcard) Match(s string) bool {

	n := len(w.tokens)

	current := bits.NewBitset(n + 1)
	next := bits.NewBitset(n + 1)

	current.Set(0)
	w.closure(current)

	for _, r := range s {

		if !current.Any() {
			return false
		}

		next.Reset()

		current.Each(func(state int) {
			if state == n {
				return
			}
			t := w.tokens[state]
			switch t.kind {
			case anyManyToken:
				next.Set(state)
			case anyOneToken:
				next.Set(state + 1)
			case literalToken:
				if t.r == r || (!w.caseSensitive && runeEqualFold(t.r, r)) {
					next.Set(state + 1)
				}
			}
		})

		w.closure(next)
		current, next = next, current
	}

	return current.Has(n)
}
