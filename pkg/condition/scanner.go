package condition

import (
	"fmt"
	"unicode"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokAnd    // &&
	tokOr     // ||
	tokNot    // !
	tokEq     // ==
	tokIn     // in
	tokLParen // (
	tokRParen // )
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func identRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-'
}

func scan(input string) ([]token, error) {
	var toks []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == '!':
			toks = append(toks, token{tokNot, "!", i})
			i++
		case r == '&':
			if i+1 >= len(runes) || runes[i+1] != '&' {
				return nil, fmt.Errorf("expected && at position %d", i)
			}
			toks = append(toks, token{tokAnd, "&&", i})
			i += 2
		case r == '|':
			if i+1 >= len(runes) || runes[i+1] != '|' {
				return nil, fmt.Errorf("expected || at position %d", i)
			}
			toks = append(toks, token{tokOr, "||", i})
			i += 2
		case r == '=':
			if i+1 >= len(runes) || runes[i+1] != '=' {
				return nil, fmt.Errorf("expected == at position %d", i)
			}
			toks = append(toks, token{tokEq, "==", i})
			i += 2
		case r == '\'':
			start := i
			i++
			for i < len(runes) && runes[i] != '\'' {
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("unterminated string starting at position %d", start)
			}
			toks = append(toks, token{tokString, string(runes[start+1 : i]), start})
			i++
		case identRune(r):
			start := i
			for i < len(runes) && identRune(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			if word == "in" {
				toks = append(toks, token{tokIn, word, start})
			} else {
				toks = append(toks, token{tokIdent, word, start})
			}
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
		}
	}
	return toks, nil
}
