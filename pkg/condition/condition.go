// Package condition implements the small boolean language used to guard
// workflow edges. Expressions are evaluated over an instance's accumulated
// state map.
//
// Grammar:
//
//	expr    := or
//	or      := and ("||" and)*
//	and     := unary ("&&" unary)*
//	unary   := "!" unary | primary
//	primary := "(" expr ")" | "true" | "false" | test
//	test    := ident "==" literal            equality
//	         | "'" chars "'" "in" ident      membership in a stored collection
//	         | ident                         existence
//	literal := "'" chars "'" | ident
//
// Keys that were never set evaluate as absent: existence is false, equality
// is false, membership is false. There is no stricter typing; malformed
// expressions are rejected at parse time, never at evaluation time.
package condition

import "fmt"

// Expr is a parsed condition, ready to evaluate against a state map.
type Expr interface {
	// Eval reports whether the condition holds for the given state.
	Eval(state map[string]any) bool

	// String renders the expression in canonical form.
	String() string
}

// Parse compiles an expression string. A nil error guarantees Eval cannot
// fail at traversal time, which is what lets definition loading reject all
// malformed conditions up front.
func Parse(input string) (Expr, error) {
	toks, err := scan(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, fmt.Errorf("unexpected %q at position %d", p.peek().text, p.peek().pos)
	}
	return expr, nil
}

// MustParse is Parse for expressions known valid at compile time.
func MustParse(input string) Expr {
	expr, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return expr
}
