package condition

import "fmt"

type parser struct {
	toks []token
	i    int
}

func (p *parser) eof() bool { return p.i >= len(p.toks) }

func (p *parser) peek() token {
	if p.eof() {
		return token{pos: -1, text: "end of expression"}
	}
	return p.toks[p.i]
}

func (p *parser) accept(kind tokenKind) (token, bool) {
	if !p.eof() && p.toks[p.i].kind == kind {
		t := p.toks[p.i]
		p.i++
		return t, true
	}
	return token{}, false
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokOr); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orExpr{left: left, right: right}
	}
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokAnd); !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &andExpr{left: left, right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if _, ok := p.accept(tokNot); ok {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notExpr{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if _, ok := p.accept(tokLParen); ok {
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(tokRParen); !ok {
			return nil, fmt.Errorf("missing ) before %q", p.peek().text)
		}
		return inner, nil
	}

	// 'literal' in key
	if lit, ok := p.accept(tokString); ok {
		if _, ok := p.accept(tokIn); !ok {
			return nil, fmt.Errorf("string literal %q must be followed by 'in'", lit.text)
		}
		key, ok := p.accept(tokIdent)
		if !ok {
			return nil, fmt.Errorf("expected key after 'in', got %q", p.peek().text)
		}
		return &containsExpr{value: lit.text, key: key.text}, nil
	}

	ident, ok := p.accept(tokIdent)
	if !ok {
		return nil, fmt.Errorf("expected expression, got %q", p.peek().text)
	}

	switch ident.text {
	case "true":
		return &literalExpr{value: true}, nil
	case "false":
		return &literalExpr{value: false}, nil
	}

	// key == literal
	if _, ok := p.accept(tokEq); ok {
		if lit, ok := p.accept(tokString); ok {
			return &eqExpr{key: ident.text, value: lit.text}, nil
		}
		if lit, ok := p.accept(tokIdent); ok {
			return &eqExpr{key: ident.text, value: lit.text}, nil
		}
		return nil, fmt.Errorf("expected literal after ==, got %q", p.peek().text)
	}

	// bare key: existence test
	return &existsExpr{key: ident.text}, nil
}
