package filter

import "fmt"

// Grammar:
//
//	expr    := and (OR and)*
//	and     := unary (AND unary)*
//	unary   := NOT unary | primary
//	primary := '(' expr ')' | operand op operand
//	operand := IDENT | STRING | NUMBER
type parser struct {
	toks []token
	pos  int
	cols map[string]bool
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andExpr{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr, error) {
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at position %d", p.peek().pos)
		}
		p.next()
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	opTok := p.peek()
	if opTok.kind != tokOp {
		return nil, fmt.Errorf("expected comparison operator at position %d, got %q", opTok.pos, opTok.text)
	}
	p.next()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return cmpExpr{left: left, right: right, op: opTok.text}, nil
}

func (p *parser) parseOperand() (operand, error) {
	t := p.peek()
	switch t.kind {
	case tokIdent:
		p.next()
		p.cols[t.text] = true
		return operand{column: true, text: t.text}, nil
	case tokString, tokNumber:
		p.next()
		return operand{text: t.text}, nil
	default:
		return operand{}, fmt.Errorf("expected column, string, or number at position %d, got %q", t.pos, t.text)
	}
}
