package expr

import (
	"github.com/shopspring/decimal"
)

// Program is a compiled expression, safe for concurrent evaluation. Engines
// compile each rule expression once at load time and cache the program.
type Program struct {
	src  string
	root node
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.src }

// Compile parses src into a reusable Program. Malformed input returns a
// *SyntaxError.
func Compile(src string) (*Program, error) {
	p := &parser{lex: lexer{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: p.tok.pos, Msg: "unexpected trailing input " + p.tok.text}
	}
	return &Program{src: src, root: root}, nil
}

type parser struct {
	lex lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.tok.kind != kind {
		return &SyntaxError{Pos: p.tok.pos, Msg: "expected " + what}
	}
	return p.advance()
}

// Precedence climbing, lowest first: ?: then || then && then == != then
// < <= > >= then + - then * /.

func (p *parser) parseTernary() (node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokQuestion {
		return cond, nil
	}
	pos := p.tok.pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokColon, "':' in ternary expression"); err != nil {
		return nil, err
	}
	alt, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &condNode{p: pos, cond: cond, then: then, alt: alt}, nil
}

func (p *parser) parseOr() (node, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = &binaryNode{p: pos, op: tokOr, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseAnd() (node, error) {
	lhs, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		lhs = &binaryNode{p: pos, op: tokAnd, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseEquality() (node, error) {
	lhs, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokEq || p.tok.kind == tokNeq {
		op, pos := p.tok.kind, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		lhs = &binaryNode{p: pos, op: op, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseRelational() (node, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokLt || p.tok.kind == tokLte || p.tok.kind == tokGt || p.tok.kind == tokGte {
		op, pos := p.tok.kind, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		lhs = &binaryNode{p: pos, op: op, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseAdditive() (node, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPlus || p.tok.kind == tokMinus {
		op, pos := p.tok.kind, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = &binaryNode{p: pos, op: op, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseMultiplicative() (node, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokStar || p.tok.kind == tokSlash {
		op, pos := p.tok.kind, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = &binaryNode{p: pos, op: op, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseUnary() (node, error) {
	switch p.tok.kind {
	case tokNot, tokMinus:
		op, pos := p.tok.kind, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{p: pos, op: op, x: x}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles primary expressions followed by any chain of
// .field selections and .method(...) calls.
func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokIdent {
			return nil, &SyntaxError{Pos: p.tok.pos, Msg: "expected field name after '.'"}
		}
		name, pos := p.tok.text, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokLParen {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			n = &methodNode{p: pos, recv: n, name: name, args: args}
			continue
		}
		n = &selectNode{p: pos, base: n, field: name}
	}
	return n, nil
}

func (p *parser) parsePrimary() (node, error) {
	switch p.tok.kind {
	case tokNumber:
		d, err := decimal.NewFromString(p.tok.text)
		if err != nil {
			return nil, &SyntaxError{Pos: p.tok.pos, Msg: "invalid number " + p.tok.text}
		}
		n := &literal{p: p.tok.pos, val: d}
		return n, p.advance()
	case tokString:
		n := &literal{p: p.tok.pos, val: p.tok.text}
		return n, p.advance()
	case tokIdent:
		name, pos := p.tok.text, p.tok.pos
		switch name {
		case "true":
			return &literal{p: pos, val: true}, p.advance()
		case "false":
			return &literal{p: pos, val: false}, p.advance()
		case "null":
			return &literal{p: pos, val: nil}, p.advance()
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokLParen {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &callNode{p: pos, name: name, args: args}, nil
		}
		return &ident{p: pos, name: name}, nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "closing ')'"); err != nil {
			return nil, err
		}
		return n, nil
	case tokEOF:
		return nil, &SyntaxError{Pos: p.tok.pos, Msg: "unexpected end of expression"}
	}
	return nil, &SyntaxError{Pos: p.tok.pos, Msg: "unexpected token " + p.tok.text}
}

// parseArgs consumes "(", a comma-separated argument list, and ")".
func (p *parser) parseArgs() ([]node, error) {
	if err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []node
	if p.tok.kind == tokRParen {
		return args, p.advance()
	}
	for {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expect(tokRParen, "closing ')' in argument list"); err != nil {
		return nil, err
	}
	return args, nil
}
