package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokDot
	tokComma
	tokLParen
	tokRParen
	tokNot      // !
	tokAnd      // &&
	tokOr       // ||
	tokEq       // ==
	tokNeq      // !=
	tokLt       // <
	tokLte      // <=
	tokGt       // >
	tokGte      // >=
	tokPlus     // +
	tokMinus    // -
	tokStar     // *
	tokSlash    // /
	tokQuestion // ?
	tokColon    // :
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		break
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch c {
	case '.':
		l.pos++
		return token{tokDot, ".", start}, nil
	case ',':
		l.pos++
		return token{tokComma, ",", start}, nil
	case '(':
		l.pos++
		return token{tokLParen, "(", start}, nil
	case ')':
		l.pos++
		return token{tokRParen, ")", start}, nil
	case '?':
		l.pos++
		return token{tokQuestion, "?", start}, nil
	case ':':
		l.pos++
		return token{tokColon, ":", start}, nil
	case '+':
		l.pos++
		return token{tokPlus, "+", start}, nil
	case '-':
		l.pos++
		return token{tokMinus, "-", start}, nil
	case '*':
		l.pos++
		return token{tokStar, "*", start}, nil
	case '/':
		l.pos++
		return token{tokSlash, "/", start}, nil
	case '!':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{tokNeq, "!=", start}, nil
		}
		l.pos++
		return token{tokNot, "!", start}, nil
	case '=':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{tokEq, "==", start}, nil
		}
		return token{}, &SyntaxError{Pos: start, Msg: "unexpected '=' (use '==')"}
	case '&':
		if l.peekAt(1) == '&' {
			l.pos += 2
			return token{tokAnd, "&&", start}, nil
		}
		return token{}, &SyntaxError{Pos: start, Msg: "unexpected '&' (use '&&')"}
	case '|':
		if l.peekAt(1) == '|' {
			l.pos += 2
			return token{tokOr, "||", start}, nil
		}
		return token{}, &SyntaxError{Pos: start, Msg: "unexpected '|' (use '||')"}
	case '<':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{tokLte, "<=", start}, nil
		}
		l.pos++
		return token{tokLt, "<", start}, nil
	case '>':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{tokGte, ">=", start}, nil
		}
		l.pos++
		return token{tokGt, ">", start}, nil
	case '"', '\'':
		return l.scanString(c)
	}

	if c >= '0' && c <= '9' {
		return l.scanNumber()
	}
	if isIdentStart(rune(c)) {
		return l.scanIdent()
	}

	return token{}, &SyntaxError{Pos: start, Msg: "unexpected character " + string(c)}
}

func (l *lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) scanString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return token{tokString, sb.String(), start}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			c = l.src[l.pos]
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, &SyntaxError{Pos: start, Msg: "unterminated string literal"}
}

func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c >= '0' && c <= '9' {
			l.pos++
			continue
		}
		if c == '.' && !seenDot && l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9' {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	return token{tokNumber, l.src[start:l.pos], start}, nil
}

func (l *lexer) scanIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.pos += size
	}
	return token{tokIdent, l.src[start:l.pos], start}, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
