// Package expr evaluates the small arithmetic language accepted by amount
// and budget input fields: decimal literals, + - * /, unary minus and
// parentheses.
package expr

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	ErrSyntax         = errors.New("syntax error")
	ErrDivisionByZero = errors.New("division by zero")
)

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 64

// Evaluate parses and evaluates s.
//
//	Evaluate("4/2-1")    -> 1
//	Evaluate("-(1.5*2)") -> -3
//	Evaluate("2,5+1")    -> 3.5
func Evaluate(s string) (decimal.Decimal, error) {
	p := &parser{src: []rune(s)}
	p.skipSpace()
	if p.done() {
		return decimal.Zero, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	v, err := p.expr(0)
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpace()
	if !p.done() {
		return decimal.Zero, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, p.src[p.pos], p.pos)
	}
	return v, nil
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) skipSpace() {
	for !p.done() && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

// peek returns the next non-space rune, or 0 at end of input.
func (p *parser) peek() rune {
	p.skipSpace()
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

// expr := term (('+' | '-') term)*
func (p *parser) expr(depth int) (decimal.Decimal, error) {
	left, err := p.term(depth)
	if err != nil {
		return decimal.Zero, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.term(depth)
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Add(right)
		case '-':
			p.pos++
			right, err := p.term(depth)
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

// term := unary (('*' | '/') unary)*
func (p *parser) term(depth int) (decimal.Decimal, error) {
	left, err := p.unary(depth)
	if err != nil {
		return decimal.Zero, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.unary(depth)
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Mul(right)
		case '/':
			p.pos++
			right, err := p.unary(depth)
			if err != nil {
				return decimal.Zero, err
			}
			if right.IsZero() {
				return decimal.Zero, ErrDivisionByZero
			}
			left = left.Div(right)
		default:
			return left, nil
		}
	}
}

// unary := ('-' | '+') unary | primary
func (p *parser) unary(depth int) (decimal.Decimal, error) {
	if depth > maxDepth {
		return decimal.Zero, fmt.Errorf("%w: nesting too deep", ErrSyntax)
	}
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.unary(depth + 1)
		if err != nil {
			return decimal.Zero, err
		}
		return v.Neg(), nil
	case '+':
		p.pos++
		return p.unary(depth + 1)
	}
	return p.primary(depth)
}

// primary := number | '(' expr ')'
func (p *parser) primary(depth int) (decimal.Decimal, error) {
	switch r := p.peek(); {
	case r == '(':
		p.pos++
		v, err := p.expr(depth + 1)
		if err != nil {
			return decimal.Zero, err
		}
		if p.peek() != ')' {
			return decimal.Zero, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		p.pos++
		return v, nil
	case unicode.IsDigit(r) || r == '.' || r == ',':
		return p.number()
	case r == 0:
		return decimal.Zero, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	default:
		return decimal.Zero, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, r, p.pos)
	}
}

func (p *parser) number() (decimal.Decimal, error) {
	start := p.pos
	var b strings.Builder
	seenSep, seenDigit := false, false
scan:
	for ; !p.done(); p.pos++ {
		switch r := p.src[p.pos]; {
		case unicode.IsDigit(r):
			seenDigit = true
			b.WriteRune(r)
		case r == '.' || r == ',':
			if seenSep {
				return decimal.Zero, fmt.Errorf("%w: malformed number at offset %d", ErrSyntax, start)
			}
			seenSep = true
			b.WriteRune('.')
		default:
			break scan
		}
	}
	if !seenDigit {
		return decimal.Zero, fmt.Errorf("%w: malformed number at offset %d", ErrSyntax, start)
	}
	lit := strings.TrimSuffix(b.String(), ".")
	if strings.HasPrefix(lit, ".") {
		lit = "0" + lit
	}
	v, err := decimal.NewFromString(lit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return v, nil
}
