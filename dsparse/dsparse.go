// Package dsparse is a minimal recursive-descent reader from equation
// strings to dsexpr.Expr trees. The input grammar and tokenizer are
// explicitly out of scope for this engine (spec §1) as an engineering
// concern in their own right, but C4's own contract takes "an ordered
// list of parsed equations" (spec §4.1) rather than strings, and the
// design space's AddConstraints takes constraint strings — this
// package is the small amount of plumbing from strings to those trees.
// (The cyclical-case resolver builds its rewritten equations as
// dsexpr trees directly and does not use it.) It is kept deliberately
// narrow:
// operator precedence only, no diagnostics beyond a position-free
// error.
package dsparse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jlomnitz/dstoolbox/dsexpr"
)

// ParseEquation parses a single equation of the form
// "expr = expr", "expr < expr", or "expr > expr" into a relational
// dsexpr.Expr.
func ParseEquation(s string) (*dsexpr.Expr, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("dsparse: unexpected trailing input in %q", s)
	}
	return e, nil
}

// ParseEquations parses every string in ss, stopping at the first
// error.
func ParseEquations(ss []string) ([]*dsexpr.Expr, error) {
	out := make([]*dsexpr.Expr, 0, len(ss))
	for _, s := range ss {
		e, err := ParseEquation(s)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

type tokKind int

const (
	tokNum tokKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
	num  float64
}

func tokenize(s string) ([]token, error) {
	var toks []token
	r := []rune(s)
	i := 0
	for i < len(r) {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		case strings.ContainsRune("+-*/^=<>.", c):
			toks = append(toks, token{kind: tokOp, text: string(c)})
			i++
		case unicode.IsDigit(c) || c == '.' && i+1 < len(r) && unicode.IsDigit(r[i+1]):
			j := i
			for j < len(r) && (unicode.IsDigit(r[j]) || r[j] == '.' || r[j] == 'e' || r[j] == 'E' ||
				((r[j] == '+' || r[j] == '-') && j > i && (r[j-1] == 'e' || r[j-1] == 'E'))) {
				j++
			}
			v, err := strconv.ParseFloat(string(r[i:j]), 64)
			if err != nil {
				return nil, fmt.Errorf("dsparse: bad numeric literal %q", string(r[i:j]))
			}
			toks = append(toks, token{kind: tokNum, num: v})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(r) && (unicode.IsLetter(r[j]) || unicode.IsDigit(r[j]) || r[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(r[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("dsparse: unexpected character %q", string(c))
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) peekOp(op string) bool {
	t, ok := p.peek()
	return ok && t.kind == tokOp && t.text == op
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

// parseRelational handles the top-level "expr (= | < | >) expr" form.
func (p *parser) parseRelational() (*dsexpr.Expr, error) {
	lhs, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if p.peekOp("=") {
		p.next()
		rhs, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return dsexpr.NewEq(lhs, rhs), nil
	}
	if p.peekOp("<") {
		p.next()
		rhs, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return dsexpr.NewLt(lhs, rhs), nil
	}
	if p.peekOp(">") {
		p.next()
		rhs, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return dsexpr.NewGt(lhs, rhs), nil
	}
	return lhs, nil
}

func (p *parser) parseSum() (*dsexpr.Expr, error) {
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []*dsexpr.Expr{term}
	for {
		switch {
		case p.peekOp("+"):
			p.next()
			t, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		case p.peekOp("-"):
			p.next()
			t, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			terms = append(terms, dsexpr.Neg(t))
		default:
			return dsexpr.NewAdd(terms...), nil
		}
	}
}

func (p *parser) parseTerm() (*dsexpr.Expr, error) {
	factor, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	factors := []*dsexpr.Expr{factor}
	for {
		switch {
		case p.peekOp("*"):
			p.next()
			f, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			factors = append(factors, f)
		case p.peekOp("/"):
			p.next()
			f, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			factors = append(factors, dsexpr.NewPow(f, dsexpr.Constant(-1)))
		default:
			return dsexpr.NewMul(factors...), nil
		}
	}
}

func (p *parser) parseUnary() (*dsexpr.Expr, error) {
	if p.peekOp("-") {
		p.next()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return dsexpr.Neg(e), nil
	}
	if p.peekOp("+") {
		p.next()
		return p.parseUnary()
	}
	return p.parsePow()
}

func (p *parser) parsePow() (*dsexpr.Expr, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.peekOp("^") {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return dsexpr.NewPow(base, exp), nil
	}
	return base, nil
}

// parsePostfix handles the time-derivative marker "." applied to the
// primary expression it follows.
func (p *parser) parsePostfix() (*dsexpr.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peekOp(".") {
		p.next()
		e = dsexpr.NewDeriv(e)
	}
	return e, nil
}

func (p *parser) parsePrimary() (*dsexpr.Expr, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("dsparse: unexpected end of input")
	}
	switch t.kind {
	case tokNum:
		p.next()
		return dsexpr.Constant(t.num), nil
	case tokLParen:
		p.next()
		e, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if !p.expectRParen() {
			return nil, fmt.Errorf("dsparse: missing closing parenthesis")
		}
		return e, nil
	case tokIdent:
		p.next()
		if lp, ok := p.peek(); ok && lp.kind == tokLParen {
			p.next()
			arg, err := p.parseSum()
			if err != nil {
				return nil, err
			}
			if !p.expectRParen() {
				return nil, fmt.Errorf("dsparse: missing closing parenthesis in call to %s", t.text)
			}
			return dsexpr.Function(t.text, arg), nil
		}
		return dsexpr.Variable(t.text), nil
	}
	return nil, fmt.Errorf("dsparse: unexpected token")
}

func (p *parser) expectRParen() bool {
	t, ok := p.peek()
	if !ok || t.kind != tokRParen {
		return false
	}
	p.next()
	return true
}
