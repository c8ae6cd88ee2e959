// Package dsexpr implements canonicalized algebraic expressions
// (design space component C3): the operators +, *, ^, =, <, >, and
// the unary time-derivative marker ".", constants, variables, and
// single-argument functions. Expressions evaluate against a dsvar.Pool
// and support free-variable enumeration and LHS/RHS extraction.
package dsexpr

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jlomnitz/dstoolbox/dsvar"
)

// Op identifies an operator node.
type Op int

const (
	Add Op = iota
	Mul
	Pow
	Eq
	Lt
	Gt
	Deriv // unary time-derivative, postfix "."
)

func (o Op) String() string {
	switch o {
	case Add:
		return "+"
	case Mul:
		return "*"
	case Pow:
		return "^"
	case Eq:
		return "="
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Deriv:
		return "."
	default:
		return "?"
	}
}

// Kind tags the variant a node holds.
type Kind int

const (
	KindOperator Kind = iota
	KindConstant
	KindVariable
	KindFunction
)

// Function names recognized for evaluation; enables complex
// intermediates (spec §3).
const (
	FuncSqrt  = "sqrt"
	FuncLog   = "log"
	FuncLog10 = "log10"
	FuncExp   = "exp"
	FuncReal  = "real"
	FuncImag  = "imag"
)

// Expr is a tagged expression node. Constructors enforce the
// per-operator child-count contract: Add/Mul take any number of
// children, Pow/Eq/Lt/Gt take exactly two, Deriv takes exactly one,
// and Constant/Variable/Function carry their own payload.
type Expr struct {
	kind Kind

	op       Op
	children []*Expr

	constant float64

	variable string

	fn    string
	fnArg *Expr
}

// Constant builds a constant leaf.
func Constant(v float64) *Expr {
	return &Expr{kind: KindConstant, constant: v}
}

// Variable builds a variable leaf referencing name.
func Variable(name string) *Expr {
	return &Expr{kind: KindVariable, variable: name}
}

// Function builds a single-argument function node.
func Function(name string, arg *Expr) *Expr {
	return &Expr{kind: KindFunction, fn: name, fnArg: arg}
}

// NewAdd builds a canonical sum: constant terms are folded into a
// single leading constant, and nested Add children are flattened.
func NewAdd(children ...*Expr) *Expr {
	return newVariadic(Add, children)
}

// NewMul builds a canonical product, folding constant factors to the
// front and flattening nested Mul children.
func NewMul(children ...*Expr) *Expr {
	return newVariadic(Mul, children)
}

func newVariadic(op Op, children []*Expr) *Expr {
	var flat []*Expr
	for _, c := range children {
		if c.kind == KindOperator && c.op == op {
			flat = append(flat, c.children...)
		} else {
			flat = append(flat, c)
		}
	}
	identity := 0.0
	if op == Mul {
		identity = 1.0
	}
	acc := identity
	var rest []*Expr
	for _, c := range flat {
		if c.kind == KindConstant {
			if op == Add {
				acc += c.constant
			} else {
				acc *= c.constant
			}
			continue
		}
		rest = append(rest, c)
	}
	if len(rest) == 0 {
		return Constant(acc)
	}
	var out []*Expr
	if acc != identity {
		out = append(out, Constant(acc))
	}
	out = append(out, rest...)
	if len(out) == 1 {
		return out[0]
	}
	return &Expr{kind: KindOperator, op: op, children: out}
}

func newBinary(op Op, a, b *Expr) *Expr {
	return &Expr{kind: KindOperator, op: op, children: []*Expr{a, b}}
}

// NewPow builds a^b.
func NewPow(a, b *Expr) *Expr { return newBinary(Pow, a, b) }

// NewEq builds a=b.
func NewEq(a, b *Expr) *Expr { return newBinary(Eq, a, b) }

// NewLt builds a<b.
func NewLt(a, b *Expr) *Expr { return newBinary(Lt, a, b) }

// NewGt builds a>b.
func NewGt(a, b *Expr) *Expr { return newBinary(Gt, a, b) }

// NewDeriv builds the time derivative of a single variable-rooted
// expression.
func NewDeriv(a *Expr) *Expr {
	return &Expr{kind: KindOperator, op: Deriv, children: []*Expr{a}}
}

// Sub builds a-b canonically, stored as a + (b * -1) per spec §3.
func Sub(a, b *Expr) *Expr {
	return NewAdd(a, NewMul(Constant(-1), b))
}

// Neg builds -a, stored as a * -1.
func Neg(a *Expr) *Expr {
	return NewMul(Constant(-1), a)
}

// Div builds a/b canonically, stored as a * b^-1.
func Div(a, b *Expr) *Expr {
	return NewMul(a, NewPow(b, Constant(-1)))
}

// Kind, Op, Children, ConstantValue, VariableName, FuncName, FuncArg
// are accessors exposing the tagged-variant payload.
func (e *Expr) Kind() Kind        { return e.kind }
func (e *Expr) Op() Op            { return e.op }
func (e *Expr) Children() []*Expr { return e.children }
func (e *Expr) ConstantValue() float64 {
	return e.constant
}
func (e *Expr) VariableName() string { return e.variable }
func (e *Expr) FuncName() string     { return e.fn }
func (e *Expr) FuncArg() *Expr       { return e.fnArg }

// LHS returns the left child of a relational/equality node (=, <, >).
// It panics if e is not such a node, mirroring gonum's panic-on-
// programmer-error convention for shape/contract violations.
func (e *Expr) LHS() *Expr {
	if e.kind != KindOperator || !(e.op == Eq || e.op == Lt || e.op == Gt) {
		panic("dsexpr: LHS called on a non-relational node")
	}
	return e.children[0]
}

// RHS returns the right child of a relational/equality node.
func (e *Expr) RHS() *Expr {
	if e.kind != KindOperator || !(e.op == Eq || e.op == Lt || e.op == Gt) {
		panic("dsexpr: RHS called on a non-relational node")
	}
	return e.children[1]
}

// IsTimeDerivative reports whether e is a "." node over a single
// variable, and if so returns that variable's name.
func (e *Expr) IsTimeDerivative() (string, bool) {
	if e.kind != KindOperator || e.op != Deriv {
		return "", false
	}
	if e.children[0].kind == KindVariable {
		return e.children[0].variable, true
	}
	return "", false
}

// FreeVariables returns the sorted, de-duplicated set of variable
// names appearing anywhere in e.
func (e *Expr) FreeVariables() []string {
	seen := map[string]bool{}
	e.walkVars(func(name string) { seen[name] = true })
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (e *Expr) walkVars(f func(string)) {
	switch e.kind {
	case KindVariable:
		f(e.variable)
	case KindFunction:
		e.fnArg.walkVars(f)
	case KindOperator:
		for _, c := range e.children {
			c.walkVars(f)
		}
	}
}

// Eval evaluates e against pool, returning a complex result so that
// sqrt/log of negative arguments and the "real"/"imag" projections
// behave sensibly (spec §3, "enabling complex intermediates").
func (e *Expr) Eval(pool *dsvar.Pool) (complex128, error) {
	switch e.kind {
	case KindConstant:
		return complex(e.constant, 0), nil
	case KindVariable:
		v, ok := pool.ValueOf(e.variable)
		if !ok {
			return 0, fmt.Errorf("dsexpr: unbound variable %q", e.variable)
		}
		return complex(v, 0), nil
	case KindFunction:
		arg, err := e.fnArg.Eval(pool)
		if err != nil {
			return 0, err
		}
		return evalFunc(e.fn, arg)
	case KindOperator:
		return e.evalOperator(pool)
	}
	return 0, fmt.Errorf("dsexpr: unknown node kind")
}

func (e *Expr) evalOperator(pool *dsvar.Pool) (complex128, error) {
	switch e.op {
	case Add:
		var acc complex128
		for _, c := range e.children {
			v, err := c.Eval(pool)
			if err != nil {
				return 0, err
			}
			acc += v
		}
		return acc, nil
	case Mul:
		acc := complex(1, 0)
		for _, c := range e.children {
			v, err := c.Eval(pool)
			if err != nil {
				return 0, err
			}
			acc *= v
		}
		return acc, nil
	case Pow:
		a, err := e.children[0].Eval(pool)
		if err != nil {
			return 0, err
		}
		b, err := e.children[1].Eval(pool)
		if err != nil {
			return 0, err
		}
		return cpow(a, b), nil
	case Eq, Lt, Gt:
		return 0, fmt.Errorf("dsexpr: relational node %v is not evaluable to a value", e.op)
	case Deriv:
		return 0, fmt.Errorf("dsexpr: time-derivative node is not evaluable without an ODE context")
	}
	return 0, fmt.Errorf("dsexpr: unknown operator %v", e.op)
}

func evalFunc(name string, arg complex128) (complex128, error) {
	switch name {
	case FuncSqrt:
		if imag(arg) == 0 && real(arg) >= 0 {
			return complex(math.Sqrt(real(arg)), 0), nil
		}
		return csqrt(arg), nil
	case FuncLog:
		if imag(arg) == 0 && real(arg) > 0 {
			return complex(math.Log(real(arg)), 0), nil
		}
		return clog(arg), nil
	case FuncLog10:
		if imag(arg) == 0 && real(arg) > 0 {
			return complex(math.Log10(real(arg)), 0), nil
		}
		l := clog(arg)
		return l / complex(math.Ln10, 0), nil
	case FuncExp:
		return cexp(arg), nil
	case FuncReal:
		return complex(real(arg), 0), nil
	case FuncImag:
		return complex(imag(arg), 0), nil
	}
	return 0, fmt.Errorf("dsexpr: unknown function %q", name)
}

// String renders e in infix form, used for test failure messages and
// error messages (dscase.Case.ConditionExpressionStrings renders
// condition rows itself and does not use it).
func (e *Expr) String() string {
	switch e.kind {
	case KindConstant:
		return formatFloat(e.constant)
	case KindVariable:
		return e.variable
	case KindFunction:
		return fmt.Sprintf("%s(%s)", e.fn, e.fnArg.String())
	case KindOperator:
		switch e.op {
		case Deriv:
			return e.children[0].String() + "."
		case Eq, Lt, Gt:
			return fmt.Sprintf("%s %s %s", e.children[0].String(), e.op, e.children[1].String())
		case Pow:
			return fmt.Sprintf("%s^%s", e.children[0].String(), e.children[1].String())
		case Add, Mul:
			parts := make([]string, len(e.children))
			for i, c := range e.children {
				parts[i] = c.String()
			}
			sep := " + "
			if e.op == Mul {
				sep = "*"
			}
			return strings.Join(parts, sep)
		}
	}
	return "?"
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
