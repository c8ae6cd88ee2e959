package dsexpr

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jlomnitz/dstoolbox/dsvar"
)

func TestNewAddFoldsConstants(t *testing.T) {
	e := NewAdd(Constant(1), Variable("x"), Constant(2))
	if e.Kind() != KindOperator || e.Op() != Add {
		t.Fatalf("expected an Add node")
	}
	children := e.Children()
	if len(children) != 2 {
		t.Fatalf("expected folded constant + variable, got %d children", len(children))
	}
	if children[0].Kind() != KindConstant || children[0].ConstantValue() != 3 {
		t.Fatalf("expected folded constant 3, got %v", children[0])
	}
}

func TestNewMulFlattensNested(t *testing.T) {
	inner := NewMul(Variable("x"), Variable("y"))
	e := NewMul(Constant(2), inner, Variable("z"))
	children := e.Children()
	if len(children) != 4 {
		t.Fatalf("expected flattened product of 4 factors, got %d: %v", len(children), e)
	}
}

func TestSubAndNegCanonicalForm(t *testing.T) {
	e := Sub(Variable("x"), Variable("y"))
	if e.Op() != Add {
		t.Fatalf("Sub should canonicalize to Add, got %v", e.Op())
	}
	neg := Neg(Variable("x"))
	if neg.Op() != Mul {
		t.Fatalf("Neg should canonicalize to Mul, got %v", neg.Op())
	}
}

func TestIsTimeDerivative(t *testing.T) {
	d := NewDeriv(Variable("x1"))
	name, ok := d.IsTimeDerivative()
	if !ok || name != "x1" {
		t.Fatalf("IsTimeDerivative() = (%q, %v), want (x1, true)", name, ok)
	}
	if _, ok := Variable("x1").IsTimeDerivative(); ok {
		t.Fatalf("a bare variable should not be a time derivative")
	}
}

func TestLHSRHSPanicOnNonRelational(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected LHS() to panic on a non-relational node")
		}
	}()
	Variable("x").LHS()
}

func TestFreeVariablesSortedAndDeduped(t *testing.T) {
	e := NewEq(Variable("x1"), NewAdd(Variable("x2"), Variable("x1"), Function("sqrt", Variable("x3"))))
	got := e.FreeVariables()
	want := []string{"x1", "x2", "x3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FreeVariables() mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalArithmetic(t *testing.T) {
	pool := dsvar.New()
	pool.Add("x1", 2.0)
	pool.Add("x2", 3.0)

	e := NewAdd(NewMul(Constant(2), Variable("x1")), NewPow(Variable("x2"), Constant(2)))
	v, err := e.Eval(pool)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if real(v) != 13 || imag(v) != 0 {
		t.Fatalf("Eval() = %v, want 13", v)
	}
}

func TestEvalSqrtOfNegativeIsComplex(t *testing.T) {
	pool := dsvar.New()
	pool.Add("x1", -4.0)
	e := Function(FuncSqrt, Variable("x1"))
	v, err := e.Eval(pool)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if math.Abs(real(v)) > 1e-9 || math.Abs(imag(v)-2) > 1e-9 {
		t.Fatalf("Eval(sqrt(-4)) = %v, want 2i", v)
	}
}

func TestEvalUnboundVariableErrors(t *testing.T) {
	pool := dsvar.New()
	if _, err := Variable("missing").Eval(pool); err == nil {
		t.Fatalf("expected an error evaluating an unbound variable")
	}
}

func TestStringRendersInfix(t *testing.T) {
	e := NewEq(Variable("x1"), NewPow(Variable("x2"), Constant(2)))
	got := e.String()
	want := "x1 = x2^2"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
