package dsparse

import (
	"testing"

	"github.com/jlomnitz/dstoolbox/dsexpr"
)

func TestParseEquationDifferential(t *testing.T) {
	e, err := ParseEquation("x1. = a1 * x2^2 - b1 * x1")
	if err != nil {
		t.Fatalf("ParseEquation: %v", err)
	}
	if e.Op() != dsexpr.Eq {
		t.Fatalf("top-level node should be an equality, got %v", e.Op())
	}
	name, ok := e.LHS().IsTimeDerivative()
	if !ok || name != "x1" {
		t.Fatalf("LHS should be the time derivative of x1, got %v", e.LHS())
	}
	rhsVars := e.RHS().FreeVariables()
	want := map[string]bool{"a1": true, "x2": true, "b1": true, "x1": true}
	for _, v := range rhsVars {
		if !want[v] {
			t.Fatalf("unexpected variable %q in RHS", v)
		}
	}
}

func TestParseEquationOperatorPrecedence(t *testing.T) {
	e, err := ParseEquation("y = 2 + 3 * x^2")
	if err != nil {
		t.Fatalf("ParseEquation: %v", err)
	}
	rhs := e.RHS()
	if rhs.Op() != dsexpr.Add {
		t.Fatalf("expected the top-level RHS operator to be +, got %v", rhs.Op())
	}
}

func TestParseEquationInequality(t *testing.T) {
	e, err := ParseEquation("2*x1 - x2 + 1 > 0")
	if err != nil {
		t.Fatalf("ParseEquation: %v", err)
	}
	if e.Op() != dsexpr.Gt {
		t.Fatalf("expected a > node, got %v", e.Op())
	}
}

func TestParseEquationRejectsGarbage(t *testing.T) {
	if _, err := ParseEquation("x1 = ("); err == nil {
		t.Fatalf("expected a parse error for unbalanced parentheses")
	}
	if _, err := ParseEquation("x1 $ x2"); err == nil {
		t.Fatalf("expected a parse error for an unrecognized character")
	}
}

func TestParseEquationsStopsAtFirstError(t *testing.T) {
	_, err := ParseEquations([]string{"x1 = x2", "not valid $"})
	if err == nil {
		t.Fatalf("expected an error from the second equation")
	}
}
