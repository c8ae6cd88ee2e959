package dscase

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/jlomnitz/dstoolbox/dsgma"
	"github.com/jlomnitz/dstoolbox/dserrors"
	"github.com/jlomnitz/dstoolbox/dsparse"
)

// scenarioA builds spec Scenario A's two-variable autocatalytic loop.
// Both of its cases, (1,1,1,1) and (2,1,1,1), are non-singular (hand-
// verified against the actual Gd/Hd term-selection convention); use
// linearCycle below wherever a test needs a genuinely singular case.
func scenarioA(t *testing.T) *dsgma.GMA {
	t.Helper()
	eqs, err := dsparse.ParseEquations([]string{
		"x1. = a + b*x1*x2 - c*x1",
		"x2. = c*x1 - x2",
	})
	if err != nil {
		t.Fatalf("ParseEquations: %v", err)
	}
	g, err := dsgma.Build(eqs)
	if err != nil {
		t.Fatalf("dsgma.Build: %v", err)
	}
	return g
}

// linearCycle builds a two-variable mutual-inhibition loop whose single
// case, (1,1,1,1), is genuinely singular: A_d=[[1,-1],[-1,1]], det=0.
func linearCycle(t *testing.T) *dsgma.GMA {
	t.Helper()
	eqs, err := dsparse.ParseEquations([]string{
		"x1. = a*x1 - b*x2",
		"x2. = c*x2 - d*x1",
	})
	if err != nil {
		t.Fatalf("ParseEquations: %v", err)
	}
	g, err := dsgma.Build(eqs)
	if err != nil {
		t.Fatalf("dsgma.Build: %v", err)
	}
	return g
}

func TestBuildNonSingularCaseHasBoundary(t *testing.T) {
	g := scenarioA(t)
	c, err := Build(g, []int{1, 1, 1, 1}, Options{Endianness: dserrors.BigEndian})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !c.HasBoundary() {
		t.Fatalf("a non-singular case should have U/Zeta")
	}
	rows, cols := c.U.Dims()
	if cols != g.M() {
		t.Fatalf("U has %d columns, want %d (|Xi|)", cols, g.M())
	}
	if rows == 0 {
		t.Fatalf("equation 1 has 2 positive terms: expect at least one condition row")
	}
}

func TestBuildSingularCaseHasNoBoundary(t *testing.T) {
	g := linearCycle(t)
	c, err := Build(g, []int{1, 1, 1, 1}, Options{Endianness: dserrors.BigEndian})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.HasBoundary() {
		t.Fatalf("a singular (cyclical) case should have no boundary matrices")
	}
}

func TestBuildAssignsCaseNumber(t *testing.T) {
	g := scenarioA(t)
	c, err := Build(g, []int{1, 1, 1, 1}, Options{Endianness: dserrors.BigEndian})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.Number != 1 {
		t.Fatalf("Number = %d, want 1 for the all-ones signature", c.Number)
	}
	if c.Identifier != "1" {
		t.Fatalf("Identifier = %q, want %q", c.Identifier, "1")
	}
}

func TestBuildRejectsOutOfRangeSignature(t *testing.T) {
	g := scenarioA(t)
	if _, err := Build(g, []int{9, 1, 1, 1}, Options{}); err == nil {
		t.Fatalf("Build should reject a signature digit out of range")
	}
}

func TestSignatureString(t *testing.T) {
	g := scenarioA(t)
	c, err := Build(g, []int{2, 1, 1, 1}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "2,1|1,1"
	if got := c.SignatureString(); got != want {
		t.Fatalf("SignatureString() = %q, want %q", got, want)
	}
	if got := c.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestLogGainDelegatesToSSystem(t *testing.T) {
	g := scenarioA(t)
	c, err := Build(g, []int{1, 1, 1, 1}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	gain, err := c.LogGain()
	if err != nil {
		t.Fatalf("LogGain: %v", err)
	}
	want, err := c.SS.LogGain()
	if err != nil {
		t.Fatalf("SS.LogGain: %v", err)
	}
	if !mat.Equal(gain, want) {
		t.Fatalf("LogGain() = %v, want %v", mat.Formatted(gain), mat.Formatted(want))
	}
}

func TestLogGainErrorsOnSingularCase(t *testing.T) {
	g := linearCycle(t)
	c, err := Build(g, []int{1, 1, 1, 1}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := c.LogGain(); err == nil {
		t.Fatalf("LogGain should fail on a singular (boundary-less) case")
	}
}

func TestAdjacentCasesDiffersInExactlyOneDigit(t *testing.T) {
	g := scenarioA(t)
	sig := []int{1, 1, 1, 1}
	neighbors := AdjacentCases(g, sig)
	if len(neighbors) == 0 {
		t.Fatalf("expected at least one adjacent signature")
	}
	for _, n := range neighbors {
		diff := 0
		for i := range sig {
			if n[i] != sig[i] {
				diff++
			}
		}
		if diff != 1 {
			t.Fatalf("neighbor %v differs from %v in %d digits, want 1", n, sig, diff)
		}
	}
}

func TestConditionExpressionStringsOnePerConditionRow(t *testing.T) {
	g := scenarioA(t)
	c, err := Build(g, []int{1, 1, 1, 1}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	exprs := c.ConditionExpressionStrings(g.Xd.Names(), g.Xi.Names())
	rows, _ := c.Cd.Dims()
	if len(exprs) != rows {
		t.Fatalf("ConditionExpressionStrings returned %d strings, want %d", len(exprs), rows)
	}
	for _, e := range exprs {
		if e == "" {
			t.Fatalf("empty condition expression string")
		}
	}
}
