package dspolytope

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestIsValidSingleHalfSpace builds U*x+zeta >= 0 with U=[1], zeta=[-1]
// (x >= 1), which is feasible.
func TestIsValidSingleHalfSpace(t *testing.T) {
	p := &Polytope{
		U:    mat.NewDense(1, 1, []float64{1}),
		Zeta: mat.NewVecDense(1, []float64{-1}),
		M:    1,
	}
	v, err := p.IsValid(false, nil)
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if !v.Valid {
		t.Fatalf("x >= 1 should be feasible")
	}
	if v.Point[0] < 1-1e-6 {
		t.Fatalf("witness point %v does not satisfy x >= 1", v.Point)
	}
}

// TestIsValidContradictoryRowsIsInfeasible mirrors spec Scenario D: a
// condition system that cannot be satisfied at any slice (x >= 5 and
// x <= -5 simultaneously).
func TestIsValidContradictoryRowsIsInfeasible(t *testing.T) {
	p := &Polytope{
		U:    mat.NewDense(2, 1, []float64{1, -1}),
		Zeta: mat.NewVecDense(2, []float64{-5, -5}),
		M:    1,
	}
	for _, strict := range []bool{false, true} {
		v, err := p.IsValid(strict, nil)
		if err != nil {
			t.Fatalf("IsValid(strict=%v): %v", strict, err)
		}
		if v.Valid {
			t.Fatalf("IsValid(strict=%v) should be infeasible regardless of strictness", strict)
		}
	}
}

func TestIsValidAtPoint(t *testing.T) {
	p := &Polytope{
		U:    mat.NewDense(1, 1, []float64{1}),
		Zeta: mat.NewVecDense(1, []float64{-1}),
		M:    1,
	}
	if !p.IsValidAtPoint([]float64{10}, false) {
		t.Fatalf("x=10 should satisfy x >= 1")
	}
	if p.IsValidAtPoint([]float64{0.1}, false) {
		t.Fatalf("x=0.1 should violate x >= 1")
	}
}

func TestIsValidWithSlice(t *testing.T) {
	p := &Polytope{
		U:     mat.NewDense(1, 1, []float64{1}),
		Zeta:  mat.NewVecDense(1, []float64{-1}),
		M:     1,
		names: []string{"x1"},
	}
	slice := &Slice{Upper: map[string]float64{"x1": 0.5}}
	v, err := p.IsValid(false, slice)
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if v.Valid {
		t.Fatalf("x >= 1 intersected with x <= 0.5 should be infeasible")
	}
}

func TestInteriorPointIsStrictlyInside(t *testing.T) {
	p := &Polytope{
		U:    mat.NewDense(1, 1, []float64{1}),
		Zeta: mat.NewVecDense(1, []float64{-1}),
		M:    1,
	}
	point, ok := p.InteriorPoint(nil)
	if !ok {
		t.Fatalf("InteriorPoint should find a witness for x >= 1")
	}
	// x >= 1 in log10 coordinates means the linear witness is >= 10.
	if point[0] < 10-1e-6 {
		t.Fatalf("interior point %v does not satisfy the strict constraint", point)
	}
}

func TestNoConditionRowsIsVacuouslyValid(t *testing.T) {
	p := &Polytope{
		U:    &mat.Dense{},
		Zeta: &mat.VecDense{},
		M:    1,
	}
	v, err := p.IsValid(true, nil)
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if !v.Valid {
		t.Fatalf("a polytope with no condition rows should be vacuously valid")
	}
}
