// Package dsssystem implements S-system construction and solution
// (design space component C5): selecting a single dominant positive
// and negative term per equation from a GMA, forming A = G_d - H_d
// and b = log10(beta) - log10(alpha), and inverting A to obtain the
// steady-state map M = A^-1 when A is non-singular.
package dsssystem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jlomnitz/dstoolbox/dsgma"
	"github.com/jlomnitz/dstoolbox/dsmatrix"
)

// SSystem is a GMA whose signature is (1,1) per equation: the
// per-equation dominant-term tensors, reduced to vectors/matrices,
// plus the derived quantities A_d, A_i, b, and (when non-singular) M.
type SSystem struct {
	N int // number of equations
	M int // number of independent variables

	Alpha *mat.VecDense // n x 1
	Beta  *mat.VecDense // n x 1
	Gd    *mat.Dense    // n x n
	Gi    *mat.Dense    // n x m
	Hd    *mat.Dense    // n x n
	Hi    *mat.Dense    // n x m

	Ad *mat.Dense    // Gd - Hd
	Ai *mat.Dense    // Gi - Hi
	B  *mat.VecDense // log10(beta) - log10(alpha)

	steadyState *mat.Dense // A_d^-1, nil when singular
	Singular    bool
}

// Build selects, for each equation k, the t[2k]-th positive and
// t[2k+1]-th negative term (1-indexed, per spec §4.2) from g and forms
// the resulting S-system.
func Build(g *dsgma.GMA, t []int) (*SSystem, error) {
	n := g.N()
	m := g.M()
	if len(t) != 2*n {
		return nil, fmt.Errorf("dsssystem: term-choice vector has length %d, want %d", len(t), 2*n)
	}

	alpha := mat.NewVecDense(n, nil)
	beta := mat.NewVecDense(n, nil)
	gd := mat.NewDense(n, n, nil)
	gi := mat.NewDense(n, m, nil)
	hd := mat.NewDense(n, n, nil)
	hi := mat.NewDense(n, m, nil)

	for k := 0; k < n; k++ {
		pIdx := t[2*k] - 1
		qIdx := t[2*k+1] - 1
		if pIdx < 0 || pIdx >= g.Sigma[2*k] {
			return nil, fmt.Errorf("dsssystem: equation %d positive term choice %d out of range [1,%d]", k, t[2*k], g.Sigma[2*k])
		}
		if qIdx < 0 || qIdx >= g.Sigma[2*k+1] {
			return nil, fmt.Errorf("dsssystem: equation %d negative term choice %d out of range [1,%d]", k, t[2*k+1], g.Sigma[2*k+1])
		}
		alpha.SetVec(k, g.Alpha.At(k, pIdx))
		beta.SetVec(k, g.Beta.At(k, qIdx))
		for j := 0; j < n; j++ {
			gd.Set(k, j, g.Gd[k].At(pIdx, j))
			hd.Set(k, j, g.Hd[k].At(qIdx, j))
		}
		for j := 0; j < m; j++ {
			gi.Set(k, j, g.Gi[k].At(pIdx, j))
			hi.Set(k, j, g.Hi[k].At(qIdx, j))
		}
	}

	ss := &SSystem{N: n, M: m, Alpha: alpha, Beta: beta, Gd: gd, Gi: gi, Hd: hd, Hi: hi}
	ss.Ad = dsmatrix.Sub(gd, hd)
	ss.Ai = dsmatrix.Sub(gi, hi)
	ss.B = mat.NewVecDense(n, nil)
	for k := 0; k < n; k++ {
		ss.B.SetVec(k, math.Log10(beta.AtVec(k))-math.Log10(alpha.AtVec(k)))
	}

	if inv, ok := dsmatrix.Invert(ss.Ad); ok {
		ss.steadyState = inv
	} else {
		ss.Singular = true
	}
	return ss, nil
}

// Map returns the steady-state map M = A_d^-1. ok is false when the
// S-system is singular (spec §3: "otherwise the system is marked
// singular and M is absent").
func (ss *SSystem) Map() (*mat.Dense, bool) {
	return ss.steadyState, !ss.Singular
}

// SteadyState returns the log10-coordinate steady state
//
//	y* = M*b - M*A_i*log10(Xi)
//
// at the given independent-variable point (in linear, not log,
// coordinates). It returns an error if the S-system is singular.
func (ss *SSystem) SteadyState(xi []float64) (*mat.VecDense, error) {
	if ss.Singular {
		return nil, fmt.Errorf("dsssystem: S-system is singular, no closed-form steady state")
	}
	if len(xi) != ss.M {
		return nil, fmt.Errorf("dsssystem: expected %d independent variables, got %d", ss.M, len(xi))
	}
	logXi := mat.NewVecDense(ss.M, nil)
	for i, v := range xi {
		logXi.SetVec(i, math.Log10(v))
	}
	var aix mat.VecDense
	aix.MulVec(ss.Ai, logXi)
	var y mat.VecDense
	y.MulVec(ss.steadyState, ss.B)
	var correction mat.VecDense
	correction.MulVec(ss.steadyState, &aix)
	y.SubVec(&y, &correction)
	return &y, nil
}

// SteadyStateLinear returns 10^y* for the steady state at xi, i.e. the
// dependent-variable values in their natural (linear) units.
func (ss *SSystem) SteadyStateLinear(xi []float64) ([]float64, error) {
	y, err := ss.SteadyState(xi)
	if err != nil {
		return nil, err
	}
	out := make([]float64, ss.N)
	for i := range out {
		out[i] = pow10(y.AtVec(i))
	}
	return out, nil
}

// LogGain returns the logarithmic gain matrix -M*A_i: the sensitivity
// of each dependent variable's steady-state log to each independent
// variable's log (spec glossary, "Logarithmic gain"; supplemented per
// SPEC_FULL.md from DSSSystemLogarithmicGain in original_source/).
func (ss *SSystem) LogGain() (*mat.Dense, error) {
	if ss.Singular {
		return nil, fmt.Errorf("dsssystem: S-system is singular, no logarithmic gain")
	}
	g := dsmatrix.Mul(ss.steadyState, ss.Ai)
	g.Scale(-1, g)
	return g, nil
}

func pow10(v float64) float64 {
	return math.Pow(10, v)
}
