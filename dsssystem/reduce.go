package dsssystem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jlomnitz/dstoolbox/dsgma"
	"github.com/jlomnitz/dstoolbox/dsmatrix"
)

// Reduced is the result of eliminating the algebraic block (X_d_a)
// from a full S-system, yielding an S-system on X_d_t alone whose
// public contract is identical to SSystem except for the smaller
// equation count (spec §4.2, "Algebraic-constraint reduction").
type Reduced struct {
	*SSystem
	// DynamicIndex maps a row of the reduced system back to its index
	// in the parent's X_d_t pool (always identity-ordered here, kept
	// for symmetry with AlgebraicIndex).
	DynamicIndex []int
	// AlgebraicIndex lists the parent Xd indices of the eliminated
	// algebraic variables, in X_d_a's own order.
	AlgebraicIndex []int

	// algebraic solves for y_a given y_t and log10(Xi): y_a = maa*(ba
	// - aat*y_t - aia*x).
	maa *mat.Dense
	aat *mat.Dense
	aia *mat.Dense
	ba  *mat.VecDense
}

// Reduce eliminates g's algebraic dependent variables (X_d_a) from
// the full S-system ss, which must have been built over all of g.Xd.
// It returns the reduced S-system on X_d_t.
func Reduce(g *dsgma.GMA, ss *SSystem) (*Reduced, error) {
	p := g.XdA.Len()
	if p == 0 {
		return &Reduced{SSystem: ss, DynamicIndex: identity(ss.N)}, nil
	}
	q := g.XdT.Len()
	if p+q != ss.N {
		return nil, fmt.Errorf("dsssystem: X_d_a (%d) + X_d_t (%d) != N (%d)", p, q, ss.N)
	}

	aIdx := indicesOf(g.Xd, g.XdA)
	tIdx := indicesOf(g.Xd, g.XdT)

	aaa := submatrixRC(ss.Ad, aIdx, aIdx)
	aat := submatrixRC(ss.Ad, aIdx, tIdx)
	ata := submatrixRC(ss.Ad, tIdx, aIdx)
	att := submatrixRC(ss.Ad, tIdx, tIdx)
	aia := submatrixR(ss.Ai, aIdx)
	ait := submatrixR(ss.Ai, tIdx)
	ba := subvec(ss.B, aIdx)
	bt := subvec(ss.B, tIdx)

	maa, ok := dsmatrix.Invert(aaa)
	if !ok {
		return nil, fmt.Errorf("dsssystem: algebraic block is singular, cannot eliminate X_d_a")
	}

	// Ad_reduced = A_tt - A_ta*Maa*A_at
	ataMaa := dsmatrix.Mul(ata, maa)
	adReduced := dsmatrix.Sub(att, dsmatrix.Mul(ataMaa, aat))
	// Ai_reduced = A_it - A_ta*Maa*A_ia
	aiReduced := dsmatrix.Sub(ait, dsmatrix.Mul(ataMaa, aia))
	// b_reduced = b_t - A_ta*Maa*b_a
	var correction mat.VecDense
	correction.MulVec(ataMaa, ba)
	var bReduced mat.VecDense
	bReduced.SubVec(bt, &correction)

	reducedSS := &SSystem{
		N:  q,
		M:  ss.M,
		Ad: adReduced,
		Ai: aiReduced,
		B:  &bReduced,
	}
	if inv, ok := dsmatrix.Invert(adReduced); ok {
		reducedSS.steadyState = inv
	} else {
		reducedSS.Singular = true
	}

	return &Reduced{
		SSystem:        reducedSS,
		DynamicIndex:   identity(q),
		AlgebraicIndex: aIdx,
		maa:            maa,
		aat:            aat,
		aia:            aia,
		ba:             ba,
	}, nil
}

// AlgebraicSteadyState recovers the eliminated X_d_a steady state from
// a dynamic steady state yt (as returned by r.SteadyState) and the
// same independent-variable point xi, given in linear coordinates as
// for SteadyState (log10 is applied here).
func (r *Reduced) AlgebraicSteadyState(yt *mat.VecDense, xi []float64) (*mat.VecDense, error) {
	if r.maa == nil {
		return mat.NewVecDense(0, nil), nil
	}
	logXi := mat.NewVecDense(len(xi), nil)
	for i, v := range xi {
		logXi.SetVec(i, math.Log10(v))
	}
	var aiaX mat.VecDense
	aiaX.MulVec(r.aia, logXi)
	var aatYt mat.VecDense
	aatYt.MulVec(r.aat, yt)
	rhs := mat.NewVecDense(r.ba.Len(), nil)
	rhs.SubVec(r.ba, &aatYt)
	rhs.SubVec(rhs, &aiaX)
	var ya mat.VecDense
	ya.MulVec(r.maa, rhs)
	return &ya, nil
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func indicesOf(parent interface {
	IndexOf(string) (int, bool)
}, sub interface {
	Len() int
	NameAt(int) string
}) []int {
	out := make([]int, sub.Len())
	for i := 0; i < sub.Len(); i++ {
		idx, _ := parent.IndexOf(sub.NameAt(i))
		out[i] = idx
	}
	return out
}

func submatrixRC(a mat.Matrix, rows, cols []int) *mat.Dense {
	dst := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			dst.Set(i, j, a.At(r, c))
		}
	}
	return dst
}

func submatrixR(a mat.Matrix, rows []int) *mat.Dense {
	_, cols := a.Dims()
	dst := mat.NewDense(len(rows), cols, nil)
	for i, r := range rows {
		for j := 0; j < cols; j++ {
			dst.Set(i, j, a.At(r, j))
		}
	}
	return dst
}

func subvec(v *mat.VecDense, idx []int) *mat.VecDense {
	dst := mat.NewVecDense(len(idx), nil)
	for i, r := range idx {
		dst.SetVec(i, v.AtVec(r))
	}
	return dst
}
