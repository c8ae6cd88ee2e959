// Package dscycle implements the cyclical-case resolver (design space
// component C8): given a case whose S-system is singular because its
// chosen dominant terms form a closed cycle in the influence graph, it
// identifies the cycle, partitions cycle from non-cycle dependent
// variables, and rewrites the equation set into one that C4 can lower
// again into a well-posed child GMA.
package dscycle

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jlomnitz/dstoolbox/dsexpr"
	"github.com/jlomnitz/dstoolbox/dsgma"
	"github.com/jlomnitz/dstoolbox/dsmatrix"
	"github.com/jlomnitz/dstoolbox/dsssystem"
)

// zeroTol mirrors dsmatrix.ZeroTolerance for comparing nullspace
// entries within a column.
const zeroTol = dsmatrix.ZeroTolerance

// ErrNotCyclical is returned when a singular S-system's left
// nullspace does not correspond to a genuine cycle (mismatched-entry
// column, or mismatched-sign coefficients of interest): the case is
// then empty rather than resolvable (spec §4.5 step 6).
var ErrNotCyclical = fmt.Errorf("dscycle: singular case is not a resolvable cycle")

// Resolve detects the cycle in g's chosen S-system ss (built from one
// of g's signatures) and emits the rewritten equation set a child design
// space should be built from. It returns ErrNotCyclical when ss is not
// genuinely cyclical.
func Resolve(g *dsgma.GMA, ss *dsssystem.SSystem) ([]*dsexpr.Expr, error) {
	if !ss.Singular {
		return nil, fmt.Errorf("dscycle: S-system is not singular, nothing to resolve")
	}

	n := ss.N
	left := dsmatrix.LeftNullspace(ss.Ad)
	_, k := left.Dims()
	if k == 0 {
		return nil, ErrNotCyclical
	}

	cycle, err := cycleFromColumn(left, 0, n)
	if err != nil {
		return nil, err
	}
	if len(cycle) < 2 {
		return nil, ErrNotCyclical
	}

	weights, err := sameSignWeights(left, 0, cycle)
	if err != nil {
		return nil, err
	}

	nonCycle := complement(cycle, n)

	reducedAd, reducedAi, reducedB, err := eliminateNonCycle(ss, cycle, nonCycle)
	if err != nil {
		return nil, err
	}

	primary := cycle[0]
	secondaries := cycle[1:]

	equations := make([]*dsexpr.Expr, n)

	for _, k := range nonCycle {
		equations[k] = rebuildFullEquation(g, k)
	}

	equations[primary] = rebuildCombinedEquation(g, ss, cycle, weights)

	for i, sIdx := range secondaries {
		eq, err := rebuildSecondaryEquation(g, reducedAd, reducedAi, reducedB, cycle, i+1, primary, sIdx)
		if err != nil {
			return nil, err
		}
		equations[sIdx] = eq
	}

	return equations, nil
}

// cycleFromColumn interprets column col of the left-nullspace basis
// left as a cycle: the set of row indices whose entries are nonzero
// (above zeroTol) and mutually equal in magnitude within 10*zeroTol.
// A column whose
// nonzero entries differ is not a genuine cycle (spec §4.5 step 1).
func cycleFromColumn(left *mat.Dense, col, n int) ([]int, error) {
	var rows []int
	var magnitude float64
	for i := 0; i < n; i++ {
		v := math.Abs(left.At(i, col))
		if v <= zeroTol {
			continue
		}
		if len(rows) == 0 {
			magnitude = v
		} else if math.Abs(v-magnitude) > zeroTol*10 {
			return nil, ErrNotCyclical
		}
		rows = append(rows, i)
	}
	return rows, nil
}

// sameSignWeights reads column col of left (the same A_d left-nullspace
// basis cycleFromColumn already validated) at cycle's rows and uses
// those entries directly as the coefficients of interest (spec §4.5
// step 2): the combination that zeros A_d's dependent-variable coupling
// across the cycle is exactly the combination that collapses the cycle
// equations' chosen-term fluxes into one. All entries must share sign
// (after normalizing against the primary) or the cycle cannot be
// balanced into a single combined equation.
func sameSignWeights(left *mat.Dense, col int, cycle []int) ([]float64, error) {
	w := make([]float64, len(cycle))
	for i, row := range cycle {
		w[i] = left.At(row, col)
	}
	sign := 1.0
	if w[0] < 0 {
		sign = -1.0
	}
	for _, v := range w {
		if v == 0 || (v > 0) != (sign > 0) {
			return nil, ErrNotCyclical
		}
	}
	return w, nil
}

func complement(cycle []int, n int) []int {
	in := map[int]bool{}
	for _, c := range cycle {
		in[c] = true
	}
	var out []int
	for i := 0; i < n; i++ {
		if !in[i] {
			out = append(out, i)
		}
	}
	return out
}

// eliminateNonCycle applies the same block-elimination formula as
// dsssystem.Reduce, with the roles reversed: here the non-cycle
// equations play the "algebraic" block being eliminated, and the
// cycle equations are the retained "dynamic" block (spec §4.5 step 3).
func eliminateNonCycle(ss *dsssystem.SSystem, cycle, nonCycle []int) (*mat.Dense, *mat.Dense, *mat.VecDense, error) {
	if len(nonCycle) == 0 {
		return submatrixRC(ss.Ad, cycle, cycle), submatrixR(ss.Ai, cycle), subvec(ss.B, cycle), nil
	}
	ann := submatrixRC(ss.Ad, nonCycle, nonCycle)
	anc := submatrixRC(ss.Ad, nonCycle, cycle)
	acn := submatrixRC(ss.Ad, cycle, nonCycle)
	acc := submatrixRC(ss.Ad, cycle, cycle)
	ain := submatrixR(ss.Ai, nonCycle)
	aic := submatrixR(ss.Ai, cycle)
	bn := subvec(ss.B, nonCycle)
	bc := subvec(ss.B, cycle)

	mn, ok := dsmatrix.Invert(ann)
	if !ok {
		return nil, nil, nil, fmt.Errorf("dscycle: non-cycle block is itself singular, cannot eliminate")
	}

	cnMn := dsmatrix.Mul(acn, mn)
	adReduced := dsmatrix.Sub(acc, dsmatrix.Mul(cnMn, anc))
	aiReduced := dsmatrix.Sub(aic, dsmatrix.Mul(cnMn, ain))
	var correction mat.VecDense
	correction.MulVec(cnMn, bn)
	bReduced := mat.NewVecDense(bc.Len(), nil)
	bReduced.SubVec(bc, &correction)

	return adReduced, aiReduced, bReduced, nil
}

// rebuildSecondaryEquation solves the reduced cycle-local system
// (size |cycle|, rank |cycle|-1) for the secondary cycle variable at
// dependent-variable index secondaryRow (cycle position secondaryPos) as
// a closed-form power-law function of the primary cycle variable and
// the independent variables (spec §4.5 step 4): dropping the primary's
// row and column from the reduced system leaves an invertible block
// whose solution is affine in log(primary) and log(Xi), i.e. a single
// power-law monomial in linear coordinates.
func rebuildSecondaryEquation(g *dsgma.GMA, ad, ai *mat.Dense, b *mat.VecDense, cycle []int, secondaryPos, primaryRow, secondaryRow int) (*dsexpr.Expr, error) {
	k, _ := ad.Dims()
	idx := make([]int, 0, k-1)
	for i := 1; i < k; i++ {
		idx = append(idx, i)
	}
	sub := dsmatrix.Submatrix(ad, 1, k, 1, k)
	inv, ok := dsmatrix.Invert(sub)
	if !ok {
		return nil, fmt.Errorf("dscycle: secondary block is singular, cycle cannot be fully resolved")
	}

	// rhs_i = b[i] - ad[i,0]*y_primary - ai[i,:]*x, for i in idx; here we
	// keep y_primary symbolic by building the equation coefficients
	// directly rather than substituting a numeric value.
	primaryCoeffs := make([]float64, len(idx))
	rhsConst := make([]float64, len(idx))
	_, m := ai.Dims()
	xiCoeffs := make([][]float64, len(idx))
	for r, i := range idx {
		primaryCoeffs[r] = -ad.At(i, 0)
		rhsConst[r] = b.AtVec(i)
		row := make([]float64, m)
		for j := 0; j < m; j++ {
			row[j] = -ai.At(i, j)
		}
		xiCoeffs[r] = row
	}

	// Solve y_secondary = inv * (rhsConst + primaryCoeffs*yp + xiCoeffs*x)
	var invPrimary mat.VecDense
	invPrimary.MulVec(inv, mat.NewVecDense(len(idx), primaryCoeffs))
	var invConst mat.VecDense
	invConst.MulVec(inv, mat.NewVecDense(len(idx), rhsConst))

	row := secondaryPos - 1
	coeffPrimary := invPrimary.AtVec(row)
	constTerm := invConst.AtVec(row)

	xiCoeffOut := make([]float64, m)
	for j := 0; j < m; j++ {
		col := make([]float64, len(idx))
		for r := range idx {
			col[r] = xiCoeffs[r][j]
		}
		var invCol mat.VecDense
		invCol.MulVec(inv, mat.NewVecDense(len(idx), col))
		xiCoeffOut[j] = invCol.AtVec(row)
	}

	primaryName := g.Xd.NameAt(primaryRow)
	secondaryName := g.Xd.NameAt(secondaryRow)

	factors := []*dsexpr.Expr{dsexpr.Constant(math.Pow(10, constTerm))}
	if coeffPrimary != 0 {
		factors = append(factors, dsexpr.NewPow(dsexpr.Variable(primaryName), dsexpr.Constant(coeffPrimary)))
	}
	for j := 0; j < m; j++ {
		if xiCoeffOut[j] == 0 {
			continue
		}
		factors = append(factors, dsexpr.NewPow(dsexpr.Variable(g.Xi.NameAt(j)), dsexpr.Constant(xiCoeffOut[j])))
	}

	rhs := dsexpr.NewMul(factors...)
	return dsexpr.NewEq(dsexpr.Variable(secondaryName), rhs), nil
}

// rebuildCombinedEquation writes the primary cycle variable's new
// differential equation as the coefficient-of-interest weighted sum
// of every cycle equation's original chosen-term flux (spec §4.5
// step 4).
func rebuildCombinedEquation(g *dsgma.GMA, ss *dsssystem.SSystem, cycle []int, weights []float64) *dsexpr.Expr {
	primary := cycle[0]
	wp := weights[0]
	var terms []*dsexpr.Expr
	for i, row := range cycle {
		scale := weights[i] / wp
		pos := monomialFromRow(g, ss.Alpha.AtVec(row), ss.Gd, ss.Gi, row)
		neg := monomialFromRow(g, ss.Beta.AtVec(row), ss.Hd, ss.Hi, row)
		flux := dsexpr.Sub(pos, neg)
		terms = append(terms, dsexpr.NewMul(dsexpr.Constant(scale), flux))
	}
	rhs := dsexpr.NewAdd(terms...)
	lhs := dsexpr.NewDeriv(dsexpr.Variable(g.Xd.NameAt(primary)))
	return dsexpr.NewEq(lhs, rhs)
}

func monomialFromRow(g *dsgma.GMA, coeff float64, d, i *mat.Dense, row int) *dsexpr.Expr {
	factors := []*dsexpr.Expr{dsexpr.Constant(coeff)}
	_, n := d.Dims()
	for j := 0; j < n; j++ {
		if e := d.At(row, j); e != 0 {
			factors = append(factors, dsexpr.NewPow(dsexpr.Variable(g.Xd.NameAt(j)), dsexpr.Constant(e)))
		}
	}
	_, m := i.Dims()
	for j := 0; j < m; j++ {
		if e := i.At(row, j); e != 0 {
			factors = append(factors, dsexpr.NewPow(dsexpr.Variable(g.Xi.NameAt(j)), dsexpr.Constant(e)))
		}
	}
	return dsexpr.NewMul(factors...)
}

// rebuildFullEquation rebuilds equation k's complete multi-term
// original form (not just its chosen dominant term) from g's full
// tensors, so that a non-cycle equation's own alternative term choices
// remain available to the child design space.
func rebuildFullEquation(g *dsgma.GMA, k int) *dsexpr.Expr {
	var pos []*dsexpr.Expr
	for j := 0; j < g.Sigma[2*k]; j++ {
		pos = append(pos, monomialFromRow(g, g.Alpha.At(k, j), g.Gd[k], g.Gi[k], j))
	}
	var neg []*dsexpr.Expr
	for j := 0; j < g.Sigma[2*k+1]; j++ {
		neg = append(neg, monomialFromRow(g, g.Beta.At(k, j), g.Hd[k], g.Hi[k], j))
	}
	var terms []*dsexpr.Expr
	terms = append(terms, pos...)
	for _, t := range neg {
		terms = append(terms, dsexpr.Neg(t))
	}
	rhs := dsexpr.NewAdd(terms...)
	isDynamic := g.XdT.Has(g.Xd.NameAt(k))
	name := g.Xd.NameAt(k)
	if isDynamic {
		return dsexpr.NewEq(dsexpr.NewDeriv(dsexpr.Variable(name)), rhs)
	}
	return dsexpr.NewEq(dsexpr.Variable(name), rhs)
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
