// Package dsgma implements GMA lowering (design space component C4):
// it decomposes an ordered list of parsed equations into the per-
// equation signed-term tensors (α, β, G_d, G_i, H_d, H_i), the four
// variable pools (dependent, its algebraic and dynamic subsets, and
// independent), and the per-equation
// positive/negative term-count signature.
package dsgma

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/jlomnitz/dstoolbox/dserrors"
	"github.com/jlomnitz/dstoolbox/dsexpr"
	"github.com/jlomnitz/dstoolbox/dsmatrix"
	"github.com/jlomnitz/dstoolbox/dsvar"
)

// GMA holds the lowered tensors and variable pools of a Generalized
// Mass Action system (spec §3).
type GMA struct {
	Xd  *dsvar.Pool // dependent variables, one per equation
	XdA *dsvar.Pool // algebraic subset of Xd
	XdT *dsvar.Pool // dynamic (time-differentiated) subset of Xd
	Xi  *dsvar.Pool // independent variables

	// Sigma holds, per equation k, Sigma[2k] positive-term and
	// Sigma[2k+1] negative-term counts.
	Sigma []int

	Alpha *mat.Dense // n x maxP
	Beta  *mat.Dense // n x maxQ

	Gd []*mat.Dense // per equation k: maxP x n
	Gi []*mat.Dense // per equation k: maxP x m
	Hd []*mat.Dense // per equation k: maxQ x n
	Hi []*mat.Dense // per equation k: maxQ x m
}

// N is the number of equations (|Xd|).
func (g *GMA) N() int { return g.Xd.Len() }

// M is the number of independent variables (|Xi|).
func (g *GMA) M() int { return g.Xi.Len() }

// MaxP is the column count of Alpha (the widest positive-term bundle
// across equations).
func (g *GMA) MaxP() int { _, c := g.Alpha.Dims(); return c }

// MaxQ is the column count of Beta.
func (g *GMA) MaxQ() int { _, c := g.Beta.Dims(); return c }

type monomial struct {
	coeff float64
	dExp  map[string]float64
	iExp  map[string]float64
}

// Build lowers an ordered list of "=" equations into a GMA. The
// equation count must match the eventual |Xd|: one equation per
// dependent variable, in the order given (spec §4.1 failure mode:
// "Equation count != |X_d|" cannot actually arise by construction
// here, since Xd is derived from the equations themselves, so Build
// makes no separate count check).
func Build(equations []*dsexpr.Expr) (*GMA, error) {
	n := len(equations)
	xd := dsvar.New()
	xdA := dsvar.New()
	xdT := dsvar.New()

	signedSums := make([]*dsexpr.Expr, n)

	for k, eq := range equations {
		if eq.Kind() != dsexpr.KindOperator || eq.Op() != dsexpr.Eq {
			return nil, fail(dserrors.NotGMA, fmt.Sprintf("equation %d is not an equality", k))
		}
		lhs, rhs := eq.LHS(), eq.RHS()
		if v, ok := lhs.IsTimeDerivative(); ok {
			if _, err := xd.Add(v, 0); err != nil {
				return nil, fail(dserrors.NotGMA, err.Error())
			}
			if _, err := xdT.Add(v, 0); err != nil {
				return nil, fail(dserrors.NotGMA, err.Error())
			}
			signedSums[k] = rhs
			continue
		}
		if lhs.Kind() != dsexpr.KindVariable {
			return nil, fail(dserrors.NotGMA, fmt.Sprintf("equation %d has a non-variable, non-derivative left-hand side", k))
		}
		v := lhs.VariableName()
		if _, err := xd.Add(v, 0); err != nil {
			return nil, fail(dserrors.NotGMA, err.Error())
		}
		if _, err := xdA.Add(v, 0); err != nil {
			return nil, fail(dserrors.NotGMA, err.Error())
		}
		signedSums[k] = dsexpr.Sub(rhs, lhs)
	}

	// Pass over every signed sum to harvest the positive/negative
	// monomials and discover X_i (every variable not in Xd).
	posTerms := make([][]monomial, n)
	negTerms := make([][]monomial, n)
	xi := dsvar.New()

	for k, sum := range signedSums {
		terms, err := splitTerms(sum)
		if err != nil {
			return nil, fail(dserrors.NotGMA, fmt.Sprintf("equation %d: %v", k, err))
		}
		for _, t := range terms {
			dExp := map[string]float64{}
			iExp := map[string]float64{}
			for _, name := range SortedKeys(t.exps) {
				exp := t.exps[name]
				if xd.Has(name) {
					dExp[name] = exp
				} else {
					iExp[name] = exp
					if !xi.Has(name) {
						xi.Add(name, 0)
					}
				}
			}
			m := monomial{coeff: math.Abs(t.coeff), dExp: dExp, iExp: iExp}
			if t.coeff > 0 {
				posTerms[k] = append(posTerms[k], m)
			} else if t.coeff < 0 {
				negTerms[k] = append(negTerms[k], m)
			}
		}
	}

	g := &GMA{Xd: xd, XdA: xdA, XdT: xdT, Xi: xi}
	g.populateTensors(posTerms, negTerms)
	g.collapseIdenticalTerms()

	xd.SetMode(dsvar.ReadOnly)
	xdA.SetMode(dsvar.ReadOnly)
	xdT.SetMode(dsvar.ReadOnly)
	xi.SetMode(dsvar.ReadOnly)

	return g, nil
}

func (g *GMA) populateTensors(posTerms, negTerms [][]monomial) {
	n := g.Xd.Len()
	m := g.Xi.Len()
	maxP, maxQ := 0, 0
	for k := 0; k < n; k++ {
		if len(posTerms[k]) > maxP {
			maxP = len(posTerms[k])
		}
		if len(negTerms[k]) > maxQ {
			maxQ = len(negTerms[k])
		}
	}
	if maxP == 0 {
		maxP = 1
	}
	if maxQ == 0 {
		maxQ = 1
	}

	g.Alpha = mat.NewDense(n, maxP, nil)
	g.Beta = mat.NewDense(n, maxQ, nil)
	g.Gd = make([]*mat.Dense, n)
	g.Gi = make([]*mat.Dense, n)
	g.Hd = make([]*mat.Dense, n)
	g.Hi = make([]*mat.Dense, n)
	g.Sigma = make([]int, 2*n)

	for k := 0; k < n; k++ {
		g.Gd[k] = mat.NewDense(maxP, n, nil)
		g.Gi[k] = mat.NewDense(maxP, m, nil)
		g.Hd[k] = mat.NewDense(maxQ, n, nil)
		g.Hi[k] = mat.NewDense(maxQ, m, nil)

		g.Sigma[2*k] = len(posTerms[k])
		g.Sigma[2*k+1] = len(negTerms[k])

		for j, t := range posTerms[k] {
			g.Alpha.Set(k, j, t.coeff)
			for name, exp := range t.dExp {
				idx, _ := g.Xd.IndexOf(name)
				g.Gd[k].Set(j, idx, exp)
			}
			for name, exp := range t.iExp {
				idx, _ := g.Xi.IndexOf(name)
				g.Gi[k].Set(j, idx, exp)
			}
		}
		for j, t := range negTerms[k] {
			g.Beta.Set(k, j, t.coeff)
			for name, exp := range t.dExp {
				idx, _ := g.Xd.IndexOf(name)
				g.Hd[k].Set(j, idx, exp)
			}
			for name, exp := range t.iExp {
				idx, _ := g.Xi.IndexOf(name)
				g.Hi[k].Set(j, idx, exp)
			}
		}
	}
}

// collapseIdenticalTerms implements spec §4.1 step 5: within each
// equation's positive (and negative) bundle, rows of [G_d|G_i] that
// are elementwise equal within dsmatrix.ZeroTolerance are combined by
// summing their coefficients; the duplicate row is zeroed and the
// signature decremented.
func (g *GMA) collapseIdenticalTerms() {
	n := g.Xd.Len()
	for k := 0; k < n; k++ {
		g.Sigma[2*k] = collapseBundle(g.Alpha, k, g.Sigma[2*k], g.Gd[k], g.Gi[k])
		g.Sigma[2*k+1] = collapseBundle(g.Beta, k, g.Sigma[2*k+1], g.Hd[k], g.Hi[k])
	}
}

// collapseBundle mutates coef (row k of alpha/beta), gd, gi in place
// and returns the new active-row count.
func collapseBundle(coef *mat.Dense, k, count int, gd, gi *mat.Dense) int {
	combined := combinedView{gd: gd, gi: gi}
	active := make([]bool, count)
	for i := range active {
		active[i] = true
	}
	for i := 0; i < count; i++ {
		if !active[i] {
			continue
		}
		for j := i + 1; j < count; j++ {
			if !active[j] {
				continue
			}
			if combined.rowsEqual(i, j) {
				coef.Set(k, i, coef.At(k, i)+coef.At(k, j))
				coef.Set(k, j, 0)
				combined.zeroRow(j)
				active[j] = false
			}
		}
	}
	// Compact: move active rows to the front, in original relative
	// order, swapping zeros to the tail.
	write := 0
	for read := 0; read < count; read++ {
		if !active[read] {
			continue
		}
		if write != read {
			swapRow(coef, k, read, write, gd, gi)
			active[write], active[read] = active[read], active[write]
		}
		write++
	}
	return write
}

type combinedView struct {
	gd, gi *mat.Dense
}

func (c combinedView) rowsEqual(i, j int) bool {
	return dsmatrix.RowsEqual(c.gd, i, j) && dsmatrix.RowsEqual(c.gi, i, j)
}

func (c combinedView) zeroRow(i int) {
	zeroRowOf(c.gd, i)
	zeroRowOf(c.gi, i)
}

func zeroRowOf(m *mat.Dense, i int) {
	_, cols := m.Dims()
	for j := 0; j < cols; j++ {
		m.Set(i, j, 0)
	}
}

// swapRow exchanges the coefficient scalar (in column `read`/`write`
// of coef's row k) and the exponent rows `read`/`write` of gd, gi.
func swapRow(coef *mat.Dense, k, read, write int, gd, gi *mat.Dense) {
	cr, cw := coef.At(k, read), coef.At(k, write)
	coef.Set(k, write, cr)
	coef.Set(k, read, cw)
	dsmatrix.SwapRows(gd, read, write)
	dsmatrix.SwapRows(gi, read, write)
}

type rawTerm struct {
	coeff float64
	exps  map[string]float64
}

// splitTerms walks a canonical sum's top-level Add node (or treats a
// non-Add root as a single term) and extracts each child's leading
// constant and (variable, exponent) pairs.
func splitTerms(sum *dsexpr.Expr) ([]rawTerm, error) {
	var children []*dsexpr.Expr
	if sum.Kind() == dsexpr.KindOperator && sum.Op() == dsexpr.Add {
		children = sum.Children()
	} else {
		children = []*dsexpr.Expr{sum}
	}
	out := make([]rawTerm, 0, len(children))
	for _, c := range children {
		coeff, exps, err := extractMonomial(c)
		if err != nil {
			return nil, err
		}
		out = append(out, rawTerm{coeff: coeff, exps: exps})
	}
	return out, nil
}

// extractMonomial walks a single product term, accumulating a scalar
// coefficient and a map of variable -> exponent. Any structure beyond
// constants, variables, integer/real powers of a single variable, and
// products thereof is reported as NotGMA.
func extractMonomial(node *dsexpr.Expr) (float64, map[string]float64, error) {
	coeff := 1.0
	exps := map[string]float64{}
	var walk func(n *dsexpr.Expr) error
	walk = func(n *dsexpr.Expr) error {
		switch n.Kind() {
		case dsexpr.KindConstant:
			coeff *= n.ConstantValue()
			return nil
		case dsexpr.KindVariable:
			exps[n.VariableName()] += 1
			return nil
		case dsexpr.KindFunction:
			return fmt.Errorf("function %q is not expressible as a power-law monomial", n.FuncName())
		case dsexpr.KindOperator:
			switch n.Op() {
			case dsexpr.Mul:
				for _, c := range n.Children() {
					if err := walk(c); err != nil {
						return err
					}
				}
				return nil
			case dsexpr.Pow:
				base, exp := n.Children()[0], n.Children()[1]
				if exp.Kind() != dsexpr.KindConstant {
					return fmt.Errorf("exponent is not a real literal")
				}
				switch base.Kind() {
				case dsexpr.KindVariable:
					exps[base.VariableName()] += exp.ConstantValue()
					return nil
				case dsexpr.KindConstant:
					coeff *= math.Pow(base.ConstantValue(), exp.ConstantValue())
					return nil
				default:
					return fmt.Errorf("base of ^ is not a variable or constant")
				}
			default:
				return fmt.Errorf("operator %v is not expressible as a power-law monomial", n.Op())
			}
		}
		return fmt.Errorf("unrecognized node")
	}
	if err := walk(node); err != nil {
		return 0, nil, err
	}
	return coeff, exps, nil
}

func fail(kind dserrors.Kind, msg string) error {
	dserrors.Report(dserrors.Record{
		Severity:  dserrors.Fatal,
		Subsystem: "dsgma",
		Kind:      kind,
		Message:   msg,
	})
	return dserrors.Record{Severity: dserrors.Fatal, Subsystem: "dsgma", Kind: kind, Message: msg}
}

// SortedKeys returns m's keys in sorted order: a small helper so that
// Go's randomized map iteration order never leaks into which variable
// is discovered first when a monomial's exponent map is walked during
// GMA construction (newly-seen X_i names must get the same pool index
// on every run of the same input).
func SortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
