// Package dspolytope implements the log-linear polytope evaluator
// (design space component C7): deciding feasibility of a case's
// dominance system U*log10(Xi) + zeta >= 0 (strict or non-strict) on
// optional parameter slices, and enumerating validity-polytope
// vertices. Feasibility is delegated to the LP backend the spec
// requires as an abstract collaborator (spec §9, "External LP
// dependence"); gonum.org/v1/gonum/optimize/convex/lp's Convert+Simplex
// pair is substituted for GLPK.
package dspolytope

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/jlomnitz/dstoolbox/dscase"
)

// FeasibilityTolerance is the strict-inequality slack threshold (spec
// §4.4: epsilon = 1e-14).
const FeasibilityTolerance = 1e-14

// simplexTol is the tolerance handed to the LP backend itself,
// distinct from FeasibilityTolerance (which judges the *result*).
const simplexTol = 1e-10

// Slice is a per-variable lower/upper bound on X_i in linear space
// (spec §6, "Slice specification"). Both bounds must be strictly
// positive and finite; a variable absent from both maps is left
// unbounded.
type Slice struct {
	Lower map[string]float64
	Upper map[string]float64
}

// Polytope is the feasibility problem of a single case: U*x + zeta
// >= 0 (or > 0 when strict), where x = log10(Xi).
type Polytope struct {
	U     *mat.Dense
	Zeta  *mat.VecDense
	M     int
	names []string // X_i names, aligned to U's columns; optional
}

// ErrNoBoundary is returned when a Polytope is requested for a case
// whose S-system is singular (no U/zeta): such a case has no
// closed-form validity region here and must be routed to the
// cyclical-case resolver.
var ErrNoBoundary = errors.New("dspolytope: case has no boundary matrices (singular S-system)")

// FromCase builds the Polytope for a case's boundary matrices.
func FromCase(c *dscase.Case, xiNames []string) (*Polytope, error) {
	if !c.HasBoundary() {
		return nil, ErrNoBoundary
	}
	_, m := c.U.Dims()
	return &Polytope{U: c.U, Zeta: c.Zeta, M: m, names: xiNames}, nil
}

// Verdict is the result of a feasibility test: a case's region is
// either valid (feasible, with a witness point in log10 coordinates)
// or not.
type Verdict struct {
	Valid  bool
	Point  []float64 // log10(Xi) witness, nil if !Valid
	Slacks []float64 // U*Point + Zeta, nil if !Valid
}

// IsValid decides feasibility of the polytope's half-space system,
// optionally intersected with a parameter slice (spec §4.4). When
// strict is true, validity additionally requires every row's slack to
// exceed FeasibilityTolerance.
func (p *Polytope) IsValid(strict bool, slice *Slice) (Verdict, error) {
	c, _ := p.U.Dims()
	G, h := p.buildInequalities(slice)
	if len(h) == 0 {
		// No condition rows and no slice: the system is vacuously
		// feasible (an unbounded case with no competing terms).
		return Verdict{Valid: true, Point: make([]float64, p.M), Slacks: make([]float64, c)}, nil
	}
	zeroC := make([]float64, G.RawMatrix().Cols)
	newC, newA, newB := lp.Convert(zeroC, G, h, nil, nil)
	_, optX, err := lp.Simplex(newC, newA, newB, simplexTol, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return Verdict{Valid: false}, nil
		}
		return Verdict{}, fmt.Errorf("dspolytope: LP backend error: %w", err)
	}
	x := make([]float64, p.M)
	for j := 0; j < p.M; j++ {
		x[j] = optX[j] - optX[p.M+j]
	}
	slacks := p.slacksAt(x)
	if strict {
		for _, s := range slacks {
			if s <= FeasibilityTolerance {
				return Verdict{Valid: false}, nil
			}
		}
	} else {
		for _, s := range slacks {
			if s < -FeasibilityTolerance {
				return Verdict{Valid: false}, nil
			}
		}
	}
	return Verdict{Valid: true, Point: x, Slacks: slacks}, nil
}

// IsValidAtPoint substitutes x = log10(point) into U*x+zeta and checks
// every component against zero (spec §4.4).
func (p *Polytope) IsValidAtPoint(point []float64, strict bool) bool {
	x := make([]float64, len(point))
	for i, v := range point {
		x[i] = math.Log10(v)
	}
	slacks := p.slacksAt(x)
	for _, s := range slacks {
		if strict {
			if s <= FeasibilityTolerance {
				return false
			}
		} else if s < -FeasibilityTolerance {
			return false
		}
	}
	return true
}

// InteriorPoint returns a witness point (in linear X_i coordinates)
// strictly inside the polytope intersected with slice, or ok=false if
// none exists. Supplements spec.md per SPEC_FULL.md's
// DSCaseValidInteriorPoint note.
func (p *Polytope) InteriorPoint(slice *Slice) (point []float64, ok bool) {
	v, err := p.IsValid(true, slice)
	if err != nil || !v.Valid {
		return nil, false
	}
	out := make([]float64, len(v.Point))
	for i, x := range v.Point {
		out[i] = math.Pow(10, x)
	}
	return out, true
}

func (p *Polytope) slacksAt(x []float64) []float64 {
	c, _ := p.U.Dims()
	out := make([]float64, c)
	for i := 0; i < c; i++ {
		s := p.Zeta.AtVec(i)
		for j := 0; j < p.M; j++ {
			s += p.U.At(i, j) * x[j]
		}
		out[i] = s
	}
	return out
}

// buildInequalities converts U*x+zeta >= 0 (x free, x = xp-xn) plus
// any slice bounds into the G*y <= h form lp.Convert expects, over
// y = [xp ; xn] (length 2m).
func (p *Polytope) buildInequalities(slice *Slice) (*mat.Dense, []float64) {
	c, m := p.U.Dims()
	rows := c
	var lowerIdx, upperIdx []int
	if slice != nil && p.names != nil {
		for j, name := range p.names {
			if _, ok := slice.Upper[name]; ok {
				upperIdx = append(upperIdx, j)
			}
			if _, ok := slice.Lower[name]; ok {
				lowerIdx = append(lowerIdx, j)
			}
		}
		rows += len(upperIdx) + len(lowerIdx)
	}
	if rows == 0 {
		return nil, nil
	}
	G := mat.NewDense(rows, 2*m, nil)
	h := make([]float64, rows)
	for i := 0; i < c; i++ {
		for j := 0; j < m; j++ {
			G.Set(i, j, -p.U.At(i, j))
			G.Set(i, m+j, p.U.At(i, j))
		}
		h[i] = p.Zeta.AtVec(i)
	}
	row := c
	if slice != nil && p.names != nil {
		for _, j := range upperIdx {
			G.Set(row, j, 1)
			G.Set(row, m+j, -1)
			h[row] = math.Log10(slice.Upper[p.names[j]])
			row++
		}
		for _, j := range lowerIdx {
			G.Set(row, j, -1)
			G.Set(row, m+j, 1)
			h[row] = -math.Log10(slice.Lower[p.names[j]])
			row++
		}
	}
	return G, h
}

// VerticesForSlice enumerates the vertices of the polytope bounded by
// slice, projected onto vars (a subset of the polytope's named
// variables), in counter-clockwise order starting from the right-most
// vertex for 2D projections (spec §5, ordering guarantees). Variables
// not in vars are fixed at the slice midpoint (spec §4.4).
func (p *Polytope) VerticesForSlice(slice Slice, vars []string) ([][]float64, error) {
	if p.names == nil {
		return nil, fmt.Errorf("dspolytope: polytope was built without variable names")
	}
	fixed := make([]float64, p.M)
	project := make([]bool, p.M)
	idx := map[string]int{}
	for j, n := range p.names {
		idx[n] = j
	}
	for _, v := range vars {
		j, ok := idx[v]
		if !ok {
			return nil, fmt.Errorf("dspolytope: unknown variable %q", v)
		}
		project[j] = true
	}
	for j, n := range p.names {
		if project[j] {
			continue
		}
		lo, hasLo := slice.Lower[n]
		up, hasUp := slice.Upper[n]
		switch {
		case hasLo && hasUp:
			fixed[j] = math.Log10(math.Sqrt(lo * up))
		case hasLo:
			fixed[j] = math.Log10(lo)
		case hasUp:
			fixed[j] = math.Log10(up)
		}
	}

	projM := len(vars)
	if projM != 2 {
		return p.vertexCandidatesND(slice, vars, fixed, project)
	}
	return p.vertices2D(slice, vars, fixed, project)
}

// vertexCandidatesND handles the general-dimension case by intersecting
// every pair-wise combination of the active half-spaces (including
// slice bounds) and keeping feasible intersection points: a standard,
// if combinatorial, vertex-enumeration strategy appropriate for the
// small row/column counts each case's polytope has (spec §4.4,
// "bounded in size (c + 2m rows, m columns)").
func (p *Polytope) vertexCandidatesND(slice Slice, vars []string, fixed []float64, project []bool) ([][]float64, error) {
	G, h := p.buildInequalities(&slice)
	projIdx := projectedColumns(project)
	n := len(projIdx)
	rows, _ := G.Dims()
	var verts [][]float64
	combo := make([]int, n)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == n {
			pt, ok := solveSquare(G, h, combo, projIdx, fixed)
			if ok && feasible(G, h, pt, fixed, projIdx) {
				verts = append(verts, pt)
			}
			return
		}
		for i := start; i < rows; i++ {
			combo[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
	return dedupe(verts), nil
}

func projectedColumns(project []bool) []int {
	var out []int
	for j, b := range project {
		if b {
			out = append(out, j)
			out = append(out, j+len(project))
		}
	}
	return out
}

// solveSquare solves the square linear system formed by the chosen
// rows of G restricted to the projected columns (xp,xn for the
// projected variables), holding all other columns at the values
// implied by `fixed` (split into xp=fixed when positive, xn=-fixed
// when negative, the remaining half zero).
func solveSquare(G *mat.Dense, h []float64, rows, cols []int, fixed []float64) ([]float64, bool) {
	n := len(cols)
	if n == 0 {
		return nil, false
	}
	A := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	m := len(fixed)
	for i, r := range rows {
		rhs := h[r]
		for j := 0; j < m; j++ {
			isProjXp, isProjXn := false, false
			for _, c := range cols {
				if c == j {
					isProjXp = true
				}
				if c == j+m {
					isProjXn = true
				}
			}
			if !isProjXp {
				xp := 0.0
				if fixed[j] > 0 {
					xp = fixed[j]
				}
				rhs -= G.At(r, j) * xp
			}
			if !isProjXn {
				xn := 0.0
				if fixed[j] < 0 {
					xn = -fixed[j]
				}
				rhs -= G.At(r, m+j) * xn
			}
		}
		b.SetVec(i, rhs)
		for jc, c := range cols {
			A.Set(i, jc, G.At(r, c))
		}
	}
	var x mat.Dense
	if err := x.Solve(A, b); err != nil {
		return nil, false
	}
	out := make([]float64, len(cols)/2)
	for i := range out {
		out[i] = x.At(2*i, 0) - x.At(2*i+1, 0)
	}
	return out, true
}

func feasible(G *mat.Dense, h []float64, projVals []float64, fixed []float64, projIdx []int) bool {
	rows, cols := G.Dims()
	m := len(fixed)
	y := make([]float64, cols)
	for j := 0; j < m; j++ {
		if fixed[j] > 0 {
			y[j] = fixed[j]
		} else {
			y[m+j] = -fixed[j]
		}
	}
	pv := 0
	for _, c := range projIdx {
		if c < m {
			v := projVals[pv]
			if v > 0 {
				y[c] = v
				y[c+m] = 0
			} else {
				y[c] = 0
				y[c+m] = -v
			}
			pv++
		}
	}
	for i := 0; i < rows; i++ {
		lhs := 0.0
		for j := 0; j < cols; j++ {
			lhs += G.At(i, j) * y[j]
		}
		if lhs > h[i]+1e-8 {
			return false
		}
	}
	return true
}

func dedupe(pts [][]float64) [][]float64 {
	var out [][]float64
	for _, p := range pts {
		dup := false
		for _, q := range out {
			if closeVec(p, q) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

func closeVec(a, b []float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-6 {
			return false
		}
	}
	return true
}

// vertices2D orders the 2D projected vertices counter-clockwise
// starting from the right-most vertex, per spec §5.
func (p *Polytope) vertices2D(slice Slice, vars []string, fixed []float64, project []bool) ([][]float64, error) {
	pts, err := p.vertexCandidatesND(slice, vars, fixed, project)
	if err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return pts, nil
	}
	cx, cy := 0.0, 0.0
	for _, v := range pts {
		cx += v[0]
		cy += v[1]
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))
	sort.Slice(pts, func(i, j int) bool {
		return math.Atan2(pts[i][1]-cy, pts[i][0]-cx) < math.Atan2(pts[j][1]-cy, pts[j][0]-cx)
	})
	// Rotate so the right-most vertex (max x, tie-broken by min |y|) is first.
	best := 0
	for i, v := range pts {
		if v[0] > pts[best][0] || (v[0] == pts[best][0] && math.Abs(v[1]) < math.Abs(pts[best][1])) {
			best = i
		}
	}
	rotated := append(append([][]float64{}, pts[best:]...), pts[:best]...)
	// Convert back to linear coordinates.
	out := make([][]float64, len(rotated))
	for i, v := range rotated {
		out[i] = []float64{math.Pow(10, v[0]), math.Pow(10, v[1])}
	}
	return out, nil
}
