// Package dscase implements the case builder (design space component
// C6): from a GMA and a dominant-term signature, it builds the
// S-system (via dsssystem) and the dominance-condition matrices
// (C_d, C_i, Delta) together with their induced boundary matrices
// (U, zeta) in log-parameter space.
package dscase

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/jlomnitz/dstoolbox/dserrors"
	"github.com/jlomnitz/dstoolbox/dsgma"
	"github.com/jlomnitz/dstoolbox/dsssystem"
)

// ExtraConditions are additional condition rows prepended by an owning
// design space (spec §4.3 step 5, "Appended constraints"): the rows
// its AddConstraints calls accumulated. A cyclical-case child design
// space receives its parent space's rows unchanged; the condition rows
// of the parent case itself are not added.
type ExtraConditions struct {
	Cd, Ci *mat.Dense
	Delta  *mat.VecDense
}

// Case is a single dominant-term regime of a GMA: its S-system plus
// the inequalities that justify the dominance choice (spec §3).
type Case struct {
	Signature []int
	SS        *dsssystem.SSystem

	Cd, Ci *mat.Dense
	Delta  *mat.VecDense

	U    *mat.Dense
	Zeta *mat.VecDense

	Number     int
	Identifier string
}

// HasBoundary reports whether U/Zeta are present, i.e. the S-system is
// non-singular.
func (c *Case) HasBoundary() bool {
	return c.U != nil
}

// Options configures Build beyond the minimal (GMA, signature) pair.
type Options struct {
	Endianness dserrors.Endianness
	Prefix     string
	Extra      *ExtraConditions
}

// Build constructs the case for g's signature s (spec §4.3).
func Build(g *dsgma.GMA, s []int, opts Options) (*Case, error) {
	n := g.N()
	m := g.M()
	if len(s) != 2*n {
		return nil, fmt.Errorf("dscase: signature has length %d, want %d", len(s), 2*n)
	}
	for k := 0; k < n; k++ {
		if s[2*k] < 1 || s[2*k] > g.Sigma[2*k] {
			return nil, fmt.Errorf("dscase: equation %d positive digit %d out of range [1,%d]", k, s[2*k], g.Sigma[2*k])
		}
		if s[2*k+1] < 1 || s[2*k+1] > g.Sigma[2*k+1] {
			return nil, fmt.Errorf("dscase: equation %d negative digit %d out of range [1,%d]", k, s[2*k+1], g.Sigma[2*k+1])
		}
	}

	ss, err := dsssystem.Build(g, s)
	if err != nil {
		return nil, err
	}

	cd, ci, delta := buildConditions(g, s)

	if opts.Extra != nil && opts.Extra.Cd != nil {
		cd = vstack(opts.Extra.Cd, cd)
		ci = vstack(opts.Extra.Ci, ci)
		delta = vstackVec(opts.Extra.Delta, delta)
	}

	c := &Case{Signature: append([]int(nil), s...), SS: ss, Cd: cd, Ci: ci, Delta: delta}

	if !ss.Singular {
		mM, _ := ss.Map()
		w := matMul(cd, mM)
		// zeta = W*b + Delta
		var wb mat.VecDense
		wb.MulVec(w, ss.B)
		zeta := mat.NewVecDense(wb.Len(), nil)
		zeta.AddVec(&wb, delta)
		// U = Ci - W*Ai
		u := matSub(ci, matMul(w, ss.Ai))
		c.U = u
		c.Zeta = zeta
	}

	c.Number = CaseNumber(g.Sigma, s, opts.Endianness)
	c.Identifier = identifier(opts.Prefix, c.Number)

	return c, nil
}

func identifier(prefix string, number int) string {
	if prefix == "" {
		return fmt.Sprintf("%d", number)
	}
	return fmt.Sprintf("%s_%d", prefix, number)
}

// buildConditions emits one row per non-chosen term per equation,
// per spec §4.3 step 2.
func buildConditions(g *dsgma.GMA, s []int) (*mat.Dense, *mat.Dense, *mat.VecDense) {
	n := g.N()
	m := g.M()
	c := 0
	for k := 0; k < n; k++ {
		c += (g.Sigma[2*k] - 1) + (g.Sigma[2*k+1] - 1)
	}
	if c == 0 {
		// Every equation has a single term per sign: no condition rows.
		// gonum cannot allocate a matrix with a zero dimension, so the
		// empty matrices are returned directly.
		return &mat.Dense{}, &mat.Dense{}, &mat.VecDense{}
	}
	cd := mat.NewDense(c, n, nil)
	ci := mat.NewDense(c, m, nil)
	delta := mat.NewVecDense(c, nil)

	row := 0
	for k := 0; k < n; k++ {
		pIdx := s[2*k] - 1
		for j := 0; j < g.Sigma[2*k]; j++ {
			if j == pIdx {
				continue
			}
			delta.SetVec(row, math.Log10(g.Alpha.At(k, pIdx)/g.Alpha.At(k, j)))
			for col := 0; col < n; col++ {
				cd.Set(row, col, g.Gd[k].At(pIdx, col)-g.Gd[k].At(j, col))
			}
			for col := 0; col < m; col++ {
				ci.Set(row, col, g.Gi[k].At(pIdx, col)-g.Gi[k].At(j, col))
			}
			row++
		}
		qIdx := s[2*k+1] - 1
		for j := 0; j < g.Sigma[2*k+1]; j++ {
			if j == qIdx {
				continue
			}
			delta.SetVec(row, math.Log10(g.Beta.At(k, qIdx)/g.Beta.At(k, j)))
			for col := 0; col < n; col++ {
				cd.Set(row, col, g.Hd[k].At(qIdx, col)-g.Hd[k].At(j, col))
			}
			for col := 0; col < m; col++ {
				ci.Set(row, col, g.Hi[k].At(qIdx, col)-g.Hi[k].At(j, col))
			}
			row++
		}
	}
	return cd, ci, delta
}

// String renders the case's signature, mirroring the C source's
// DSCaseSignatureToString formatting for a human-readable default.
func (c *Case) String() string {
	return c.SignatureString()
}

// LogGain returns the case's logarithmic gain matrix -M*A_i, delegating
// to the underlying S-system. It errors when the case has no boundary
// (singular S-system, no closed-form gain).
func (c *Case) LogGain() (*mat.Dense, error) {
	if !c.HasBoundary() {
		return nil, fmt.Errorf("dscase: case %s is singular, no logarithmic gain", c.Identifier)
	}
	return c.SS.LogGain()
}

// AdjacentCases enumerates every signature that differs from sig in
// exactly one dominant-term digit: the co-dominant-term neighbors spec
// describes as sharing a polytope face with sig (spec §4.3; original
// source DSCyclicalCaseConstruction.c's co-dominant inequality
// bookkeeping). It does not check feasibility; callers filter by
// building and testing each returned signature.
func AdjacentCases(g *dsgma.GMA, sig []int) [][]int {
	var out [][]int
	for pos, maxDigit := range g.Sigma {
		for d := 1; d <= maxDigit; d++ {
			if d == sig[pos] {
				continue
			}
			neighbor := append([]int(nil), sig...)
			neighbor[pos] = d
			out = append(out, neighbor)
		}
	}
	return out
}

// SignatureString renders the signature as "p0,q0|p1,q1|..." per
// equation, mirroring DSCaseSignatureToString in original_source/.
func (c *Case) SignatureString() string {
	n := len(c.Signature) / 2
	parts := make([]string, n)
	for k := 0; k < n; k++ {
		parts[k] = fmt.Sprintf("%d,%d", c.Signature[2*k], c.Signature[2*k+1])
	}
	return strings.Join(parts, "|")
}

// ConditionExpressionStrings renders each condition row as the
// logarithmic inequality "Delta + sum(Cd*logXd) + sum(Ci*logXi) > 0"
// (spec §4.3, condition-to-expression rendering), using the given
// dependent/independent variable names for readability.
func (c *Case) ConditionExpressionStrings(xdNames, xiNames []string) []string {
	rows, _ := c.Cd.Dims()
	out := make([]string, rows)
	for r := 0; r < rows; r++ {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%g", c.Delta.AtVec(r))
		for col, name := range xdNames {
			if v := c.Cd.At(r, col); v != 0 {
				fmt.Fprintf(&sb, " + %g*log(%s)", v, name)
			}
		}
		for col, name := range xiNames {
			if v := c.Ci.At(r, col); v != 0 {
				fmt.Fprintf(&sb, " + %g*log(%s)", v, name)
			}
		}
		sb.WriteString(" > 0")
		out[r] = sb.String()
	}
	return out
}

func vstack(a, b *mat.Dense) *mat.Dense {
	ar, ac := a.Dims()
	br, _ := b.Dims()
	out := mat.NewDense(ar+br, ac, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			out.Set(i, j, a.At(i, j))
		}
	}
	for i := 0; i < br; i++ {
		for j := 0; j < ac; j++ {
			out.Set(ar+i, j, b.At(i, j))
		}
	}
	return out
}

func vstackVec(a, b *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(a.Len()+b.Len(), nil)
	for i := 0; i < a.Len(); i++ {
		out.SetVec(i, a.AtVec(i))
	}
	for i := 0; i < b.Len(); i++ {
		out.SetVec(a.Len()+i, b.AtVec(i))
	}
	return out
}

func matMul(a, b mat.Matrix) *mat.Dense {
	ar, _ := a.Dims()
	_, bc := b.Dims()
	out := mat.NewDense(ar, bc, nil)
	out.Mul(a, b)
	return out
}

func matSub(a, b mat.Matrix) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.Sub(a, b)
	return out
}
