// Package dsspace implements the design space façade (design space
// component C9): it owns a GMA, indexes cases by signature or case
// number, memoizes validity verdicts and cyclical-case children, and
// exposes the enumeration queries the other components compose into.
package dsspace

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/jlomnitz/dstoolbox/dscase"
	"github.com/jlomnitz/dstoolbox/dscycle"
	"github.com/jlomnitz/dstoolbox/dserrors"
	"github.com/jlomnitz/dstoolbox/dsexpr"
	"github.com/jlomnitz/dstoolbox/dsgma"
	"github.com/jlomnitz/dstoolbox/dsparse"
	"github.com/jlomnitz/dstoolbox/dspolytope"
)

// Mode distinguishes a primary design space from one derived by the
// cyclical-case resolver (spec §9, "Series-calculation flag"
// redesign: two explicit modes rather than a boolean).
type Mode int

const (
	Primary Mode = iota
	Derived
)

// State is the design space's lifecycle stage (spec §4.6, "State
// machine").
type State int

const (
	Constructed State = iota
	ConditionsAdded
	CyclicalCasesResolved
	Queried
)

// Space is a GMA together with its accumulated extra conditions,
// case-validity memo, and cyclical-case children.
type Space struct {
	G      *dsgma.GMA
	Mode   Mode
	Prefix string
	Endian dserrors.Endianness

	mu    sync.Mutex
	state State

	extra *dscase.ExtraConditions

	validMemo    map[int]bool
	cyclicalMemo map[int]*Space
}

// New builds a primary design space over g, using the process-wide
// endianness (spec §4.7) unless overridden by SetEndianness.
func New(g *dsgma.GMA) *Space {
	return &Space{
		G:      g,
		Mode:   Primary,
		Endian: dserrors.CurrentEndianness(),
	}
}

// SetEndianness overrides the endianness this space uses for case
// numbering, independent of the process-wide default.
func (s *Space) SetEndianness(e dserrors.Endianness) {
	s.Endian = e
}

// NumberOfCases returns the total signature count: product(sigma).
func (s *Space) NumberOfCases() int {
	return dscase.NumberOfCases(s.G.Sigma)
}

// CaseWithSignature builds the case for signature sig directly via C6,
// merging any accumulated extra conditions.
func (s *Space) CaseWithSignature(sig []int) (*dscase.Case, error) {
	return dscase.Build(s.G, sig, dscase.Options{
		Endianness: s.Endian,
		Prefix:     s.Prefix,
		Extra:      s.extra,
	})
}

// CaseWithCaseNumber decodes n-1 as a mixed-radix digit vector in
// sigma and builds the case via C6.
func (s *Space) CaseWithCaseNumber(n int) (*dscase.Case, error) {
	sig := dscase.SignatureForNumber(s.G.Sigma, n, s.Endian)
	return s.CaseWithSignature(sig)
}

// AddConstraints parses additional inequality strings into condition
// rows merged into every subsequently built case (spec §4.6). It
// invalidates the validity and cyclical-case memos (spec §4.6, "State
// machine").
func (s *Space) AddConstraints(equations []string) error {
	exprs, err := dsparse.ParseEquations(equations)
	if err != nil {
		return err
	}
	n := s.G.N()
	m := s.G.M()
	rows := len(exprs)
	cd := mat.NewDense(rows, n, nil)
	ci := mat.NewDense(rows, m, nil)
	delta := mat.NewVecDense(rows, nil)

	for r, e := range exprs {
		lhs, rhs, err := splitRelational(e)
		if err != nil {
			return err
		}
		coeffD, coeffI, c, err := linearCoefficients(dsexpr.Sub(lhs, rhs), s.G)
		if err != nil {
			return err
		}
		delta.SetVec(r, c)
		for name, v := range coeffD {
			idx, _ := s.G.Xd.IndexOf(name)
			cd.Set(r, idx, v)
		}
		for name, v := range coeffI {
			idx, _ := s.G.Xi.IndexOf(name)
			ci.Set(r, idx, v)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extra == nil {
		s.extra = &dscase.ExtraConditions{Cd: cd, Ci: ci, Delta: delta}
	} else {
		s.extra = &dscase.ExtraConditions{
			Cd:    vstack(s.extra.Cd, cd),
			Ci:    vstack(s.extra.Ci, ci),
			Delta: vstackVec(s.extra.Delta, delta),
		}
	}
	s.validMemo = nil
	s.cyclicalMemo = nil
	s.state = ConditionsAdded
	return nil
}

// splitRelational normalizes a parsed "a > b" or "a < b" node into the
// canonical "a - b > 0" direction, returning (a, b) such that a-b must
// be positive.
func splitRelational(e *dsexpr.Expr) (*dsexpr.Expr, *dsexpr.Expr, error) {
	switch e.Op() {
	case dsexpr.Gt:
		return e.LHS(), e.RHS(), nil
	case dsexpr.Lt:
		return e.RHS(), e.LHS(), nil
	default:
		return nil, nil, fmt.Errorf("dsspace: constraint %q is not a strict inequality", e.String())
	}
}

// linearCoefficients walks a canonical sum expecting each term to be a
// bare constant, a bare variable, or a constant*variable product: the
// additional-constraint grammar is linear in the log-parameter
// variables themselves, not a power-law monomial (spec §4.6,
// "AddConstraints").
func linearCoefficients(e *dsexpr.Expr, g *dsgma.GMA) (map[string]float64, map[string]float64, float64, error) {
	var children []*dsexpr.Expr
	if e.Kind() == dsexpr.KindOperator && e.Op() == dsexpr.Add {
		children = e.Children()
	} else {
		children = []*dsexpr.Expr{e}
	}
	coeffD := map[string]float64{}
	coeffI := map[string]float64{}
	var constant float64
	for _, c := range children {
		coeff, name, isConst, err := linearTerm(c)
		if err != nil {
			return nil, nil, 0, err
		}
		if isConst {
			constant += coeff
			continue
		}
		if g.Xd.Has(name) {
			coeffD[name] += coeff
		} else {
			coeffI[name] += coeff
		}
	}
	return coeffD, coeffI, constant, nil
}

func linearTerm(e *dsexpr.Expr) (coeff float64, name string, isConst bool, err error) {
	switch e.Kind() {
	case dsexpr.KindConstant:
		return e.ConstantValue(), "", true, nil
	case dsexpr.KindVariable:
		return 1, e.VariableName(), false, nil
	case dsexpr.KindOperator:
		if e.Op() != dsexpr.Mul {
			return 0, "", false, fmt.Errorf("dsspace: constraint term %q is not linear", e.String())
		}
		c := 1.0
		var v string
		found := false
		for _, ch := range e.Children() {
			switch ch.Kind() {
			case dsexpr.KindConstant:
				c *= ch.ConstantValue()
			case dsexpr.KindVariable:
				if found {
					return 0, "", false, fmt.Errorf("dsspace: constraint term %q is not linear", e.String())
				}
				v = ch.VariableName()
				found = true
			default:
				return 0, "", false, fmt.Errorf("dsspace: constraint term %q is not linear", e.String())
			}
		}
		if !found {
			return c, "", true, nil
		}
		return c, v, false, nil
	}
	return 0, "", false, fmt.Errorf("dsspace: unrecognized constraint term %q", e.String())
}

// NumberOfValidCases enumerates every case once, memoizing which case
// numbers are valid, and returns the count (spec §4.6).
func (s *Space) NumberOfValidCases() (int, error) {
	if err := s.ensureValidMemo(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, v := range s.validMemo {
		if v {
			count++
		}
	}
	return count, nil
}

func (s *Space) ensureValidMemo() error {
	s.mu.Lock()
	if s.validMemo != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	memo := make(map[int]bool, s.NumberOfCases())
	total := s.NumberOfCases()
	xiNames := s.G.Xi.Names()
	for n := 1; n <= total; n++ {
		c, err := s.CaseWithCaseNumber(n)
		if err != nil {
			return err
		}
		memo[n] = s.isCaseValid(c, xiNames)
	}

	s.mu.Lock()
	s.validMemo = memo
	if s.state < ConditionsAdded {
		s.state = Queried
	}
	s.mu.Unlock()
	return nil
}

func (s *Space) isCaseValid(c *dscase.Case, xiNames []string) bool {
	if !c.HasBoundary() {
		return false
	}
	p, err := dspolytope.FromCase(c, xiNames)
	if err != nil {
		return false
	}
	v, err := p.IsValid(false, nil)
	if err != nil {
		return false
	}
	return v.Valid
}

// CalculateCyclicalCases invokes C8 on every case whose condition
// system is feasible but whose S-system is singular, and stores the
// resulting child design space (spec §4.6).
func (s *Space) CalculateCyclicalCases() error {
	total := s.NumberOfCases()
	xiNames := s.G.Xi.Names()
	memo := make(map[int]*Space)
	for n := 1; n <= total; n++ {
		c, err := s.CaseWithCaseNumber(n)
		if err != nil {
			return err
		}
		if c.HasBoundary() {
			continue // not singular
		}
		feasible := s.conditionsFeasible(c, xiNames)
		if !feasible {
			continue
		}
		eqs, err := dscycle.Resolve(s.G, c.SS)
		if err != nil {
			continue // not a genuine cycle: case is declared empty
		}
		childGMA, err := dsgma.Build(eqs)
		if err != nil {
			continue
		}
		child := New(childGMA)
		child.Mode = Derived
		child.Prefix = fmt.Sprintf("%s%d", s.Prefix, n)
		child.Endian = s.Endian
		child.extra = s.extra
		if err := child.CalculateCyclicalCases(); err != nil {
			return err
		}
		memo[n] = child
	}
	s.mu.Lock()
	s.cyclicalMemo = memo
	s.state = CyclicalCasesResolved
	s.mu.Unlock()
	return nil
}

// conditionsFeasible tests feasibility of a singular case's condition
// system directly (no boundary matrices exist, so this checks only
// that Cd/Ci/Delta admit some point, via a polytope built with
// U=[Cd|Ci] over the joint (log Xd, log Xi) coordinates, Zeta=Delta —
// i.e. the positivity conditions alone, ignoring the (unavailable)
// steady-state substitution). A case with no condition rows is
// vacuously feasible.
func (s *Space) conditionsFeasible(c *dscase.Case, xiNames []string) bool {
	rows, n := c.Cd.Dims()
	if rows == 0 {
		return true
	}
	var u mat.Dense
	u.Augment(c.Cd, c.Ci)
	p := &dspolytope.Polytope{U: &u, Zeta: c.Delta, M: n + s.G.M()}
	v, err := p.IsValid(false, nil)
	return err == nil && v.Valid
}

// NeighboringCases returns the cases sharing a polytope face with case
// number n: every signature at Hamming distance one from n's own
// signature (spec §4.3's co-dominant-term adjacency), built the same
// way CaseWithSignature builds any other case.
func (s *Space) NeighboringCases(n int) ([]*dscase.Case, error) {
	c, err := s.CaseWithCaseNumber(n)
	if err != nil {
		return nil, err
	}
	var out []*dscase.Case
	for _, sig := range dscase.AdjacentCases(s.G, c.Signature) {
		neighbor, err := s.CaseWithSignature(sig)
		if err != nil {
			return nil, err
		}
		out = append(out, neighbor)
	}
	return out, nil
}

// CyclicalChild returns the resolved child design space for case n, if
// CalculateCyclicalCases has run and n was cyclical.
func (s *Space) CyclicalChild(n int) (*Space, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cyclicalMemo == nil {
		return nil, false
	}
	c, ok := s.cyclicalMemo[n]
	return c, ok
}

// AllValidCasesForSlice returns the union of validities restricted to
// the given independent-variable slice, including resolutions from
// cyclical-case children (spec §4.6).
func (s *Space) AllValidCasesForSlice(lower, upper map[string]float64, strict bool) ([]*dscase.Case, error) {
	total := s.NumberOfCases()
	xiNames := s.G.Xi.Names()
	slice := &dspolytope.Slice{Lower: lower, Upper: upper}

	var out []*dscase.Case
	for n := 1; n <= total; n++ {
		c, err := s.CaseWithCaseNumber(n)
		if err != nil {
			return nil, err
		}
		if c.HasBoundary() {
			p, err := dspolytope.FromCase(c, xiNames)
			if err != nil {
				continue
			}
			v, err := p.IsValid(strict, slice)
			if err == nil && v.Valid {
				out = append(out, c)
			}
			continue
		}
		if child, ok := s.CyclicalChild(n); ok {
			childCases, err := child.AllValidCasesForSlice(lower, upper, strict)
			if err != nil {
				return nil, err
			}
			out = append(out, childCases...)
		}
	}

	s.mu.Lock()
	s.state = Queried
	s.mu.Unlock()
	return out, nil
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
