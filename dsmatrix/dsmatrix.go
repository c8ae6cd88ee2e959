// Package dsmatrix is the dense matrix kernel (design space component
// C1): real-valued linear algebra — multiply, subtract, scale, invert
// (via LU), rank and nullspace (via SVD), identical-row detection,
// submatrix/append/swap, elementwise log10, and eigenvalues; no QR
// decomposition is provided — built directly on gonum.org/v1/gonum/mat rather than
// reimplemented, since the teacher (gonum) already is this kernel.
package dsmatrix

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ZeroTolerance is the spec's numerical-zero threshold (spec §4.4,
// "Numerical policy"): values below this absolute magnitude are
// treated as zero in rank, nullspace, and identical-row tests.
const ZeroTolerance = 1e-13

// SingularTolerance bounds the absolute value of the LU determinant
// below which Invert declares a square matrix singular (spec §3,
// S-system, "non-singular").
const SingularTolerance = 1e-14

// New allocates an r×c dense matrix, optionally initialized from data
// in row-major order (nil zero-fills).
func New(r, c int, data []float64) *mat.Dense {
	return mat.NewDense(r, c, data)
}

// Mul returns a*b as a freshly allocated matrix.
func Mul(a, b mat.Matrix) *mat.Dense {
	ar, _ := a.Dims()
	_, bc := b.Dims()
	dst := mat.NewDense(ar, bc, nil)
	dst.Mul(a, b)
	return dst
}

// Sub returns a-b as a freshly allocated matrix.
func Sub(a, b mat.Matrix) *mat.Dense {
	r, c := a.Dims()
	dst := mat.NewDense(r, c, nil)
	dst.Sub(a, b)
	return dst
}

// Scale returns f*a as a freshly allocated matrix.
func Scale(f float64, a mat.Matrix) *mat.Dense {
	r, c := a.Dims()
	dst := mat.NewDense(r, c, nil)
	dst.Scale(f, a)
	return dst
}

// Invert attempts to invert a square matrix a. ok is false when a is
// singular to within SingularTolerance, in which case dst is left
// unmodified and callers route to the cyclical-case resolver (C8).
func Invert(a mat.Matrix) (dst *mat.Dense, ok bool) {
	r, c := a.Dims()
	if r != c {
		return nil, false
	}
	var lu mat.LU
	lu.Factorize(a)
	if math.Abs(lu.Det()) < SingularTolerance {
		return nil, false
	}
	inv := mat.NewDense(r, c, nil)
	if err := inv.Inverse(a); err != nil {
		return nil, false
	}
	return inv, true
}

// Rank returns the numerical rank of a via its singular values,
// counting singular values greater than ZeroTolerance (an absolute
// threshold) as nonzero. gonum's mat package does not
// expose Rank directly; it is derived here from mat.SVD, following
// the standard "rank = number of singular values above a tolerance"
// construction.
func Rank(a mat.Matrix) int {
	var svd mat.SVD
	ok := svd.Factorize(a, mat.SVDThin)
	if !ok {
		return 0
	}
	vals := svd.Values(nil)
	return rankFromValues(vals)
}

func rankFromValues(vals []float64) int {
	if len(vals) == 0 {
		return 0
	}
	tol := ZeroTolerance
	rank := 0
	for _, v := range vals {
		if v > tol {
			rank++
		}
	}
	return rank
}

// RightNullspace returns an orthonormal basis (as columns of the
// returned matrix) for the right nullspace of a: {x : a*x = 0}. It is
// an empty matrix (0 columns, and 0 rows, since gonum cannot allocate a
// matrix with a zero dimension) when a has full column rank.
func RightNullspace(a mat.Matrix) *mat.Dense {
	_, n := a.Dims()
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return &mat.Dense{}
	}
	vals := svd.Values(nil)
	rank := rankFromValues(vals)
	v := svd.VTo(nil)
	_, vc := v.Dims()
	k := vc - rank
	if k <= 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(n, k, nil)
	out.Copy(v.Slice(0, n, rank, rank+k))
	return out
}

// LeftNullspace returns an orthonormal basis (as columns of the
// returned matrix) for the left nullspace of a: {y : y^T*a = 0},
// equivalently the right nullspace of a^T. The cyclical-case resolver
// (C8) uses this to find the linear combinations of equations that
// vanish identically when A_d is singular. Like RightNullspace, it
// returns an empty matrix (0 columns) when a has full row rank.
func LeftNullspace(a mat.Matrix) *mat.Dense {
	m, _ := a.Dims()
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return &mat.Dense{}
	}
	vals := svd.Values(nil)
	rank := rankFromValues(vals)
	u := svd.UTo(nil)
	_, uc := u.Dims()
	k := uc - rank
	if k <= 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(m, k, nil)
	out.Copy(u.Slice(0, m, rank, rank+k))
	return out
}

// Eigenvalues returns the (possibly complex) eigenvalues of the square
// matrix a.
func Eigenvalues(a mat.Matrix) []complex128 {
	var eig mat.Eigen
	if !eig.Factorize(a, mat.EigenNone) {
		return nil
	}
	return eig.Values(nil)
}

// RowsEqual reports whether rows i and j of a are elementwise equal
// within ZeroTolerance — the "identical-term collapse" predicate
// (spec §4.1 step 5).
func RowsEqual(a mat.Matrix, i, j int) bool {
	_, c := a.Dims()
	for k := 0; k < c; k++ {
		if !floats.EqualWithinAbs(a.At(i, k), a.At(j, k), ZeroTolerance) {
			return false
		}
	}
	return true
}

// AppendRows stacks b below a; both must share the same column count.
func AppendRows(a, b mat.Matrix) *mat.Dense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != bc && ar != 0 && br != 0 {
		panic("dsmatrix: AppendRows shape mismatch")
	}
	if ar == 0 {
		out := mat.NewDense(br, bc, nil)
		out.Copy(b)
		return out
	}
	if br == 0 {
		out := mat.NewDense(ar, ac, nil)
		out.Copy(a)
		return out
	}
	out := mat.NewDense(ar+br, ac, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			out.Set(i, j, a.At(i, j))
		}
	}
	for i := 0; i < br; i++ {
		for j := 0; j < bc; j++ {
			out.Set(ar+i, j, b.At(i, j))
		}
	}
	return out
}

// SwapRows exchanges rows i and j of a in place.
func SwapRows(a *mat.Dense, i, j int) {
	if i == j {
		return
	}
	_, c := a.Dims()
	ri := mat.Row(nil, i, a)
	rj := mat.Row(nil, j, a)
	for k := 0; k < c; k++ {
		a.Set(i, k, rj[k])
		a.Set(j, k, ri[k])
	}
}

// Submatrix extracts rows [r0,r1) and columns [c0,c1) of a as a new
// matrix.
func Submatrix(a mat.Matrix, r0, r1, c0, c1 int) *mat.Dense {
	dst := mat.NewDense(r1-r0, c1-c0, nil)
	for i := r0; i < r1; i++ {
		for j := c0; j < c1; j++ {
			dst.Set(i-r0, j-c0, a.At(i, j))
		}
	}
	return dst
}

// IsZero reports whether every element of a is within ZeroTolerance
// of zero.
func IsZero(a mat.Matrix) bool {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.Abs(a.At(i, j)) > ZeroTolerance {
				return false
			}
		}
	}
	return true
}

// Log10 applies math.Log10 elementwise, returning a new matrix.
func Log10(a mat.Matrix) *mat.Dense {
	r, c := a.Dims()
	dst := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, j, math.Log10(a.At(i, j)))
		}
	}
	return dst
}
