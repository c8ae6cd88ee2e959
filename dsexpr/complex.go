package dsexpr

import "math/cmplx"

func cpow(a, b complex128) complex128 { return cmplx.Pow(a, b) }
func csqrt(a complex128) complex128   { return cmplx.Sqrt(a) }
func clog(a complex128) complex128    { return cmplx.Log(a) }
func cexp(a complex128) complex128    { return cmplx.Exp(a) }
