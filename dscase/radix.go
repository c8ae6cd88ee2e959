package dscase

import "github.com/jlomnitz/dstoolbox/dserrors"

// CaseNumber implements the signature <-> case-number bijection of
// spec §4.7: sigma is the GMA's per-equation (positive,negative) term
// counts (the mixed-radix base), and s is a case signature with
// 1 <= s[k] <= sigma[k]. The result is in [1, product(sigma)].
func CaseNumber(sigma, s []int, endian dserrors.Endianness) int {
	n := 0
	if endian == dserrors.LittleEndian {
		mult := 1
		for k := 0; k < len(sigma); k++ {
			d := s[k] - 1
			n += d * mult
			mult *= sigma[k]
		}
	} else {
		for k := 0; k < len(sigma); k++ {
			d := s[k] - 1
			place := 1
			for j := k + 1; j < len(sigma); j++ {
				place *= sigma[j]
			}
			n += d * place
		}
	}
	return n + 1
}

// SignatureForNumber decodes a 1-based case number into a signature
// vector for the mixed-radix base sigma, under endian. It is the
// inverse of CaseNumber.
func SignatureForNumber(sigma []int, number int, endian dserrors.Endianness) []int {
	s := make([]int, len(sigma))
	remaining := number - 1
	if endian == dserrors.LittleEndian {
		for k := 0; k < len(sigma); k++ {
			d := remaining % sigma[k]
			remaining /= sigma[k]
			s[k] = d + 1
		}
	} else {
		for k := 0; k < len(sigma); k++ {
			place := 1
			for j := k + 1; j < len(sigma); j++ {
				place *= sigma[j]
			}
			d := remaining / place
			remaining %= place
			s[k] = d + 1
		}
	}
	return s
}

// NumberOfCases returns the total number of signatures for sigma:
// product(sigma).
func NumberOfCases(sigma []int) int {
	total := 1
	for _, v := range sigma {
		total *= v
	}
	return total
}
