package dscase

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jlomnitz/dstoolbox/dserrors"
)

// TestCaseNumberScenarioC reproduces spec Scenario C's worked example:
// sigma=(3,2,4,3) under big-endian.
func TestCaseNumberScenarioC(t *testing.T) {
	sigma := []int{3, 2, 4, 3}

	cases := []struct {
		sig  []int
		want int
	}{
		{[]int{1, 1, 1, 1}, 1},
		{[]int{3, 2, 4, 3}, 72},
		{[]int{2, 1, 3, 2}, 32},
	}
	for _, c := range cases {
		got := CaseNumber(sigma, c.sig, dserrors.BigEndian)
		if got != c.want {
			t.Fatalf("CaseNumber(%v, big-endian) = %d, want %d", c.sig, got, c.want)
		}
		back := SignatureForNumber(sigma, c.want, dserrors.BigEndian)
		if diff := cmp.Diff(c.sig, back); diff != "" {
			t.Fatalf("SignatureForNumber(%d) mismatch (-want +got):\n%s", c.want, diff)
		}
	}
}

func TestSignatureForNumberRoundTripBothEndiannesses(t *testing.T) {
	sigma := []int{3, 2, 4, 3}
	total := NumberOfCases(sigma)
	if total != 72 {
		t.Fatalf("NumberOfCases(%v) = %d, want 72", sigma, total)
	}
	for _, endian := range []dserrors.Endianness{dserrors.BigEndian, dserrors.LittleEndian} {
		for n := 1; n <= total; n++ {
			sig := SignatureForNumber(sigma, n, endian)
			got := CaseNumber(sigma, sig, endian)
			if got != n {
				t.Fatalf("endian=%v: round trip for %d produced signature %v -> %d", endian, n, sig, got)
			}
		}
	}
}
