package dist

import (
	"math"
	"testing"
)

const smallDiff = 1e-6

func TestCDFNormal(tst *testing.T) {
	cases := []struct{ x, ref float64 }{
		{0, 0.5},
		{1.959963984540054, 0.975},
		{-1.959963984540054, 0.025},
		{1, 0.8413447460685429},
	}
	for _, c := range cases {
		p := CDFNormal(c.x)
		tst.Log("x=", c.x, ", p=", p, ", ref=", c.ref)
		if math.Abs(p-c.ref) > smallDiff {
			tst.Error("Expected ", c.ref, ", got", p)
		}
	}
}

func TestQuantileNormalInverts(tst *testing.T) {
	for _, p := range []float64{0.01, 0.1, 0.5, 0.9, 0.99} {
		x := QuantileNormal(p)
		p2 := CDFNormal(x)
		if math.Abs(p-p2) > smallDiff {
			tst.Error("CDF(Quantile(p)) != p for p=", p, ": got", p2)
		}
	}
}

func TestLnCDFNormalTail(tst *testing.T) {
	// direct and asymptotic branches should agree near the switch point
	x := -9.9
	direct := math.Log(CDFNormal(x))
	for _, x := range []float64{-9.9, -10.1, -12} {
		l := LnCDFNormal(x)
		if math.IsInf(l, 0) || math.IsNaN(l) {
			tst.Error("LnCDFNormal not finite at", x)
		}
	}
	if math.Abs(LnCDFNormal(x)-direct) > 1e-9 {
		tst.Error("branch mismatch at", x)
	}
}

func TestLnChoose(tst *testing.T) {
	// C(10, 3) = 120
	ref := math.Log(120)
	got := LnChoose(10, 3)
	if math.Abs(got-ref) > smallDiff {
		tst.Error("Expected ", ref, ", got", got)
	}
	if LnChoose(5, 0) != 0 || LnChoose(5, 5) != 0 {
		tst.Error("boundary coefficients should be log(1)=0")
	}
}
