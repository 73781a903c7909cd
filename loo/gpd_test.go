package loo

import (
	"math"
	"testing"
)

func TestQgpd(tst *testing.T) {
	// exponential limit at k=0
	q := qgpd(1-math.Exp(-1), 0, 1)
	if math.Abs(q-1) > 1e-9 {
		tst.Error("Expected 1, got", q)
	}
	// closed form for k=0.5, sigma=2: q(p) = (sigma/k)((1-p)^-k - 1)
	p := 0.75
	ref := (2 / 0.5) * (math.Pow(1-p, -0.5) - 1)
	q = qgpd(p, 0.5, 2)
	if math.Abs(q-ref) > 1e-9 {
		tst.Error("Expected ", ref, ", got", q)
	}
}

func TestGpdFitRecoversShape(tst *testing.T) {
	// ideal sample: expected order statistics of a known GPD
	n := 100
	k, sigma := 0.2, 1.0
	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = qgpd((float64(j)+0.5)/float64(n), k, sigma)
	}

	kHat, sigmaHat := gpdFit(x, false)
	tst.Log("k=", kHat, ", sigma=", sigmaHat)
	if math.Abs(kHat-k) > 0.15 {
		tst.Error("Expected k near", k, ", got", kHat)
	}
	if math.Abs(sigmaHat-sigma) > 0.3 {
		tst.Error("Expected sigma near", sigma, ", got", sigmaHat)
	}
}

func TestGpdFitPrior(tst *testing.T) {
	// the weak prior pulls small-sample estimates towards 0.5
	n := 20
	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = qgpd((float64(j)+0.5)/float64(n), 0.1, 1)
	}
	raw, _ := gpdFit(x, false)
	wip, _ := gpdFit(x, true)
	if math.Abs(wip-0.5) >= math.Abs(raw-0.5) {
		tst.Error("prior did not shrink towards 0.5: raw", raw, ", wip", wip)
	}
}
