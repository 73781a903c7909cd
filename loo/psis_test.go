package loo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/floats"
)

// testLogLik builds a deterministic draws-by-observations matrix.
// Columns listed in heavy get Pareto(1)-tailed importance ratios
// (log-uniform log-likelihoods); the rest are well-behaved.
func testLogLik(s, n int, heavy map[int]bool, seed int64) *mat64.Dense {
	rng := rand.New(rand.NewSource(seed))
	ll := mat64.NewDense(s, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < s; i++ {
			if heavy[j] {
				// importance ratio 1/u with u uniform: tail shape 1
				ll.Set(i, j, math.Log(rng.Float64()))
			} else {
				ll.Set(i, j, -1+0.1*rng.NormFloat64())
			}
		}
	}
	return ll
}

func negate(ll *mat64.Dense) *mat64.Dense {
	s, n := ll.Dims()
	lr := mat64.NewDense(s, n, nil)
	for i := 0; i < s; i++ {
		for j := 0; j < n; j++ {
			lr.Set(i, j, -ll.At(i, j))
		}
	}
	return lr
}

func TestPsisNormalization(tst *testing.T) {
	ll := testLogLik(1000, 8, map[int]bool{2: true}, 1)
	psis := Psis(negate(ll), nil, 1)
	s, n := psis.LogWeights.Dims()
	if s != 1000 || n != 8 {
		tst.Fatal("wrong weight matrix shape")
	}
	col := make([]float64, s)
	for j := 0; j < n; j++ {
		mat64.Col(col, j, psis.LogWeights)
		total := floats.LogSumExp(col)
		if math.Abs(total) > 1e-8 {
			tst.Error("column", j, "log-weights sum to", total, "instead of 0")
		}
	}
}

func TestPsisHeavyTail(tst *testing.T) {
	ll := testLogLik(2000, 6, map[int]bool{0: true}, 2)
	psis := Psis(negate(ll), nil, 1)
	tst.Log("k=", psis.K)
	if psis.K[0] < 0.7 {
		tst.Error("heavy-tailed column got k =", psis.K[0])
	}
	if !psis.Smoothed[0] {
		tst.Error("heavy-tailed column was not smoothed")
	}
	for j := 1; j < 6; j++ {
		if psis.Smoothed[j] && psis.K[j] > 0.7 {
			tst.Error("well-behaved column", j, "got k =", psis.K[j])
		}
	}
}

func TestPsisConstantColumn(tst *testing.T) {
	s := 500
	lr := mat64.NewDense(s, 1, nil)
	for i := 0; i < s; i++ {
		lr.Set(i, 0, 2.5)
	}
	psis := Psis(lr, nil, 1)
	if psis.Smoothed[0] {
		tst.Error("constant column should not be smoothed")
	}
	if len(psis.Degenerate()) != 1 {
		tst.Error("constant column not flagged as degenerate")
	}
	// weights fall back to uniform
	want := -math.Log(float64(s))
	for i := 0; i < s; i++ {
		if math.Abs(psis.LogWeights.At(i, 0)-want) > 1e-8 {
			tst.Fatal("constant column weights not uniform")
		}
	}
}

func TestPsisParallelMatchesSequential(tst *testing.T) {
	ll := testLogLik(800, 10, map[int]bool{3: true, 7: true}, 3)
	seq := Psis(negate(ll), nil, 1)
	par := Psis(negate(ll), nil, 4)
	for j := 0; j < 10; j++ {
		if seq.K[j] != par.K[j] {
			tst.Error("k mismatch at column", j)
		}
	}
	if !mat64.Equal(seq.LogWeights, par.LogWeights) {
		tst.Error("weight matrices differ between sequential and parallel runs")
	}
}

func TestTailLen(tst *testing.T) {
	// capped by the 20% rule for large effective sample sizes
	if got := tailLen(10000, 1); got != int(math.Ceil(3*math.Sqrt(10000))) {
		tst.Error("unexpected tail length", got)
	}
	if got := tailLen(100, 1); got != 20 {
		tst.Error("expected 20%% cap, got", got)
	}
	// low efficiency lengthens the tail towards the 20% cap
	lo, hi := tailLen(1000, 1), tailLen(1000, 0.01)
	if lo != 95 || hi != 200 {
		tst.Error("unexpected tail lengths:", lo, hi)
	}
}

func TestEssMean(tst *testing.T) {
	rng := rand.New(rand.NewSource(4))
	s := 4000
	iid := make([]float64, s)
	ar := make([]float64, s)
	for i := 0; i < s; i++ {
		iid[i] = rng.NormFloat64()
		if i == 0 {
			ar[i] = rng.NormFloat64()
		} else {
			ar[i] = 0.9*ar[i-1] + rng.NormFloat64()
		}
	}
	essIID := essMean(iid, 4)
	essAR := essMean(ar, 4)
	tst.Log("ess iid=", essIID, ", ess ar=", essAR)
	if essAR >= essIID {
		tst.Error("autocorrelated chain should have lower ESS")
	}
	if essIID < float64(s)/4 {
		tst.Error("iid ESS suspiciously low:", essIID)
	}

	constant := make([]float64, 100)
	if got := essMean(constant, 2); got != 100 {
		tst.Error("constant sequence ESS: expected 100, got", got)
	}
}

func TestRelativeEff(tst *testing.T) {
	ll := testLogLik(1000, 5, nil, 5)
	reff := RelativeEff(ll, 4)
	for i, r := range reff {
		if r <= 0 || math.IsNaN(r) {
			tst.Error("invalid r_eff at", i, ":", r)
		}
	}
}
