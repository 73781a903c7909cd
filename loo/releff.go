package loo

import (
	"math"

	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/stat"
)

// acovMean returns the lag-t autocovariance (divisor n) averaged over
// the chains. x holds the chains stacked, each of length n.
func acovMean(x []float64, nChains, n, t int) float64 {
	total := 0.0
	for c := 0; c < nChains; c++ {
		chain := x[c*n : (c+1)*n]
		mu := stat.Mean(chain, nil)
		s := 0.0
		for i := 0; i+t < n; i++ {
			s += (chain[i] - mu) * (chain[i+t] - mu)
		}
		total += s / float64(n)
	}
	return total / float64(nChains)
}

// essMean estimates the effective sample size for the mean of x, which
// holds nChains chains of equal length stacked one after another. The
// autocorrelation time is accumulated with Geyer's initial monotone
// positive sequence.
func essMean(x []float64, nChains int) float64 {
	s := len(x)
	n := s / nChains
	if n < 4 {
		return float64(s)
	}

	// within-chain variance and between-chain variance of means
	w := 0.0
	means := make([]float64, nChains)
	for c := 0; c < nChains; c++ {
		chain := x[c*n : (c+1)*n]
		means[c] = stat.Mean(chain, nil)
		w += stat.Variance(chain, nil)
	}
	w /= float64(nChains)
	varPlus := w * float64(n-1) / float64(n)
	if nChains > 1 {
		varPlus += stat.Variance(means, nil)
	}
	if varPlus <= 0 || math.IsNaN(varPlus) {
		// constant sequence; autocorrelation is undefined
		return float64(s)
	}

	rho := func(t int) float64 {
		if t == 0 {
			return 1
		}
		return 1 - (w-acovMean(x, nChains, n, t))/varPlus
	}

	sumPairs := 0.0
	prev := math.Inf(1)
	for t := 0; t+1 < n; t += 2 {
		pair := rho(t) + rho(t+1)
		if pair < 0 {
			break
		}
		if pair > prev {
			pair = prev
		}
		sumPairs += pair
		prev = pair
	}
	tau := 2*sumPairs - 1
	if tau < 1e-8 {
		tau = 1e-8
	}
	return float64(s) / tau
}

// RelativeEff returns, for each observation column of the
// log-likelihood matrix, the MCMC effective sample size of the
// likelihood exp(loglik) divided by the total number of draws. The
// matrix rows hold the chains stacked in order.
func RelativeEff(ll *mat64.Dense, nChains int) []float64 {
	s, n := ll.Dims()
	reff := make([]float64, n)
	col := make([]float64, s)
	for i := 0; i < n; i++ {
		mat64.Col(col, i, ll)
		// exp on a shifted scale; ESS is invariant to the scaling
		max := math.Inf(-1)
		for _, v := range col {
			if v > max {
				max = v
			}
		}
		for j, v := range col {
			col[j] = math.Exp(v - max)
		}
		r := essMean(col, nChains) / float64(s)
		if math.IsNaN(r) || r <= 0 {
			r = 1
		}
		reff[i] = r
	}
	return reff
}
