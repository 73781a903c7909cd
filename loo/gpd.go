package loo

import "math"

// gpdFit fits a generalized Pareto distribution to the sample x of
// exceedances (sorted ascending, all non-negative, max > 0) and
// returns the shape k and scale sigma. The estimator is the profile
// posterior mean over a quantile-based grid (Zhang and Stephens 2009),
// which stays stable for the small tail samples PSIS produces; wip
// adds a weak prior pulling k towards 0.5.
func gpdFit(x []float64, wip bool) (k, sigma float64) {
	n := len(x)
	m := 30 + int(math.Sqrt(float64(n)))

	qi := int(float64(n)/4+0.5) - 1
	if qi < 0 {
		qi = 0
	}
	xstar := x[qi]
	for j := qi; xstar <= 0 && j < n; j++ {
		xstar = x[j]
	}
	if xstar <= 0 || x[n-1] <= 0 {
		return math.NaN(), math.NaN()
	}

	// candidate values of theta = -k/sigma and their profile
	// log-likelihoods
	theta := make([]float64, m)
	prof := make([]float64, m)
	kOf := func(t float64) float64 {
		s := 0.0
		for _, v := range x {
			s += math.Log1p(-t * v)
		}
		return s / float64(n)
	}
	for j := 0; j < m; j++ {
		theta[j] = 1/x[n-1] + (1-math.Sqrt(float64(m)/(float64(j+1)-0.5)))/(3*xstar)
		kj := kOf(theta[j])
		prof[j] = float64(n) * (math.Log(-theta[j]/kj) - kj - 1)
		if math.IsNaN(prof[j]) {
			prof[j] = math.Inf(-1)
		}
	}

	// posterior mean of theta under the profile weights
	thetaHat := 0.0
	wsum := 0.0
	for j := 0; j < m; j++ {
		if math.IsInf(prof[j], -1) {
			continue
		}
		w := 0.0
		for l := 0; l < m; l++ {
			w += math.Exp(prof[l] - prof[j])
		}
		if w > 0 && !math.IsNaN(w) {
			thetaHat += theta[j] / w
			wsum += 1 / w
		}
	}
	if wsum <= 0 || math.IsNaN(thetaHat) {
		return math.NaN(), math.NaN()
	}
	thetaHat /= wsum

	k = kOf(thetaHat)
	sigma = -k / thetaHat
	if wip {
		// shrink towards 0.5 with 10 prior pseudo-observations
		k = (k*float64(n) + 5) / (float64(n) + 10)
	}
	return k, sigma
}

// qgpd is the generalized Pareto quantile function with location 0.
func qgpd(p, k, sigma float64) float64 {
	if math.Abs(k) < 1e-12 {
		return -sigma * math.Log1p(-p)
	}
	return sigma * math.Expm1(-k*math.Log1p(-p)) / k
}
