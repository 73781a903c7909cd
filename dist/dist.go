// Package dist implements distribution functions shared by the model
// families and the priors.
package dist

import (
	"math"

	"github.com/gonum/mathext"
)

const (
	ln2Pi = 1.8378770664093453
	sqrt2 = 1.4142135623730951
)

// CDFNormal returns the standard normal distribution function Phi(x).
func CDFNormal(x float64) float64 {
	return 0.5 * math.Erfc(-x/sqrt2)
}

// LnCDFNormal returns log(Phi(x)). For large negative x Phi(x)
// underflows, an asymptotic expansion is used instead.
func LnCDFNormal(x float64) float64 {
	if x > -10 {
		return math.Log(CDFNormal(x))
	}
	// Mills ratio expansion; relative error below 1e-6 for x < -10.
	x2 := x * x
	return -0.5*(ln2Pi+x2) - math.Log(-x) + math.Log1p(-1/x2+3/(x2*x2))
}

// QuantileNormal returns the standard normal quantile function, the
// inverse of CDFNormal.
func QuantileNormal(p float64) float64 {
	return mathext.NormalQuantile(p)
}

// LnBeta returns the log of the Beta function.
func LnBeta(p, q float64) float64 {
	lgp, _ := math.Lgamma(p)
	lgq, _ := math.Lgamma(q)
	lgpq, _ := math.Lgamma(p + q)
	return lgp + lgq - lgpq
}

// LnChoose returns the log of the binomial coefficient C(n, k).
func LnChoose(n, k float64) float64 {
	if k <= 0 || k >= n {
		return 0
	}
	return -math.Log(n+1) - LnBeta(n-k+1, k+1)
}
