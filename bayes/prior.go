package bayes

import (
	"math"
)

// Prior is a log-density on one scalar parameter, up to an additive
// constant.
type Prior func(float64) float64

// FlatPrior is the improper uniform prior.
func FlatPrior() Prior {
	return func(float64) float64 { return 0 }
}

// NormalPrior returns a normal log-density with the given location and
// scale.
func NormalPrior(location, scale float64) Prior {
	if scale <= 0 {
		panic("normal scale must be > 0")
	}
	return func(x float64) float64 {
		z := (x - location) / scale
		return -math.Log(scale) - 0.5*z*z
	}
}

// ExponentialPrior returns an exponential log-density on [0, Inf).
func ExponentialPrior(rate float64) Prior {
	if rate <= 0 {
		panic("exponential rate must be > 0")
	}
	return func(x float64) float64 {
		if x < 0 {
			return math.Inf(-1)
		}
		return math.Log(rate) - rate*x
	}
}

// GammaPrior returns a gamma log-density on (0, Inf) with the given
// shape and scale.
func GammaPrior(shape, scale float64) Prior {
	if shape <= 0 || scale <= 0 {
		panic("shape and scale of gamma distribution must be > 0")
	}
	return func(x float64) float64 {
		if x <= 0 {
			return math.Inf(-1)
		}
		g, _ := math.Lgamma(shape)
		return (shape-1)*math.Log(x) - x/scale - shape*math.Log(scale) - g
	}
}

// Priors selects the prior for each kind of model parameter.
type Priors struct {
	Intercept   Prior
	Coefficient Prior
	// Aux is the prior on the dispersion-type auxiliary parameter.
	Aux Prior
	// Cutpoint is the prior on each ordinal cutpoint.
	Cutpoint Prior
}

// DefaultPriors returns the weakly informative defaults: normal(0, 2.5)
// on the intercept and coefficients, exponential(1) on dispersion
// parameters and a flat prior on cutpoints.
func DefaultPriors() *Priors {
	return &Priors{
		Intercept:   NormalPrior(0, 2.5),
		Coefficient: NormalPrior(0, 2.5),
		Aux:         ExponentialPrior(1),
		Cutpoint:    FlatPrior(),
	}
}
