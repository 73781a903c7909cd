// Package loo estimates out-of-sample predictive accuracy of fitted
// Bayesian models: approximate leave-one-out cross-validation with
// Pareto-smoothed importance sampling (PSIS), WAIC, exact refitting of
// observations the approximation cannot handle, and K-fold
// cross-validation.
package loo

import (
	"github.com/gonum/matrix/mat64"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("loo")

// Model is the contract between the fitting layer and the evaluation
// routines. Evaluation reads the model; Refit is the only operation
// producing new state, and it returns a fresh handle.
type Model interface {
	// NObs returns the number of observations the model was fit to.
	NObs() int
	// NChains returns the number of posterior chains.
	NChains() int
	// IsMCMC reports whether the model was fit by sampling.
	IsMCMC() bool
	// Weighted reports whether the model uses observation weights.
	Weighted() bool
	// LogLik returns the pointwise log-likelihood matrix: one row per
	// posterior draw (chains stacked in order), one column per
	// observation.
	LogLik() (*mat64.Dense, error)
	// LogLikOf returns the pointwise log-likelihood of the given
	// observations of the original (pre-refit) dataset under this
	// model's posterior, one column per requested observation.
	LogLikOf(obs []int) (*mat64.Dense, error)
	// Refit fits the model again with the given observations removed.
	Refit(exclude []int) (Model, error)
}
