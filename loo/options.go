package loo

import (
	"fmt"
	"math"
)

// Options configures LOO computation. The zero value requests the
// default threshold, no refitting and sequential execution.
type Options struct {
	// KThreshold is the Pareto shape value above which an observation
	// is considered unreliable under the importance-sampling
	// approximation. It must hold a single finite non-negative value;
	// front ends pass user input through unchanged so that malformed
	// input is diagnosed here. Empty selects a default derived from
	// the number of observations: min(1 - 1/log10(N), 0.7).
	KThreshold []float64

	// Refit enables exact leave-one-out refits for observations whose
	// Pareto shape exceeds the threshold.
	Refit bool

	// Workers is the number of concurrent refits (and PSIS workers);
	// values below 2 mean sequential.
	Workers int
}

// defaultKThreshold derives the triage threshold from the number of
// observations.
func defaultKThreshold(n int) float64 {
	return math.Min(1-1/math.Log10(float64(n)), 0.7)
}

// checkThreshold validates a k_threshold input and resolves the
// default. It returns the threshold, advisory diagnostics, and a hard
// error for invalid input.
func checkThreshold(vals []float64, n int) (float64, []string, error) {
	if len(vals) == 0 {
		k := defaultKThreshold(n)
		var warns []string
		if n < 2200 {
			warns = append(warns, fmt.Sprintf(
				"Using default k_threshold of %.2f for %d observations; consider raising it towards 0.7.", k, n))
		}
		return k, warns, nil
	}
	if len(vals) != 1 {
		return 0, nil, &ThresholdError{"k_threshold must be a single numeric value"}
	}
	k := vals[0]
	if math.IsNaN(k) || math.IsInf(k, 0) {
		return 0, nil, &ThresholdError{"k_threshold must be a single finite numeric value"}
	}
	if k < 0 {
		return 0, nil, &ThresholdError{"k_threshold < 0 not allowed"}
	}
	var warns []string
	if k > 1 {
		warns = append(warns, fmt.Sprintf(
			"k_threshold of %g > 1 is not recommended: the importance-sampling approximation is unlikely to be reliable for such observations.", k))
	}
	return k, warns, nil
}

func (o *Options) workers() int {
	if o == nil || o.Workers < 2 {
		return 1
	}
	return o.Workers
}
