package loo

import (
	"bytes"
	"fmt"
	"math"
)

// Estimate is a point estimate together with its standard error.
type Estimate struct {
	Value float64 `json:"estimate"`
	SE    float64 `json:"se"`
}

// ICResult is the part shared by the LOO, WAIC and K-fold results: the
// expected log predictive density, the effective number of parameters,
// the dimensions of the log-likelihood matrix the estimates were
// computed from, and advisory diagnostics accumulated along the way.
type ICResult struct {
	Elpd     Estimate `json:"elpd"`
	PEff     Estimate `json:"pEff"`
	NObs     int      `json:"nObs"`
	NDraws   int      `json:"nDraws"`
	Warnings []string `json:"warnings,omitempty"`
}

// IC returns the result on the information-criterion (deviance) scale,
// -2*elpd.
func (r *ICResult) IC() Estimate {
	return Estimate{-2 * r.Elpd.Value, 2 * r.Elpd.SE}
}

func (r *ICResult) warnf(format string, args ...interface{}) {
	w := fmt.Sprintf(format, args...)
	log.Warning(w)
	r.Warnings = append(r.Warnings, w)
}

// PointLoo is one observation's row of the LOO pointwise table.
type PointLoo struct {
	// Elpd is the expected log predictive density contribution.
	Elpd float64 `json:"elpd"`
	// P is the contribution to the effective number of parameters.
	P float64 `json:"p"`
	// Mcse is the Monte Carlo standard error of Elpd; NaN when the
	// tail shape makes it unreliable.
	Mcse float64 `json:"mcse"`
	// K is the Pareto tail shape diagnostic.
	K float64 `json:"k"`
	// Refit marks an exact refit value spliced in place of the
	// importance-sampling approximation.
	Refit bool `json:"refit,omitempty"`
}

// RefitState tracks one observation through the selective-refit state
// machine.
type RefitState int

// Refit states.
const (
	StateOK RefitState = iota
	StateNeedsRefit
	StateRefitting
	StateRefitDone
	StateRefitFailed
)

func (s RefitState) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateNeedsRefit:
		return "needs-refit"
	case StateRefitting:
		return "refitting"
	case StateRefitDone:
		return "refit-done"
	case StateRefitFailed:
		return "refit-failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// kBands are the conventional Pareto shape diagnostic intervals.
var kBands = [4]struct {
	hi    float64
	label string
}{
	{0.5, "(-Inf, 0.5] (good)"},
	{0.7, "(0.5, 0.7]  (ok)"},
	{1.0, "(0.7, 1]    (bad)"},
	{math.Inf(1), "(1, Inf)    (very bad)"},
}

// LooResult is the outcome of (approximate) leave-one-out
// cross-validation.
type LooResult struct {
	ICResult
	// Threshold is the resolved k_threshold the triage used.
	Threshold float64 `json:"kThreshold"`
	// Pointwise has one row per observation.
	Pointwise []PointLoo `json:"pointwise"`
	// States records each observation's position in the refit state
	// machine.
	States []RefitState `json:"-"`
	// RefitFailed lists observations whose exact refit failed; their
	// rows keep the importance-sampling approximation.
	RefitFailed []int `json:"refitFailed,omitempty"`
}

// KCounts returns the number of observations in each Pareto shape
// diagnostic band; the four counts always sum to the number of
// observations.
func (r *LooResult) KCounts() [4]int {
	var counts [4]int
	for _, pt := range r.Pointwise {
		for b := range kBands {
			if pt.K <= kBands[b].hi {
				counts[b]++
				break
			}
		}
	}
	return counts
}

// HighK returns the observations whose Pareto shape exceeds the
// threshold.
func (r *LooResult) HighK() []int {
	var idx []int
	for i, pt := range r.Pointwise {
		if pt.K > r.Threshold {
			idx = append(idx, i)
		}
	}
	return idx
}

func (r *LooResult) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Computed from %d by %d log-likelihood matrix\n\n", r.NDraws, r.NObs)
	fmt.Fprintf(&b, "         Estimate   SE\n")
	fmt.Fprintf(&b, "elpd_loo %8.1f %5.1f\n", r.Elpd.Value, r.Elpd.SE)
	fmt.Fprintf(&b, "p_loo    %8.1f %5.1f\n", r.PEff.Value, r.PEff.SE)
	ic := r.IC()
	fmt.Fprintf(&b, "looic    %8.1f %5.1f\n", ic.Value, ic.SE)
	fmt.Fprintf(&b, "\nPareto k diagnostic values:\n")
	counts := r.KCounts()
	for i, band := range kBands {
		pct := 100 * float64(counts[i]) / float64(r.NObs)
		fmt.Fprintf(&b, "%-22s %5d %5.1f%%\n", band.label, counts[i], pct)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s\n", w)
	}
	return b.String()
}

// PointWaic is one observation's row of the WAIC pointwise table.
type PointWaic struct {
	Elpd float64 `json:"elpd"`
	P    float64 `json:"p"`
}

// WaicResult is the outcome of the widely applicable information
// criterion computation.
type WaicResult struct {
	ICResult
	Pointwise []PointWaic `json:"pointwise"`
}

func (r *WaicResult) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Computed from %d by %d log-likelihood matrix\n\n", r.NDraws, r.NObs)
	fmt.Fprintf(&b, "          Estimate   SE\n")
	fmt.Fprintf(&b, "elpd_waic %8.1f %5.1f\n", r.Elpd.Value, r.Elpd.SE)
	fmt.Fprintf(&b, "p_waic    %8.1f %5.1f\n", r.PEff.Value, r.PEff.SE)
	ic := r.IC()
	fmt.Fprintf(&b, "waic      %8.1f %5.1f\n", ic.Value, ic.SE)
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s\n", w)
	}
	return b.String()
}

// KfoldResult is the outcome of K-fold cross-validation.
type KfoldResult struct {
	ICResult
	K int `json:"k"`
	// Folds lists the held-out observations of each fold.
	Folds [][]int `json:"folds"`
	// Pointwise holds per-observation out-of-fold elpd contributions.
	Pointwise []float64 `json:"pointwise"`
	// Failed lists folds whose refit failed; their observations have
	// NaN pointwise values and are excluded from the totals.
	Failed []int `json:"failed,omitempty"`
}

func (r *KfoldResult) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d-fold cross-validation of %d observations\n\n", r.K, r.NObs)
	fmt.Fprintf(&b, "           Estimate   SE\n")
	fmt.Fprintf(&b, "elpd_kfold %8.1f %5.1f\n", r.Elpd.Value, r.Elpd.SE)
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s\n", w)
	}
	return b.String()
}

// Compare returns the difference in expected log predictive density
// between two results computed on the same observations (b minus a)
// with the standard error of the paired pointwise differences.
func Compare(a, b *LooResult) (Estimate, error) {
	if a.NObs != b.NObs {
		return Estimate{}, fmt.Errorf("results have different numbers of observations: %d and %d", a.NObs, b.NObs)
	}
	n := a.NObs
	diff := 0.0
	for i := range a.Pointwise {
		diff += b.Pointwise[i].Elpd - a.Pointwise[i].Elpd
	}
	mean := diff / float64(n)
	ss := 0.0
	for i := range a.Pointwise {
		d := b.Pointwise[i].Elpd - a.Pointwise[i].Elpd - mean
		ss += d * d
	}
	se := math.Sqrt(float64(n) * ss / float64(n-1))
	return Estimate{diff, se}, nil
}
