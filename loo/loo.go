package loo

import (
	"math"

	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Compute estimates leave-one-out cross-validation for a fitted model
// via Pareto-smoothed importance sampling, refitting unreliable
// observations exactly when the options enable it. The returned result
// is always best-effort complete; advisory conditions are recorded in
// its Warnings rather than returned as errors.
func Compute(m Model, opts *Options) (*LooResult, error) {
	if opts == nil {
		opts = &Options{}
	}
	if !m.IsMCMC() {
		return nil, &NotMCMCError{"loo"}
	}
	if m.Weighted() {
		return nil, &UnsupportedError{"loo is not supported for models fit with observation weights"}
	}
	ll, err := m.LogLik()
	if err != nil {
		return nil, err
	}
	res, err := ComputeMatrix(ll, m.NChains(), opts)
	if err != nil {
		return nil, err
	}
	high := res.HighK()
	if len(high) == 0 {
		return res, nil
	}
	if !opts.Refit {
		res.warnf("We recommend computing these observations exactly: rerun with refitting enabled.")
		return res, nil
	}
	refit(m, res, high, opts.workers())
	return res, nil
}

// ComputeMatrix estimates leave-one-out cross-validation directly from
// a precomputed log-likelihood matrix (rows are draws with chains
// stacked, columns are observations). It is value-identical to Compute
// without refitting on the model the matrix came from.
func ComputeMatrix(ll *mat64.Dense, nChains int, opts *Options) (*LooResult, error) {
	if opts == nil {
		opts = &Options{}
	}
	s, n := ll.Dims()
	threshold, warns, err := checkThreshold(opts.KThreshold, n)
	if err != nil {
		return nil, err
	}

	reff := RelativeEff(ll, nChains)

	// leave-one-out importance ratios are inverse likelihoods
	logRatios := mat64.NewDense(s, n, nil)
	for i := 0; i < s; i++ {
		for j := 0; j < n; j++ {
			logRatios.Set(i, j, -ll.At(i, j))
		}
	}
	psis := Psis(logRatios, reff, opts.workers())

	res := &LooResult{
		ICResult: ICResult{
			NObs:     n,
			NDraws:   s,
			Warnings: warns,
		},
		Threshold: threshold,
		Pointwise: make([]PointLoo, n),
		States:    make([]RefitState, n),
	}

	col := make([]float64, s)
	wcol := make([]float64, s)
	sum := make([]float64, s)
	for i := 0; i < n; i++ {
		mat64.Col(col, i, ll)
		mat64.Col(wcol, i, psis.LogWeights)
		floats.AddTo(sum, col, wcol)

		elpd := floats.LogSumExp(sum)
		lpd := floats.LogSumExp(col) - math.Log(float64(s))
		res.Pointwise[i] = PointLoo{
			Elpd: elpd,
			P:    lpd - elpd,
			Mcse: mcseElpd(col, wcol, psis.K[i]),
			K:    psis.K[i],
		}
	}

	res.total()

	if deg := psis.Degenerate(); len(deg) > 0 {
		res.warnf("Tail smoothing was skipped for %d of %d observations (degenerate or too short importance-ratio tails).", len(deg), n)
	}
	if high := res.HighK(); len(high) > 0 {
		res.warnf("Found %d observations with a pareto_k > %.2f.", len(high), threshold)
		for _, i := range high {
			res.States[i] = StateNeedsRefit
		}
	}
	return res, nil
}

// total recomputes the aggregate estimates from the pointwise table.
// Rows with NaN contributions (failed refits in K-fold style results)
// are skipped.
func (r *LooResult) total() {
	elpds := make([]float64, 0, len(r.Pointwise))
	ps := make([]float64, 0, len(r.Pointwise))
	for _, pt := range r.Pointwise {
		if math.IsNaN(pt.Elpd) {
			continue
		}
		elpds = append(elpds, pt.Elpd)
		ps = append(ps, pt.P)
	}
	r.Elpd = totalEstimate(elpds)
	r.PEff = totalEstimate(ps)
}

// totalEstimate sums pointwise contributions; the standard error is
// sqrt(N) times the standard deviation of the contributions.
func totalEstimate(x []float64) Estimate {
	n := float64(len(x))
	return Estimate{
		Value: floats.Sum(x),
		SE:    math.Sqrt(n * stat.Variance(x, nil)),
	}
}

// mcseElpd returns the Monte Carlo standard error of one observation's
// elpd under self-normalized importance sampling, on the log scale by
// the delta method. For k above 0.7 the variance estimate itself is
// unreliable and NaN is returned.
func mcseElpd(ll, lw []float64, k float64) float64 {
	if k > 0.7 {
		return math.NaN()
	}
	max := floats.Max(ll)
	e := 0.0
	for i := range ll {
		e += math.Exp(lw[i] + ll[i] - max)
	}
	v := 0.0
	for i := range ll {
		w := math.Exp(lw[i])
		d := math.Exp(ll[i]-max) - e
		v += w * w * d * d
	}
	return math.Sqrt(v) / e
}
