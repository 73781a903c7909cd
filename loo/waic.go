package loo

import (
	"math"

	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Waic computes the widely applicable information criterion for a
// fitted model. Unlike LOO it has no importance-sampling step, so
// weighted models are accepted.
func Waic(m Model) (*WaicResult, error) {
	if !m.IsMCMC() {
		return nil, &NotMCMCError{"waic"}
	}
	ll, err := m.LogLik()
	if err != nil {
		return nil, err
	}
	return WaicMatrix(ll)
}

// WaicMatrix computes WAIC directly from a precomputed log-likelihood
// matrix. It is value-identical to Waic on the model the matrix came
// from.
func WaicMatrix(ll *mat64.Dense) (*WaicResult, error) {
	s, n := ll.Dims()
	res := &WaicResult{
		ICResult: ICResult{
			NObs:   n,
			NDraws: s,
		},
		Pointwise: make([]PointWaic, n),
	}

	nHighP := 0
	col := make([]float64, s)
	for i := 0; i < n; i++ {
		mat64.Col(col, i, ll)
		lpd := floats.LogSumExp(col) - math.Log(float64(s))
		// the penalty is the posterior variance of the pointwise
		// log-likelihood
		p := stat.Variance(col, nil)
		res.Pointwise[i] = PointWaic{
			Elpd: lpd - p,
			P:    p,
		}
		if p > 0.4 {
			nHighP++
		}
	}

	elpds := make([]float64, n)
	ps := make([]float64, n)
	for i, pt := range res.Pointwise {
		elpds[i] = pt.Elpd
		ps[i] = pt.P
	}
	res.Elpd = totalEstimate(elpds)
	res.PEff = totalEstimate(ps)

	if nHighP > 0 {
		res.warnf("%d of %d p_waic estimates greater than 0.4. We recommend trying loo instead.", nHighP, n)
	}
	return res, nil
}
