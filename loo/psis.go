package loo

import (
	"math"
	"sort"
	"sync"

	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/floats"
)

// minTailLen is the smallest tail for which generalized Pareto
// smoothing is attempted.
const minTailLen = 5

// PsisResult holds the Pareto-smoothed importance-sampling weights for
// every observation: the normalized log-weight matrix (same shape as
// the input log ratios), the fitted tail shape K per observation, and
// whether tail smoothing was applied.
type PsisResult struct {
	LogWeights *mat64.Dense
	K          []float64
	Smoothed   []bool
	TailLen    []int
	REff       []float64
}

// Degenerate returns the observations whose tail was too short or too
// flat to smooth.
func (p *PsisResult) Degenerate() []int {
	var idx []int
	for i, s := range p.Smoothed {
		if !s {
			idx = append(idx, i)
		}
	}
	return idx
}

// tailLen returns the number of draws treated as the importance-ratio
// tail: about the largest 20%, shrunk when the effective sample size
// of the column is low.
func tailLen(s int, reff float64) int {
	t := 3 * math.Sqrt(float64(s)/reff)
	if f := 0.2 * float64(s); t > f {
		t = f
	}
	return int(math.Ceil(t))
}

// Psis converts a matrix of raw importance log-ratios (one column per
// observation, chains stacked by row) into smoothed, normalized
// log-weights. reff holds the per-observation relative efficiencies;
// nil means 1 for all. Columns are independent; workers > 1 processes
// them concurrently.
func Psis(logRatios *mat64.Dense, reff []float64, workers int) *PsisResult {
	s, n := logRatios.Dims()
	res := &PsisResult{
		LogWeights: mat64.NewDense(s, n, nil),
		K:          make([]float64, n),
		Smoothed:   make([]bool, n),
		TailLen:    make([]int, n),
		REff:       make([]float64, n),
	}

	if workers < 2 {
		workers = 1
	}
	tasks := make(chan int, n)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lr := make([]float64, s)
			for i := range tasks {
				mat64.Col(lr, i, logRatios)
				r := 1.0
				if reff != nil {
					r = reff[i]
				}
				lw, k, smoothed, tl := psisColumn(lr, r)
				res.K[i] = k
				res.Smoothed[i] = smoothed
				res.TailLen[i] = tl
				res.REff[i] = r
				res.LogWeights.SetCol(i, lw)
			}
		}()
	}
	for i := 0; i < n; i++ {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	return res
}

// psisColumn smooths one observation's log ratios. lr is clobbered;
// the returned slice is lr normalized to logSumExp 0.
func psisColumn(lr []float64, reff float64) (lw []float64, k float64, smoothed bool, tl int) {
	s := len(lr)
	max := floats.Max(lr)
	for i := range lr {
		lr[i] -= max
	}

	k = math.Inf(1)
	tl = tailLen(s, reff)
	if tl >= minTailLen && tl < s {
		order := make([]int, s)
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return lr[order[a]] < lr[order[b]] })

		// threshold: the largest ratio still in the bulk
		cut := lr[order[s-tl-1]]
		expCut := math.Exp(cut)

		// exceedances over the threshold on the ratio scale
		exc := make([]float64, tl)
		for j := 0; j < tl; j++ {
			exc[j] = math.Exp(lr[order[s-tl+j]]) - expCut
		}
		if exc[tl-1] > exc[0]*(1+1e-10) && exc[tl-1] > 0 {
			kHat, sigma := gpdFit(exc, true)
			if !math.IsNaN(kHat) && !math.IsNaN(sigma) && sigma > 0 {
				// replace the tail with expected order statistics of
				// the fitted distribution, capped at the raw maximum
				for j := 0; j < tl; j++ {
					q := qgpd((float64(j)+0.5)/float64(tl), kHat, sigma)
					v := math.Log(q + expCut)
					if v > 0 {
						v = 0
					}
					lr[order[s-tl+j]] = v
				}
				k = kHat
				smoothed = true
			}
		}
	}

	// self-normalize within the observation
	total := floats.LogSumExp(lr)
	for i := range lr {
		lr[i] -= total
	}
	return lr, k, smoothed, tl
}
