package loo

import (
	"math"
	"sync"

	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/floats"
)

// minRecommendedFolds is the fold count below which the advisor
// recommends more folds.
const minRecommendedFolds = 10

// foldOutcome holds one fold's held-out predictive densities.
type foldOutcome struct {
	fold int
	elpd []float64
	err  error
}

// Kfold runs K-fold cross-validation: the model is refit K times, each
// time with one fold held out, and the held-out observations are
// scored under the corresponding refit posterior. Folds are assigned
// round-robin by observation index, so the partition is deterministic
// and every observation is held out exactly once.
func Kfold(m Model, k int, opts *Options) (*KfoldResult, error) {
	if opts == nil {
		opts = &Options{}
	}
	if !m.IsMCMC() {
		return nil, &NotMCMCError{"kfold"}
	}
	n := m.NObs()
	if k < 2 || k > n {
		return nil, &FoldCountError{K: k, N: n}
	}

	res := &KfoldResult{
		ICResult: ICResult{
			NObs: n,
		},
		K:         k,
		Folds:     assignFolds(n, k),
		Pointwise: make([]float64, n),
	}
	if k < minRecommendedFolds && n >= minRecommendedFolds {
		res.warnf("Found %d folds: we recommend at least %d-fold cross-validation.", k, minRecommendedFolds)
	}

	workers := opts.workers()
	if workers > k {
		workers = k
	}
	tasks := make(chan int, k)
	outcomes := make(chan foldOutcome, k)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range tasks {
				elpd, err := foldElpd(m, res.Folds[f])
				outcomes <- foldOutcome{f, elpd, err}
			}
		}()
	}
	for f := 0; f < k; f++ {
		tasks <- f
	}
	close(tasks)
	wg.Wait()
	close(outcomes)

	for out := range outcomes {
		if out.err != nil {
			log.Errorf("Refit failed for fold %d: %v", out.fold, out.err)
			res.Failed = append(res.Failed, out.fold)
			for _, i := range res.Folds[out.fold] {
				res.Pointwise[i] = math.NaN()
			}
			continue
		}
		for j, i := range res.Folds[out.fold] {
			res.Pointwise[i] = out.elpd[j]
		}
	}

	elpds := make([]float64, 0, n)
	for _, v := range res.Pointwise {
		if !math.IsNaN(v) {
			elpds = append(elpds, v)
		}
	}
	res.Elpd = totalEstimate(elpds)
	if len(res.Failed) > 0 {
		res.warnf("Refit failed for %d of %d folds; the elpd estimate covers the remaining observations only.",
			len(res.Failed), k)
	}
	return res, nil
}

// assignFolds deals observations into k folds round-robin.
func assignFolds(n, k int) [][]int {
	folds := make([][]int, k)
	for i := 0; i < n; i++ {
		f := i % k
		folds[f] = append(folds[f], i)
	}
	return folds
}

// foldElpd refits the model without the fold's observations and scores
// each held-out observation under the refit posterior.
func foldElpd(m Model, fold []int) ([]float64, error) {
	rf, err := m.Refit(fold)
	if err != nil {
		return nil, err
	}
	ll, err := rf.LogLikOf(fold)
	if err != nil {
		return nil, err
	}
	s, _ := ll.Dims()
	elpd := make([]float64, len(fold))
	col := make([]float64, s)
	for j := range fold {
		mat64.Col(col, j, ll)
		elpd[j] = floats.LogSumExp(col) - math.Log(float64(s))
	}
	return elpd, nil
}
