package loo

import (
	"fmt"
	"math"
	"sync"

	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/floats"
)

// refitOutcome is one observation's exact leave-one-out computation.
type refitOutcome struct {
	obs  int
	elpd float64
	err  error
}

// refit runs exact leave-one-out refits for the given observations and
// splices the exact predictive densities into the pointwise table.
// Each refit is independent; a failure is recorded against its
// observation and the importance-sampling value is kept there.
func refit(m Model, res *LooResult, obs []int, workers int) {
	log.Noticef("Refitting %d of %d observations exactly", len(obs), res.NObs)

	if workers > len(obs) {
		workers = len(obs)
	}
	if workers < 1 {
		workers = 1
	}
	tasks := make(chan int, len(obs))
	outcomes := make(chan refitOutcome, len(obs))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				elpd, err := exactElpd(m, i)
				outcomes <- refitOutcome{i, elpd, err}
			}
		}()
	}
	for _, i := range obs {
		res.States[i] = StateRefitting
		tasks <- i
	}
	close(tasks)
	wg.Wait()
	close(outcomes)

	// reassemble by observation index; completion order is arbitrary
	for out := range outcomes {
		pt := &res.Pointwise[out.obs]
		if out.err != nil {
			log.Errorf("Refit failed for observation %d: %v", out.obs, out.err)
			res.States[out.obs] = StateRefitFailed
			res.RefitFailed = append(res.RefitFailed, out.obs)
			continue
		}
		lpd := pt.Elpd + pt.P // full-posterior log predictive density
		pt.Elpd = out.elpd
		pt.P = lpd - out.elpd
		pt.K = 0
		pt.Mcse = math.NaN()
		pt.Refit = true
		res.States[out.obs] = StateRefitDone
	}
	res.total()

	if len(res.RefitFailed) > 0 {
		res.warnf("Exact refit failed for %d observations (%v); their importance-sampling estimates were kept.",
			len(res.RefitFailed), res.RefitFailed)
	}
}

// exactElpd refits the model without observation i and evaluates the
// held-out log predictive density under the refit posterior.
func exactElpd(m Model, i int) (float64, error) {
	rf, err := m.Refit([]int{i})
	if err != nil {
		return 0, fmt.Errorf("refit excluding observation %d: %v", i, err)
	}
	ll, err := rf.LogLikOf([]int{i})
	if err != nil {
		return 0, fmt.Errorf("held-out log-likelihood for observation %d: %v", i, err)
	}
	s, _ := ll.Dims()
	col := mat64.Col(nil, 0, ll)
	return floats.LogSumExp(col) - math.Log(float64(s)), nil
}
