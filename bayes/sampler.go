package bayes

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gonum/matrix/mat64"

	"github.com/harleyjean/rstanarm/checkpoint"
	"github.com/harleyjean/rstanarm/glm"
)

const (
	// targetAcceptance is the usual optimum for one-at-a-time
	// random-walk updates.
	targetAcceptance = 0.44
	adaptBatch       = 50
	accPeriod        = 500
)

// buildParams lays out the sampling dimensions: the model-matrix
// coefficients followed by the family's auxiliary parameters.
func buildParams(spec *Spec) []*param {
	p := spec.Data.NPred()
	params := make([]*param, 0, p+spec.Family.NAux(spec.Data))
	for j := 0; j < p; j++ {
		name := fmt.Sprintf("beta[%d]", j+1)
		prior := spec.Priors.Coefficient
		if j == 0 && spec.Intercept {
			name = "(Intercept)"
			prior = spec.Priors.Intercept
		} else if len(spec.Names) > j {
			name = spec.Names[j]
		}
		params = append(params, newParam(name, math.Inf(-1), 0, prior))
	}
	switch spec.Family {
	case glm.Gaussian, glm.NegBinomial2, glm.Gamma, glm.InvGaussian:
		params = append(params, newParam(spec.Family.AuxName(), 0, 1, spec.Priors.Aux))
	case glm.OrderedProbit:
		// evenly spaced initial cutpoints centered at zero
		k := spec.Data.NCat - 1
		for j := 0; j < k; j++ {
			name := fmt.Sprintf("%s[%d]", spec.Family.AuxName(), j+1)
			init := float64(j) - float64(k-1)/2
			params = append(params, newParam(name, math.Inf(-1), init, spec.Priors.Cutpoint))
		}
	}
	return params
}

// chain is one sampler chain with its own parameter copies and RNG.
type chain struct {
	id     int
	spec   *Spec
	params []*param
	rng    *rand.Rand

	// draws is shared across chains; this chain owns rows
	// [id*iter, (id+1)*iter).
	draws *mat64.Dense

	beta    []float64
	aux     []float64
	accRate float64
}

func newChain(id int, spec *Spec, draws *mat64.Dense) *chain {
	c := &chain{
		id:     id,
		spec:   spec,
		params: buildParams(spec),
		rng:    rand.New(rand.NewSource(spec.Seed + int64(id))),
		draws:  draws,
		beta:   make([]float64, spec.Data.NPred()),
	}
	if nAux := spec.Family.NAux(spec.Data); nAux > 0 {
		c.aux = make([]float64, nAux)
	}
	c.jitter()
	return c
}

// jitter disperses the chain's starting point. Cutpoints are left
// alone so their ordering survives.
func (c *chain) jitter() {
	p := c.spec.Data.NPred()
	for j, par := range c.params {
		switch {
		case j < p:
			par.value += 0.2 * c.rng.NormFloat64()
		case par.min == 0:
			par.value *= math.Exp(0.2 * c.rng.NormFloat64())
		}
	}
}

// logPost evaluates the unnormalized log posterior at the chain's
// current parameter values.
func (c *chain) logPost() float64 {
	lp := 0.0
	for _, par := range c.params {
		lp += par.prior(par.value)
		if math.IsInf(lp, -1) {
			return lp
		}
	}
	p := len(c.beta)
	for j, par := range c.params {
		if j < p {
			c.beta[j] = par.value
		} else {
			c.aux[j-p] = par.value
		}
	}
	return lp + glm.LogLikSum(c.spec.Family, c.spec.Link, c.spec.Data, c.beta, c.aux)
}

// run performs warmup with proposal adaptation followed by the kept
// draws.
func (c *chain) run() {
	c.restore()
	lp := c.logPost()
	total := c.spec.Warmup + c.spec.Iter
	accepted, proposed := 0, 0

	for i := 0; i < total; i++ {
		for _, par := range c.params {
			par.propose(c.rng)
			newLp := c.logPost()
			if newLp >= lp || math.Log(c.rng.Float64()) < newLp-lp {
				lp = newLp
				par.accept()
				accepted++
			} else {
				par.reject()
			}
			proposed++
		}
		if i < c.spec.Warmup && (i+1)%adaptBatch == 0 {
			for _, par := range c.params {
				par.adapt(targetAcceptance)
			}
		}
		if i >= c.spec.Warmup {
			row := c.id*c.spec.Iter + i - c.spec.Warmup
			for j, par := range c.params {
				c.draws.Set(row, j, par.value)
			}
		}
		if (i+1)%accPeriod == 0 {
			log.Debugf("chain %d, %d: lnP=%f, acceptance rate %.2f%%",
				c.id, i+1, lp, 100*float64(accepted)/float64(proposed))
		}
		c.save(i, lp, false)
	}
	c.accRate = float64(accepted) / float64(proposed)
	c.save(total, lp, true)
}

// restore warm-starts the chain from a checkpoint when one is present.
func (c *chain) restore() {
	if c.spec.Checkpoint == nil {
		return
	}
	state, err := c.spec.Checkpoint.Load(c.id)
	if err != nil {
		log.Warningf("chain %d: cannot load checkpoint: %v", c.id, err)
		return
	}
	if state == nil || len(state.Values) != len(c.params) {
		return
	}
	for j, par := range c.params {
		par.value = state.Values[j]
		if len(state.Scales) == len(c.params) {
			par.scale = state.Scales[j]
		}
	}
}

func (c *chain) save(iter int, lp float64, final bool) {
	s := c.spec.Checkpoint
	if s == nil || (!final && !s.Due(c.id)) {
		return
	}
	state := &checkpoint.ChainState{
		Chain:   c.id,
		Iter:    iter,
		Values:  make([]float64, len(c.params)),
		Scales:  make([]float64, len(c.params)),
		LogPost: lp,
		Final:   final,
	}
	for j, par := range c.params {
		state.Values[j] = par.value
		state.Scales[j] = par.scale
	}
	s.Save(state)
}
