// Package bayes fits generalized linear models by Markov chain Monte
// Carlo and exposes the fitted-model handle the evaluation routines in
// the loo package consume.
package bayes

import (
	"fmt"
	"sync"

	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"

	"github.com/harleyjean/rstanarm/checkpoint"
	"github.com/harleyjean/rstanarm/glm"
	"github.com/harleyjean/rstanarm/loo"
)

var log = logging.MustGetLogger("bayes")

// Spec describes a model to fit: the family, link and data, the priors
// and the sampler settings.
type Spec struct {
	Family glm.Family
	Link   glm.Link
	Data   *glm.Data
	Priors *Priors
	// Intercept marks the first model-matrix column as the intercept,
	// giving it its own prior and name.
	Intercept bool
	// Names are optional coefficient names matching the model-matrix
	// columns.
	Names []string

	// Chains is the number of chains; Iter the kept draws per chain
	// after Warmup discarded ones.
	Chains int
	Iter   int
	Warmup int
	Seed   int64

	// Checkpoint, when set, receives periodic chain snapshots.
	Checkpoint *checkpoint.Store
}

// NewSpec returns a spec with the family's canonical link, default
// priors and default sampler settings.
func NewSpec(f glm.Family, d *glm.Data) *Spec {
	return &Spec{
		Family:    f,
		Link:      f.DefaultLink(),
		Data:      d,
		Priors:    DefaultPriors(),
		Intercept: f != glm.OrderedProbit,
		Chains:    4,
		Iter:      1000,
		Warmup:    1000,
		Seed:      1,
	}
}

func (s *Spec) withDefaults() (*Spec, error) {
	cp := *s
	if cp.Chains <= 0 {
		cp.Chains = 4
	}
	if cp.Iter <= 0 {
		cp.Iter = 1000
	}
	if cp.Warmup <= 0 {
		cp.Warmup = cp.Iter
	}
	if cp.Seed == 0 {
		cp.Seed = 1
	}
	if cp.Priors == nil {
		cp.Priors = DefaultPriors()
	}
	if cp.Data == nil {
		return nil, fmt.Errorf("no data")
	}
	if !cp.Family.ValidLink(cp.Link) {
		return nil, fmt.Errorf("link %v is not valid for family %v", cp.Link, cp.Family)
	}
	if err := cp.Data.Check(cp.Family); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Fit is a fitted model: the posterior draws together with everything
// needed to evaluate and refit it.
type Fit struct {
	Family glm.Family
	Link   glm.Link

	spec  *Spec
	data  *glm.Data
	full  *glm.Data
	names []string

	// draws is chains*iter rows by parameter columns.
	draws   *mat64.Dense
	chains  int
	mcmc    bool
	accRate float64
}

// Fit satisfies the fitted-model interface the evaluation routines
// consume.
var _ loo.Model = (*Fit)(nil)

// Sample fits the model by running the spec's chains concurrently.
func Sample(spec *Spec) (*Fit, error) {
	s, err := spec.withDefaults()
	if err != nil {
		return nil, err
	}

	params := buildParams(s)
	names := make([]string, len(params))
	for j, par := range params {
		names[j] = par.name
	}

	draws := mat64.NewDense(s.Chains*s.Iter, len(params), nil)
	chains := make([]*chain, s.Chains)
	var wg sync.WaitGroup
	for id := 0; id < s.Chains; id++ {
		chains[id] = newChain(id, s, draws)
		wg.Add(1)
		go func(c *chain) {
			defer wg.Done()
			c.run()
		}(chains[id])
	}
	wg.Wait()

	acc := 0.0
	for _, c := range chains {
		acc += c.accRate
	}
	acc /= float64(s.Chains)
	log.Infof("Sampled %d chains of %d draws, mean acceptance rate %.2f%%",
		s.Chains, s.Iter, 100*acc)
	if acc < 0.05 {
		log.Warningf("Very low acceptance rate (%.2f%%); the posterior draws may be unreliable", 100*acc)
	}

	return &Fit{
		Family:  s.Family,
		Link:    s.Link,
		spec:    s,
		data:    s.Data,
		full:    s.Data,
		names:   names,
		draws:   draws,
		chains:  s.Chains,
		mcmc:    true,
		accRate: acc,
	}, nil
}

// NObs returns the number of observations the model was fit to.
func (f *Fit) NObs() int { return f.data.NObs() }

// NChains returns the number of sampler chains.
func (f *Fit) NChains() int { return f.chains }

// IsMCMC reports whether the fit consists of posterior draws rather
// than a point estimate.
func (f *Fit) IsMCMC() bool { return f.mcmc }

// Weighted reports whether the fit used non-trivial observation
// weights.
func (f *Fit) Weighted() bool { return f.data.Weighted() }

// NDraws returns the total number of kept draws across chains.
func (f *Fit) NDraws() int {
	s, _ := f.draws.Dims()
	return s
}

// Names returns the parameter names in draw-column order.
func (f *Fit) Names() []string { return f.names }

// Draws returns the draws matrix, chains stacked by row blocks.
func (f *Fit) Draws() *mat64.Dense { return f.draws }

// splitDraws separates the draws into coefficient and auxiliary
// blocks.
func (f *Fit) splitDraws() (beta, aux *mat64.Dense) {
	s, total := f.draws.Dims()
	p := f.data.NPred()
	beta = mat64.NewDense(s, p, nil)
	if total > p {
		aux = mat64.NewDense(s, total-p, nil)
	}
	for i := 0; i < s; i++ {
		for j := 0; j < total; j++ {
			if j < p {
				beta.Set(i, j, f.draws.At(i, j))
			} else {
				aux.Set(i, j-p, f.draws.At(i, j))
			}
		}
	}
	return beta, aux
}

// LogLik returns the draws-by-observations pointwise log-likelihood
// matrix over the fit's own data.
func (f *Fit) LogLik() (*mat64.Dense, error) {
	beta, aux := f.splitDraws()
	return glm.LogLik(f.Family, f.Link, f.data, beta, aux)
}

// LogLikOf returns the pointwise log-likelihood matrix of selected
// observations of the original dataset, whether or not this fit's
// training data includes them.
func (f *Fit) LogLikOf(obs []int) (*mat64.Dense, error) {
	beta, aux := f.splitDraws()
	return glm.LogLik(f.Family, f.Link, f.full.Subset(obs), beta, aux)
}

// Refit fits the same model on the original dataset with the given
// observations held out.
func (f *Fit) Refit(exclude []int) (loo.Model, error) {
	if !f.mcmc {
		return nil, fmt.Errorf("cannot refit a posterior-mode fit")
	}
	keep := glm.Keep(f.full.NObs(), exclude)
	if len(keep) == 0 {
		return nil, fmt.Errorf("refit would drop every observation")
	}
	spec := *f.spec
	spec.Data = f.full.Subset(keep)
	spec.Checkpoint = nil
	spec.Seed = f.spec.Seed + 1
	if len(exclude) > 0 {
		spec.Seed += int64(exclude[0])
	}
	rf, err := Sample(&spec)
	if err != nil {
		return nil, err
	}
	rf.full = f.full
	return rf, nil
}
