package bayes

import (
	"math"

	"github.com/gonum/matrix/mat64"
	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// posteriorObjective adapts the negative log posterior for L-BFGS-B
// with a central finite-difference gradient.
type posteriorObjective struct {
	spec   *Spec
	params []*param
	dH     float64

	grad []float64
	maxL float64
	maxX []float64
}

func (o *posteriorObjective) at(x []float64) float64 {
	for j, par := range o.params {
		if x[j] < par.min {
			return math.Inf(-1)
		}
		par.value = x[j]
	}
	c := &chain{spec: o.spec, params: o.params, beta: make([]float64, o.spec.Data.NPred())}
	if nAux := o.spec.Family.NAux(o.spec.Data); nAux > 0 {
		c.aux = make([]float64, nAux)
	}
	return c.logPost()
}

func (o *posteriorObjective) EvaluateFunction(x []float64) float64 {
	l := o.at(x)
	if l > o.maxL {
		o.maxL = l
		o.maxX = append(o.maxX[:0], x...)
	}
	return -l
}

func (o *posteriorObjective) EvaluateGradient(x []float64) []float64 {
	if o.grad == nil {
		o.grad = make([]float64, len(x))
	}
	xh := append([]float64(nil), x...)
	for j := range x {
		xh[j] = x[j] - o.dH
		l1 := -o.at(xh)
		xh[j] = x[j] + o.dH
		l2 := -o.at(xh)
		xh[j] = x[j]
		o.grad[j] = (l2 - l1) / 2 / o.dH
	}
	return o.grad
}

// Optimize fits the model by maximizing the log posterior. The result
// is a point-estimate fit: it can be summarized and used for
// prediction, but the evaluation routines reject it because it carries
// no posterior draws.
func Optimize(spec *Spec) (*Fit, error) {
	s, err := spec.withDefaults()
	if err != nil {
		return nil, err
	}

	obj := &posteriorObjective{
		spec:   s,
		params: buildParams(s),
		dH:     1e-6,
		maxL:   math.Inf(-1),
	}
	names := make([]string, len(obj.params))
	x0 := make([]float64, len(obj.params))
	bounds := make([][2]float64, len(obj.params))
	for j, par := range obj.params {
		names[j] = par.name
		x0[j] = par.value
		bounds[j][0] = par.min + 1e-5
		bounds[j][1] = math.Inf(+1)
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)
	opt.SetBounds(bounds)

	min, exitStatus := opt.Minimize(obj, x0)
	log.Infof("Optimization finished: %v, lnP=%v", exitStatus, -min.F)

	best := obj.maxX
	if best == nil {
		best = min.X
	}
	draws := mat64.NewDense(1, len(best), nil)
	for j, v := range best {
		draws.Set(0, j, v)
	}
	return &Fit{
		Family: s.Family,
		Link:   s.Link,
		spec:   s,
		data:   s.Data,
		full:   s.Data,
		names:  names,
		draws:  draws,
		chains: 1,
		mcmc:   false,
	}, nil
}
