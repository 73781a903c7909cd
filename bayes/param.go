package bayes

import (
	"math"
	"math/rand"
)

// param is one scalar sampling dimension with its own adaptive
// random-walk proposal scale.
type param struct {
	name  string
	min   float64
	prior Prior

	value float64
	old   float64
	scale float64

	// batch acceptance counters driving warmup adaptation
	proposed int
	accepted int
	batch    int
}

func newParam(name string, min, init float64, prior Prior) *param {
	return &param{
		name:  name,
		min:   min,
		prior: prior,
		value: init,
		scale: 0.5,
	}
}

// propose replaces the value with a random-walk step, reflecting off
// the lower bound.
func (p *param) propose(rng *rand.Rand) {
	p.old = p.value
	p.value += rng.NormFloat64() * p.scale
	for p.value < p.min {
		p.value = p.min + (p.min - p.value)
	}
	p.proposed++
}

func (p *param) accept() {
	p.accepted++
}

func (p *param) reject() {
	p.value = p.old
}

// adapt rescales the proposal towards the target acceptance rate with a
// diminishing Robbins-Monro step and resets the batch counters.
func (p *param) adapt(target float64) {
	if p.proposed == 0 {
		return
	}
	p.batch++
	rate := float64(p.accepted) / float64(p.proposed)
	gamma := 1 / math.Sqrt(float64(p.batch))
	p.scale *= math.Exp(gamma * (rate - target))
	p.proposed = 0
	p.accepted = 0
}
