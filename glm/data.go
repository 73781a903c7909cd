package glm

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
)

// Data holds the observations for a model: the response, the model
// matrix and optional observation weights and binomial trial counts.
// The model matrix includes the intercept column when the model has
// one; ordinal models have no intercept (the cutpoints absorb it).
type Data struct {
	Y       []float64
	X       *mat64.Dense
	Weights []float64
	Trials  []float64
	// NCat is the number of response categories for ordinal models.
	NCat int
}

// NObs returns the number of observations.
func (d *Data) NObs() int {
	return len(d.Y)
}

// NPred returns the number of columns of the model matrix.
func (d *Data) NPred() int {
	_, p := d.X.Dims()
	return p
}

// Weighted reports whether the data carries non-trivial observation
// weights.
func (d *Data) Weighted() bool {
	if d.Weights == nil {
		return false
	}
	for _, w := range d.Weights {
		if w != 1 {
			return true
		}
	}
	return false
}

// Check validates the data against a family.
func (d *Data) Check(f Family) error {
	n := len(d.Y)
	if n == 0 {
		return fmt.Errorf("empty response")
	}
	rows, _ := d.X.Dims()
	if rows != n {
		return fmt.Errorf("model matrix has %d rows for %d observations", rows, n)
	}
	if d.Weights != nil && len(d.Weights) != n {
		return fmt.Errorf("weights length %d does not match %d observations", len(d.Weights), n)
	}
	if d.Trials != nil && len(d.Trials) != n {
		return fmt.Errorf("trials length %d does not match %d observations", len(d.Trials), n)
	}
	for i, y := range d.Y {
		switch f {
		case Binomial:
			trials := 1.0
			if d.Trials != nil {
				trials = d.Trials[i]
			}
			if y < 0 || y > trials || y != math.Trunc(y) {
				return fmt.Errorf("observation %d: binomial response %v outside [0, %v]", i, y, trials)
			}
		case Poisson, NegBinomial2:
			if y < 0 || y != math.Trunc(y) {
				return fmt.Errorf("observation %d: count response %v is not a non-negative integer", i, y)
			}
		case Gamma, InvGaussian:
			if y <= 0 {
				return fmt.Errorf("observation %d: response %v must be positive", i, y)
			}
		case OrderedProbit:
			if d.NCat < 2 {
				return fmt.Errorf("ordinal model needs at least 2 categories, got %d", d.NCat)
			}
			if y < 1 || y > float64(d.NCat) || y != math.Trunc(y) {
				return fmt.Errorf("observation %d: ordinal response %v outside 1..%d", i, y, d.NCat)
			}
		}
	}
	return nil
}

// Subset returns a copy of the data restricted to the given rows.
func (d *Data) Subset(rows []int) *Data {
	n := len(rows)
	_, p := d.X.Dims()
	sub := &Data{
		Y:    make([]float64, n),
		X:    mat64.NewDense(n, p, nil),
		NCat: d.NCat,
	}
	if d.Weights != nil {
		sub.Weights = make([]float64, n)
	}
	if d.Trials != nil {
		sub.Trials = make([]float64, n)
	}
	for i, r := range rows {
		sub.Y[i] = d.Y[r]
		for j := 0; j < p; j++ {
			sub.X.Set(i, j, d.X.At(r, j))
		}
		if d.Weights != nil {
			sub.Weights[i] = d.Weights[r]
		}
		if d.Trials != nil {
			sub.Trials[i] = d.Trials[r]
		}
	}
	return sub
}

// Keep returns the indices of 0..n-1 that are not listed in drop.
func Keep(n int, drop []int) []int {
	dropped := make(map[int]bool, len(drop))
	for _, i := range drop {
		dropped[i] = true
	}
	keep := make([]int, 0, n-len(drop))
	for i := 0; i < n; i++ {
		if !dropped[i] {
			keep = append(keep, i)
		}
	}
	return keep
}
