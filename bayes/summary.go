package bayes

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/gonum/matrix/mat64"
	"gonum.org/v1/gonum/stat"
)

// ParamSummary is one parameter's posterior summary.
type ParamSummary struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	SD    float64 `json:"sd"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Summary returns per-parameter posterior means, standard deviations
// and central credible intervals of the given probability mass.
func (f *Fit) Summary(prob float64) []ParamSummary {
	if prob <= 0 || prob >= 1 {
		prob = 0.9
	}
	s, p := f.draws.Dims()
	out := make([]ParamSummary, p)
	col := make([]float64, s)
	lo := (1 - prob) / 2
	for j := 0; j < p; j++ {
		mat64.Col(col, j, f.draws)
		mean, sd := stat.MeanStdDev(col, nil)
		sort.Float64s(col)
		out[j] = ParamSummary{
			Name:  f.names[j],
			Mean:  mean,
			SD:    sd,
			Lower: stat.Quantile(lo, stat.Empirical, col, nil),
			Upper: stat.Quantile(1-lo, stat.Empirical, col, nil),
		}
	}
	return out
}

func (f *Fit) String() string {
	var b bytes.Buffer
	kind := "MCMC"
	if !f.mcmc {
		kind = "posterior mode"
	}
	fmt.Fprintf(&b, "family: %v, link: %v (%s)\n", f.Family, f.Link, kind)
	fmt.Fprintf(&b, "observations: %d, draws: %d (%d chains)\n\n", f.NObs(), f.NDraws(), f.chains)
	fmt.Fprintf(&b, "%-24s %9s %9s %9s %9s\n", "", "mean", "sd", "5%", "95%")
	for _, ps := range f.Summary(0.9) {
		fmt.Fprintf(&b, "%-24s %9.3f %9.3f %9.3f %9.3f\n", ps.Name, ps.Mean, ps.SD, ps.Lower, ps.Upper)
	}
	return b.String()
}
