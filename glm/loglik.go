package glm

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"

	"github.com/harleyjean/rstanarm/dist"
)

const ln2Pi = 1.8378770664093453

// pointLogLik evaluates the log-likelihood of a single observation
// given its linear predictor and the auxiliary parameters of one draw.
type pointLogLik func(l Link, d *Data, i int, eta float64, aux []float64) float64

// evaluators is the closed dispatch table; init verifies completeness.
var evaluators = map[Family]pointLogLik{
	Gaussian:      gaussianLogLik,
	Binomial:      binomialLogLik,
	Poisson:       poissonLogLik,
	NegBinomial2:  negBinomial2LogLik,
	Gamma:         gammaLogLik,
	InvGaussian:   invGaussianLogLik,
	OrderedProbit: orderedProbitLogLik,
}

func init() {
	for f := Family(0); f < numFamilies; f++ {
		if evaluators[f] == nil {
			panic(fmt.Sprintf("no log-likelihood evaluator for family %v", f))
		}
	}
}

// log1pExp computes log(1+exp(x)) without overflow.
func log1pExp(x float64) float64 {
	if x > 35 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

func gaussianLogLik(l Link, d *Data, i int, eta float64, aux []float64) float64 {
	sigma := aux[0]
	if sigma <= 0 {
		return math.Inf(-1)
	}
	z := (d.Y[i] - l.Inv(eta)) / sigma
	return -0.5*ln2Pi - math.Log(sigma) - 0.5*z*z
}

func binomialLogLik(l Link, d *Data, i int, eta float64, aux []float64) float64 {
	y := d.Y[i]
	trials := 1.0
	if d.Trials != nil {
		trials = d.Trials[i]
	}
	coef := dist.LnChoose(trials, y)
	switch l {
	case Logit:
		return coef + y*eta - trials*log1pExp(eta)
	case Probit:
		return coef + y*dist.LnCDFNormal(eta) + (trials-y)*dist.LnCDFNormal(-eta)
	}
	p := l.Inv(eta)
	if p <= 0 || p >= 1 {
		return math.Inf(-1)
	}
	return coef + y*math.Log(p) + (trials-y)*math.Log1p(-p)
}

func poissonLogLik(l Link, d *Data, i int, eta float64, aux []float64) float64 {
	y := d.Y[i]
	lg, _ := math.Lgamma(y + 1)
	if l == Log {
		return y*eta - math.Exp(eta) - lg
	}
	lambda := l.Inv(eta)
	if lambda <= 0 {
		return math.Inf(-1)
	}
	return y*math.Log(lambda) - lambda - lg
}

func negBinomial2LogLik(l Link, d *Data, i int, eta float64, aux []float64) float64 {
	y := d.Y[i]
	phi := aux[0]
	mu := l.Inv(eta)
	if phi <= 0 || mu <= 0 {
		return math.Inf(-1)
	}
	lgYPhi, _ := math.Lgamma(y + phi)
	lgPhi, _ := math.Lgamma(phi)
	lgY1, _ := math.Lgamma(y + 1)
	lmp := math.Log(mu + phi)
	return lgYPhi - lgPhi - lgY1 + phi*(math.Log(phi)-lmp) + y*(math.Log(mu)-lmp)
}

func gammaLogLik(l Link, d *Data, i int, eta float64, aux []float64) float64 {
	y := d.Y[i]
	shape := aux[0]
	mu := l.Inv(eta)
	if shape <= 0 || mu <= 0 {
		return math.Inf(-1)
	}
	lg, _ := math.Lgamma(shape)
	return shape*math.Log(shape/mu) + (shape-1)*math.Log(y) - shape*y/mu - lg
}

func invGaussianLogLik(l Link, d *Data, i int, eta float64, aux []float64) float64 {
	y := d.Y[i]
	lambda := aux[0]
	mu := l.Inv(eta)
	if lambda <= 0 || mu <= 0 {
		return math.Inf(-1)
	}
	dev := y - mu
	return 0.5*(math.Log(lambda)-ln2Pi-3*math.Log(y)) - lambda*dev*dev/(2*mu*mu*y)
}

func orderedProbitLogLik(l Link, d *Data, i int, eta float64, aux []float64) float64 {
	k := int(d.Y[i])
	for j := 1; j < len(aux); j++ {
		if aux[j] <= aux[j-1] {
			return math.Inf(-1)
		}
	}
	high := 1.0
	if k < d.NCat {
		high = dist.CDFNormal(aux[k-1] - eta)
	}
	low := 0.0
	if k > 1 {
		low = dist.CDFNormal(aux[k-2] - eta)
	}
	if high <= low {
		return math.Inf(-1)
	}
	return math.Log(high - low)
}

// LogLik computes the draws-by-observations pointwise log-likelihood
// matrix for the family. beta holds the S coefficient draws by row; aux
// holds the auxiliary draws (nil when the family has none). Observation
// weights, when present, scale each observation's contribution.
func LogLik(f Family, l Link, d *Data, beta, aux *mat64.Dense) (*mat64.Dense, error) {
	eval := evaluators[f]
	if eval == nil {
		return nil, fmt.Errorf("no log-likelihood evaluator for family %v", f)
	}
	if err := d.Check(f); err != nil {
		return nil, err
	}
	s, p := beta.Dims()
	if p != d.NPred() {
		return nil, fmt.Errorf("draws have %d coefficients, model matrix has %d columns", p, d.NPred())
	}
	nAux := f.NAux(d)
	if nAux > 0 {
		if aux == nil {
			return nil, fmt.Errorf("family %v needs %d auxiliary parameters, none supplied", f, nAux)
		}
		sa, pa := aux.Dims()
		if sa != s || pa != nAux {
			return nil, fmt.Errorf("auxiliary draws are %dx%d, want %dx%d", sa, pa, s, nAux)
		}
	}
	n := d.NObs()

	// linear predictor for every draw and observation
	eta := mat64.NewDense(s, n, nil)
	eta.Mul(beta, d.X.T())

	ll := mat64.NewDense(s, n, nil)
	for si := 0; si < s; si++ {
		var auxRow []float64
		if nAux > 0 {
			auxRow = mat64.Row(nil, si, aux)
		}
		for i := 0; i < n; i++ {
			v := eval(l, d, i, eta.At(si, i), auxRow)
			if d.Weights != nil {
				v *= d.Weights[i]
			}
			ll.Set(si, i, v)
		}
	}
	return ll, nil
}

// LogLikSum returns the total log-likelihood of the data for a single
// parameter vector. It is the sampler's objective contribution.
func LogLikSum(f Family, l Link, d *Data, beta, aux []float64) float64 {
	eval := evaluators[f]
	n := d.NObs()
	p := len(beta)
	total := 0.0
	for i := 0; i < n; i++ {
		eta := 0.0
		for j := 0; j < p; j++ {
			eta += d.X.At(i, j) * beta[j]
		}
		v := eval(l, d, i, eta, aux)
		if d.Weights != nil {
			v *= d.Weights[i]
		}
		total += v
		if math.IsInf(total, -1) {
			return total
		}
	}
	return total
}
