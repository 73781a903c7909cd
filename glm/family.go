// Package glm provides generalized linear model families, link
// functions and pointwise log-likelihood evaluation for posterior
// draws.
package glm

import (
	"fmt"
	"math"

	"github.com/harleyjean/rstanarm/dist"
)

// Family is an enumerated distributional family.
type Family int

// Supported families.
const (
	Gaussian Family = iota
	Binomial
	Poisson
	NegBinomial2
	Gamma
	InvGaussian
	OrderedProbit
	numFamilies
)

var familyNames = map[Family]string{
	Gaussian:      "gaussian",
	Binomial:      "binomial",
	Poisson:       "poisson",
	NegBinomial2:  "neg_binomial_2",
	Gamma:         "gamma",
	InvGaussian:   "inverse_gaussian",
	OrderedProbit: "ordered_probit",
}

func (f Family) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// ParseFamily returns a family from its string representation.
func ParseFamily(s string) (Family, error) {
	for f, name := range familyNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown family: %s", s)
}

// DefaultLink returns the canonical link for the family.
func (f Family) DefaultLink() Link {
	switch f {
	case Gaussian:
		return Identity
	case Binomial:
		return Logit
	case Gamma, InvGaussian, Poisson, NegBinomial2:
		return Log
	case OrderedProbit:
		return Probit
	}
	return Identity
}

// NAux returns the number of auxiliary (non-regression) parameters for
// the family given the data: dispersion-type parameters, or ordinal
// cutpoints.
func (f Family) NAux(d *Data) int {
	switch f {
	case Gaussian, NegBinomial2, Gamma, InvGaussian:
		return 1
	case OrderedProbit:
		return d.NCat - 1
	}
	return 0
}

// AuxName returns the conventional name of the auxiliary parameter.
func (f Family) AuxName() string {
	switch f {
	case Gaussian:
		return "sigma"
	case NegBinomial2:
		return "reciprocal_dispersion"
	case Gamma:
		return "shape"
	case InvGaussian:
		return "lambda"
	case OrderedProbit:
		return "cutpoint"
	}
	return ""
}

// Link is a link function connecting the linear predictor to the mean.
type Link int

// Supported links.
const (
	Identity Link = iota
	Log
	Logit
	Probit
)

var linkNames = map[Link]string{
	Identity: "identity",
	Log:      "log",
	Logit:    "logit",
	Probit:   "probit",
}

func (l Link) String() string {
	if s, ok := linkNames[l]; ok {
		return s
	}
	return fmt.Sprintf("link(%d)", int(l))
}

// ParseLink returns a link from its string representation.
func ParseLink(s string) (Link, error) {
	for l, name := range linkNames {
		if name == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown link: %s", s)
}

// Inv maps a linear predictor value to the mean scale.
func (l Link) Inv(eta float64) float64 {
	switch l {
	case Log:
		return math.Exp(eta)
	case Logit:
		return 1 / (1 + math.Exp(-eta))
	case Probit:
		return dist.CDFNormal(eta)
	}
	return eta
}

// Apply maps a mean value to the linear predictor scale.
func (l Link) Apply(mu float64) float64 {
	switch l {
	case Log:
		return math.Log(mu)
	case Logit:
		return math.Log(mu / (1 - mu))
	case Probit:
		return dist.QuantileNormal(mu)
	}
	return mu
}

// ValidLink reports whether the link is meaningful for the family.
func (f Family) ValidLink(l Link) bool {
	switch f {
	case Gaussian:
		return l == Identity || l == Log
	case Binomial:
		return l == Logit || l == Probit
	case Poisson, NegBinomial2, Gamma, InvGaussian:
		return l == Log || l == Identity
	case OrderedProbit:
		return l == Probit
	}
	return false
}
