package random

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Kind names an inter-arrival distribution.
type Kind string

const (
	Exponential Kind = "exponential"
	Normal      Kind = "normal"
	LogNormal   Kind = "lognormal"
	Gamma       Kind = "gamma"
	Weibull     Kind = "weibull"
)

// DefaultLambda is the rate of the exponential distribution assigned to
// origins without an explicit configuration.
const DefaultLambda = 0.5

type rander interface {
	Rand() float64
}

// Sampler draws inter-arrival times for one origin. Negative draws are
// clamped to zero.
type Sampler struct {
	kind Kind
	dist rander
	mean float64
}

// ValidateParams checks the parameter domain of a distribution without
// building a sampler. Reset fails fast on the error.
func ValidateParams(kind Kind, params map[string]float64) error {
	switch kind {
	case Exponential:
		// lambda == 0 is a disabled origin, not an error
		if l := params["lambda"]; !(l >= 0) {
			return errors.Errorf("exponential: lambda must be >= 0, got %v", l)
		}
	case Normal:
		if s := params["sigma"]; !(s > 0) {
			return errors.Errorf("normal: sigma must be > 0, got %v", s)
		}
	case LogNormal:
		if s := params["sigma"]; !(s > 0) {
			return errors.Errorf("lognormal: sigma must be > 0, got %v", s)
		}
	case Gamma:
		if k := params["k"]; !(k > 0) {
			return errors.Errorf("gamma: k must be > 0, got %v", k)
		}
		if t := params["theta"]; !(t > 0) {
			return errors.Errorf("gamma: theta must be > 0, got %v", t)
		}
	case Weibull:
		if k := params["k"]; !(k > 0) {
			return errors.Errorf("weibull: k must be > 0, got %v", k)
		}
		if l := params["lambda"]; !(l > 0) {
			return errors.Errorf("weibull: lambda must be > 0, got %v", l)
		}
	default:
		return errors.Errorf("unknown distribution kind %q", kind)
	}
	return nil
}

// NewSampler builds a sampler of the given kind over the given source.
func NewSampler(kind Kind, params map[string]float64, src rand.Source) (*Sampler, error) {
	if err := ValidateParams(kind, params); err != nil {
		return nil, errors.Wrap(err, "bad distribution parameters")
	}
	s := &Sampler{kind: kind}
	switch kind {
	case Exponential:
		if params["lambda"] == 0 {
			return nil, errors.New("exponential: lambda 0 generates no arrivals")
		}
		d := distuv.Exponential{Rate: params["lambda"], Src: src}
		s.dist, s.mean = d, d.Mean()
	case Normal:
		d := distuv.Normal{Mu: params["mu"], Sigma: params["sigma"], Src: src}
		s.dist, s.mean = d, d.Mean()
	case LogNormal:
		d := distuv.LogNormal{Mu: params["mu"], Sigma: params["sigma"], Src: src}
		s.dist, s.mean = d, d.Mean()
	case Gamma:
		// distuv parameterizes gamma by shape and rate
		d := distuv.Gamma{Alpha: params["k"], Beta: 1 / params["theta"], Src: src}
		s.dist, s.mean = d, d.Mean()
	case Weibull:
		d := distuv.Weibull{K: params["k"], Lambda: params["lambda"], Src: src}
		s.dist, s.mean = d, d.Mean()
	}
	return s, nil
}

// Sample draws the next inter-arrival time. Δ < 0 is clamped to 0.
func (s *Sampler) Sample() float64 {
	return math.Max(0, s.dist.Rand())
}

func (s *Sampler) Kind() Kind { return s.kind }

// Mean is the theoretical mean of the distribution.
func (s *Sampler) Mean() float64 { return s.mean }

// Rate is the arrival rate used when weighing origins against each other:
// λ for the exponential, 1/mean otherwise.
func (s *Sampler) Rate() float64 {
	if s.mean <= 0 || math.IsInf(s.mean, 0) {
		return 0
	}
	return 1 / s.mean
}
