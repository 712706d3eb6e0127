package population

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"git.fiblab.net/sim/cyclesim/network"
)

var log = logrus.WithField("module", "population")

// Direction expresses whether higher attribute values make an edge more or
// less attractive for routing.
type Direction int

const (
	// higher is better (safety, lighting)
	Ascending Direction = iota
	// smaller is better (length, grade magnitude)
	Descending
)

// DefaultDirection returns the conventional preference direction for an
// attribute when the profile does not override it.
func DefaultDirection(attr string) Direction {
	switch attr {
	case network.AttrLength, network.AttrGrade:
		return Descending
	default:
		return Ascending
	}
}

// Profile is a parameterized cyclist type: a selection probability plus
// per-attribute routing importances.
type Profile struct {
	ID          int
	Probability float64
	Weights     map[string]float64
	// optional per-attribute preference overrides; attributes not listed
	// fall back to DefaultDirection
	Directions map[string]Direction
}

// Direction resolves the preference direction of attr for this profile.
func (p Profile) Direction(attr string) Direction {
	if d, ok := p.Directions[attr]; ok {
		return d
	}
	return DefaultDirection(attr)
}

// DefaultProfile is the length-only fallback used when no profiles are
// configured.
func DefaultProfile() Profile {
	return Profile{ID: 0, Probability: 1, Weights: map[string]float64{network.AttrLength: 1}}
}

// probability mixes are accepted when their raw sum is this close to 1
const mixTolerance = 1e-2

// Mix is a normalized categorical distribution over profiles.
type Mix struct {
	profiles []Profile
	cum      []float64
}

// NewMix validates and normalizes the profile probabilities. The raw sum
// must be within tolerance of 1.
func NewMix(profiles []Profile) (*Mix, error) {
	if len(profiles) == 0 {
		return &Mix{profiles: []Profile{DefaultProfile()}, cum: []float64{1}}, nil
	}
	sum := 0.0
	for _, p := range profiles {
		if math.IsNaN(p.Probability) || p.Probability < 0 || p.Probability > 1 {
			return nil, errors.Errorf("profile %d: probability %v not in [0,1]", p.ID, p.Probability)
		}
		sum += p.Probability
	}
	if math.Abs(sum-1) > mixTolerance {
		return nil, errors.Errorf("profile probabilities sum to %v, beyond tolerance", sum)
	}
	m := &Mix{profiles: profiles, cum: make([]float64, len(profiles))}
	acc := 0.0
	for i, p := range profiles {
		acc += p.Probability / sum
		m.cum[i] = acc
	}
	m.cum[len(m.cum)-1] = 1
	return m, nil
}

// Draw picks a profile according to the mix weights.
func (m *Mix) Draw(r *rand.Rand) Profile {
	u := r.Float64()
	for i, c := range m.cum {
		if u < c {
			return m.profiles[i]
		}
	}
	return m.profiles[len(m.profiles)-1]
}

// Profiles returns the normalized profile set.
func (m *Mix) Profiles() []Profile { return m.profiles }

// ODMatrix holds, per origin node, a probability mass over destinations.
// Rows are normalized to 1 and the diagonal is forced to 0 at build time.
type ODMatrix struct {
	numNodes int
	rows     map[int][]float64 // origin node index -> cumulative mass
}

// NewODMatrix builds the matrix from per-origin destination masses keyed by
// node index. Rows whose sums deviate from 1 are renormalized with a warning;
// negative or non-finite masses are rejected.
func NewODMatrix(numNodes int, rows map[int]map[int]float64) (*ODMatrix, error) {
	od := &ODMatrix{numNodes: numNodes, rows: make(map[int][]float64, len(rows))}
	for origin, masses := range rows {
		dense := make([]float64, numNodes)
		sum := 0.0
		for dest, mass := range masses {
			if math.IsNaN(mass) || math.IsInf(mass, 0) || mass < 0 {
				return nil, errors.Errorf("od row %d: invalid mass %v for destination %d", origin, mass, dest)
			}
			if dest == origin {
				// diagonal forced to zero
				continue
			}
			dense[dest] = mass
			sum += mass
		}
		if sum <= 0 {
			return nil, errors.Errorf("od row %d has no positive mass off the diagonal", origin)
		}
		if math.Abs(sum-1) > 1e-6 {
			log.Warnf("od row %d sums to %v, renormalizing", origin, sum)
		}
		cum := make([]float64, numNodes)
		acc := 0.0
		for i := range dense {
			acc += dense[i] / sum
			cum[i] = acc
		}
		cum[numNodes-1] = 1
		od.rows[origin] = cum
	}
	return od, nil
}

// Draw picks a destination for the given origin. Origins without a configured
// row fall back to a uniform draw over the other nodes. The second return is
// false only when no destination exists at all.
func (od *ODMatrix) Draw(origin int, r *rand.Rand) (int, bool) {
	if od != nil {
		if cum, ok := od.rows[origin]; ok {
			u := r.Float64()
			for i, c := range cum {
				if u < c {
					return i, true
				}
			}
			return len(cum) - 1, true
		}
	}
	n := od.uniformN()
	if n < 2 {
		return 0, false
	}
	d := r.Intn(n - 1)
	if d >= origin {
		d++
	}
	return d, true
}

func (od *ODMatrix) uniformN() int {
	if od == nil {
		return 0
	}
	return od.numNodes
}

// Uniform builds a matrix with no configured rows, so that every draw falls
// back to the uniform choice.
func Uniform(numNodes int) *ODMatrix {
	return &ODMatrix{numNodes: numNodes, rows: map[int][]float64{}}
}
