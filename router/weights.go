package router

import (
	"math"
	"sort"

	"git.fiblab.net/sim/cyclesim/network"
	"git.fiblab.net/sim/cyclesim/population"
)

const (
	// normalized attribute scale
	normLow  = 1.0
	normHigh = 10.0
	// value used when an attribute has no spread across the network
	normFlat = 5.5
	// floor for non-positive composite weights
	weightEpsilon = 1e-9
)

// attrBinding is one attribute that participates in routing for a profile:
// its vocabulary id, its profile weight and its resolved preference
// direction.
type attrBinding struct {
	id        int
	weight    float64
	direction population.Direction
	// normalization range; for descending attributes this is the magnitude
	// range so that signed grades are compared by steepness
	min, max float64
}

// bindProfile intersects the profile's weighted attributes with the
// network's attribute set. An empty intersection falls back to length-only.
func bindProfile(net *network.Network, p population.Profile) []attrBinding {
	names := make([]string, 0, len(p.Weights))
	for name := range p.Weights {
		names = append(names, name)
	}
	sort.Strings(names)

	bindings := make([]attrBinding, 0, len(names))
	for _, name := range names {
		id, ok := net.Vocab().ID(name)
		if !ok {
			continue
		}
		bindings = append(bindings, newBinding(net, id, p.Weights[name], p.Direction(name)))
	}
	if len(bindings) == 0 {
		id, _ := net.Vocab().ID(network.AttrLength)
		bindings = append(bindings, newBinding(net, id, 1, population.Descending))
	}
	return bindings
}

func newBinding(net *network.Network, id int, weight float64, dir population.Direction) attrBinding {
	r := net.AttrRange(id)
	b := attrBinding{id: id, weight: weight, direction: dir, min: r.Min, max: r.Max}
	if dir == population.Descending {
		// signed attributes (grade) are ranked by magnitude
		b.min, b.max = magnitudeRange(r)
	}
	return b
}

func magnitudeRange(r network.Range) (float64, float64) {
	if r.Min <= 0 && r.Max >= 0 {
		return 0, math.Max(math.Abs(r.Min), math.Abs(r.Max))
	}
	lo, hi := math.Abs(r.Min), math.Abs(r.Max)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// normalize maps a raw attribute value onto [normLow, normHigh] as a cost
// contribution: it grows with length or grade magnitude and shrinks as
// safety or lighting rise, so that the route search minimizes the composite.
func (b attrBinding) normalize(raw float64) float64 {
	v := raw
	if b.direction == population.Descending {
		v = math.Abs(v)
	}
	var n float64
	if b.max > b.min {
		n = normLow + (normHigh-normLow)*(v-b.min)/(b.max-b.min)
	} else {
		n = normFlat
	}
	if b.direction == population.Ascending {
		n = normLow + normHigh - n
	}
	return n
}

// edgeWeights computes the composite routing weight of every directed edge
// for one profile. Non-positive results are clamped to a small epsilon.
func edgeWeights(net *network.Network, bindings []attrBinding) []float64 {
	weights := make([]float64, net.NumEdges())
	for i := range weights {
		e := net.Edge(i)
		w := 0.0
		for _, b := range bindings {
			raw, ok := e.Attr(b.id)
			if !ok {
				continue
			}
			w += b.weight * b.normalize(raw)
		}
		if w <= 0 {
			w = weightEpsilon
		}
		weights[i] = w
	}
	return weights
}
