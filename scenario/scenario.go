// Package scenario defines the logical record shapes consumed by the
// simulation core. It is loader-agnostic: whatever produced the records
// (spreadsheet import, generated fixtures), the core only sees these shapes.
package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"

	"git.fiblab.net/sim/cyclesim/random"
)

// Node is one vertex with a fixed 2-D position.
type Node struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Edge is one directed segment record. Bidirectional paths appear as two
// independent records.
type Edge struct {
	Origin      string             `json:"origin"`
	Destination string             `json:"destination"`
	Length      float64            `json:"length"`
	Attrs       map[string]float64 `json:"attrs"`
}

// Profile is one cyclist type with its mix probability and per-attribute
// routing importances. Directions optionally overrides the preference
// direction per attribute: "asc" means higher is better, "desc" means
// smaller is better.
type Profile struct {
	ID          int                `json:"id"`
	Probability float64            `json:"probability"`
	Weights     map[string]float64 `json:"weights"`
	Directions  map[string]string  `json:"directions,omitempty"`
}

// Distribution configures the inter-arrival process of one origin.
type Distribution struct {
	Kind   random.Kind        `json:"kind"`
	Params map[string]float64 `json:"params"`
}

// Kinematics carries the global run parameters.
type Kinematics struct {
	VMin float64 `json:"v_min"`
	VMax float64 `json:"v_max"`
	TSim float64 `json:"t_sim"`
	Seed uint64  `json:"seed"`
}

// Scenario is the full input of one run.
type Scenario struct {
	Nodes         []Node                        `json:"nodes"`
	Edges         []Edge                        `json:"edges"`
	Profiles      []Profile                     `json:"profiles,omitempty"`
	OD            map[string]map[string]float64 `json:"od,omitempty"`
	Distributions map[string]Distribution       `json:"distributions,omitempty"`
	Kinematics    Kinematics                    `json:"kinematics"`
}

// ValidationError is the typed error Reset fails fast with. No partial state
// is kept on the engine when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scenario: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Load decodes a scenario from JSON.
func Load(r io.Reader) (*Scenario, error) {
	var sc Scenario
	if err := json.NewDecoder(r).Decode(&sc); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	return &sc, nil
}

// Validate checks the record shapes. It does
// not build derived state; that is Reset's job.
func (sc *Scenario) Validate() error {
	if len(sc.Nodes) < 2 {
		return invalid("nodes", "need at least 2 nodes, got %d", len(sc.Nodes))
	}
	nodeSet := make(map[string]bool, len(sc.Nodes))
	for _, n := range sc.Nodes {
		if n.ID == "" {
			return invalid("nodes", "empty node id")
		}
		if nodeSet[n.ID] {
			return invalid("nodes", "duplicate node id %s", n.ID)
		}
		if !finite(n.X) || !finite(n.Y) {
			return invalid("nodes", "node %s has non-finite position", n.ID)
		}
		nodeSet[n.ID] = true
	}

	if len(sc.Edges) == 0 {
		return invalid("edges", "no edges")
	}
	for _, e := range sc.Edges {
		if !nodeSet[e.Origin] {
			return invalid("edges", "edge references unknown node %s", e.Origin)
		}
		if !nodeSet[e.Destination] {
			return invalid("edges", "edge references unknown node %s", e.Destination)
		}
		if !(e.Length > 0) || !finite(e.Length) {
			return invalid("edges", "edge (%s,%s) length %v must be positive", e.Origin, e.Destination, e.Length)
		}
		for name, v := range e.Attrs {
			if !finite(v) {
				return invalid("edges", "edge (%s,%s) attribute %s is non-finite", e.Origin, e.Destination, name)
			}
		}
	}

	for _, p := range sc.Profiles {
		if math.IsNaN(p.Probability) || p.Probability < 0 || p.Probability > 1 {
			return invalid("profiles", "profile %d probability %v not in [0,1]", p.ID, p.Probability)
		}
		for attr, w := range p.Weights {
			if !finite(w) {
				return invalid("profiles", "profile %d weight for %s is non-finite", p.ID, attr)
			}
		}
		for attr, d := range p.Directions {
			if d != "asc" && d != "desc" {
				return invalid("profiles", "profile %d direction for %s must be asc or desc, got %q", p.ID, attr, d)
			}
		}
	}

	for origin, row := range sc.OD {
		if !nodeSet[origin] {
			return invalid("od", "row references unknown node %s", origin)
		}
		for dest, mass := range row {
			if !nodeSet[dest] {
				return invalid("od", "row %s references unknown destination %s", origin, dest)
			}
			if !finite(mass) || mass < 0 {
				return invalid("od", "row %s has invalid mass %v for %s", origin, mass, dest)
			}
		}
	}

	for nodeID, d := range sc.Distributions {
		if !nodeSet[nodeID] {
			return invalid("distributions", "unknown node %s", nodeID)
		}
		if err := random.ValidateParams(d.Kind, d.Params); err != nil {
			return invalid("distributions", "node %s: %v", nodeID, err)
		}
	}

	k := sc.Kinematics
	if !(k.VMin > 0) || !(k.VMax >= k.VMin) {
		return invalid("kinematics", "need 0 < v_min <= v_max, got [%v, %v]", k.VMin, k.VMax)
	}
	if !(k.TSim > 0) {
		return invalid("kinematics", "t_sim %v must be positive", k.TSim)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
