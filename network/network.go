package network

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "network")

const (
	// per-bike footprint used to derive congestion-free capacity
	BikeFootprint = 2.5

	// the length attribute is present on every edge; it takes part in routing
	// when a profile weights it, or as the fallback when no weighted
	// attribute of the profile exists in the network
	AttrLength = "length"
	AttrGrade  = "grade"
)

// Node is an immutable vertex of the cycle-path network.
type Node struct {
	ID string
	X  float64
	Y  float64
}

// Vocabulary canonicalizes attribute names to small dense ids so that edges
// and profiles can store parallel arrays instead of per-lookup string maps.
type Vocabulary struct {
	names []string
	index map[string]int
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{index: make(map[string]int)}
}

// Intern returns the id for name, assigning a new one on first sight.
func (v *Vocabulary) Intern(name string) int {
	if id, ok := v.index[name]; ok {
		return id
	}
	id := len(v.names)
	v.names = append(v.names, name)
	v.index[name] = id
	return id
}

func (v *Vocabulary) ID(name string) (int, bool) {
	id, ok := v.index[name]
	return id, ok
}

func (v *Vocabulary) Name(id int) string { return v.names[id] }
func (v *Vocabulary) Len() int           { return len(v.names) }

// Range is the precomputed (min, max) of one attribute across all edges.
type Range struct {
	Min float64
	Max float64
}

// Edge is one direction of a cycle-path segment. (u,v) and (v,u) are distinct
// edges with independent attributes, capacity and occupancy.
type Edge struct {
	From   int
	To     int
	Length float64
	// congestion-free bike count, floor(length / BikeFootprint)
	Capacity int

	values  []float64
	present []bool
}

// Attr returns the value of the attribute with the given vocabulary id.
func (e *Edge) Attr(id int) (float64, bool) {
	if id < 0 || id >= len(e.present) || !e.present[id] {
		return 0, false
	}
	return e.values[id], true
}

// Network is the directed cycle-path graph. It is built once at scenario load
// and read-only for the lifetime of a run.
type Network struct {
	nodes     []Node
	nodeIndex map[string]int
	// position of each node in lexicographic id order, used by the router
	// as a deterministic tie-break
	lexRank []int

	edges  []*Edge
	lookup map[[2]int]int
	out    [][]int

	vocab  *Vocabulary
	ranges []Range
}

func New() *Network {
	return &Network{
		nodeIndex: make(map[string]int),
		lookup:    make(map[[2]int]int),
		vocab:     NewVocabulary(),
	}
}

// AddNode registers a node. Ids must be unique and non-empty.
func (n *Network) AddNode(id string, x, y float64) error {
	if id == "" {
		return errors.New("empty node id")
	}
	if _, ok := n.nodeIndex[id]; ok {
		return errors.Errorf("duplicate node id %s", id)
	}
	if !isFinite(x) || !isFinite(y) {
		return errors.Errorf("node %s has non-finite position", id)
	}
	n.nodeIndex[id] = len(n.nodes)
	n.nodes = append(n.nodes, Node{ID: id, X: x, Y: y})
	return nil
}

// AddEdge registers the directed edge from->to. The length attribute is
// interned alongside the extra attributes so that the router can normalize it
// like any other.
func (n *Network) AddEdge(from, to string, length float64, attrs map[string]float64) error {
	u, ok := n.nodeIndex[from]
	if !ok {
		return errors.Errorf("edge references unknown node %s", from)
	}
	v, ok := n.nodeIndex[to]
	if !ok {
		return errors.Errorf("edge references unknown node %s", to)
	}
	if !(length > 0) || !isFinite(length) {
		return errors.Errorf("edge (%s,%s) has invalid length %v", from, to, length)
	}
	if _, ok := n.lookup[[2]int{u, v}]; ok {
		return errors.Errorf("duplicate edge (%s,%s)", from, to)
	}
	e := &Edge{
		From:     u,
		To:       v,
		Length:   length,
		Capacity: int(math.Floor(length / BikeFootprint)),
	}
	n.setAttr(e, AttrLength, length)
	for name, value := range attrs {
		if !isFinite(value) {
			return errors.Errorf("edge (%s,%s) attribute %s is non-finite", from, to, name)
		}
		if name == AttrLength {
			continue
		}
		n.setAttr(e, name, value)
	}
	n.lookup[[2]int{u, v}] = len(n.edges)
	n.edges = append(n.edges, e)
	return nil
}

func (n *Network) setAttr(e *Edge, name string, value float64) {
	id := n.vocab.Intern(name)
	for len(e.values) <= id {
		e.values = append(e.values, 0)
		e.present = append(e.present, false)
	}
	e.values[id] = value
	e.present[id] = true
}

// Finalize precomputes the attribute ranges, the adjacency lists and the
// lexicographic node ranks. Must be called once after the last Add call.
func (n *Network) Finalize() error {
	if len(n.nodes) < 2 {
		return errors.New("network needs at least 2 nodes")
	}
	if len(n.edges) == 0 {
		return errors.New("network has no edges")
	}

	// pad attribute arrays to the final vocabulary size
	for _, e := range n.edges {
		for len(e.values) < n.vocab.Len() {
			e.values = append(e.values, 0)
			e.present = append(e.present, false)
		}
	}

	n.ranges = make([]Range, n.vocab.Len())
	for id := range n.ranges {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, e := range n.edges {
			if v, ok := e.Attr(id); ok {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
		n.ranges[id] = Range{Min: lo, Max: hi}
	}

	n.out = make([][]int, len(n.nodes))
	for i, e := range n.edges {
		n.out[e.From] = append(n.out[e.From], i)
	}

	ids := make([]string, len(n.nodes))
	for i, node := range n.nodes {
		ids[i] = node.ID
	}
	sort.Strings(ids)
	rank := make(map[string]int, len(ids))
	for r, id := range ids {
		rank[id] = r
	}
	n.lexRank = make([]int, len(n.nodes))
	for i, node := range n.nodes {
		n.lexRank[i] = rank[node.ID]
	}

	log.Debugf("network finalized: %d nodes, %d edges, %d attributes",
		len(n.nodes), len(n.edges), n.vocab.Len())
	return nil
}

func (n *Network) NumNodes() int { return len(n.nodes) }
func (n *Network) NumEdges() int { return len(n.edges) }

func (n *Network) Node(i int) Node { return n.nodes[i] }

func (n *Network) NodeIndex(id string) (int, bool) {
	i, ok := n.nodeIndex[id]
	return i, ok
}

// LexRank returns the position of node i in lexicographic id order.
func (n *Network) LexRank(i int) int { return n.lexRank[i] }

func (n *Network) Edge(i int) *Edge { return n.edges[i] }

func (n *Network) EdgeIndex(u, v int) (int, bool) {
	i, ok := n.lookup[[2]int{u, v}]
	return i, ok
}

// OutEdges returns the edge indices leaving node u, in insertion order.
func (n *Network) OutEdges(u int) []int { return n.out[u] }

func (n *Network) Vocab() *Vocabulary { return n.vocab }

// AttrRange returns the precomputed range of the attribute with the given
// vocabulary id.
func (n *Network) AttrRange(id int) Range { return n.ranges[id] }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
