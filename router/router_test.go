package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.fiblab.net/sim/cyclesim/network"
	"git.fiblab.net/sim/cyclesim/population"
	"git.fiblab.net/sim/cyclesim/router"
)

func buildTriangle(t *testing.T) *network.Network {
	net := network.New()
	require.NoError(t, net.AddNode("A", 0, 0))
	require.NoError(t, net.AddNode("B", 100, 0))
	require.NoError(t, net.AddNode("C", 50, 86.6))
	attrs := map[string]float64{"safety": 9, "lighting": 8}
	for _, pair := range [][2]string{{"A", "B"}, {"B", "A"}, {"A", "C"}, {"C", "A"}, {"B", "C"}, {"C", "B"}} {
		require.NoError(t, net.AddEdge(pair[0], pair[1], 100, attrs))
	}
	require.NoError(t, net.Finalize())
	return net
}

func nodePath(t *testing.T, net *network.Network, ids ...string) []int {
	path := make([]int, len(ids))
	for i, id := range ids {
		n, ok := net.NodeIndex(id)
		require.True(t, ok)
		path[i] = n
	}
	return path
}

func TestRouteDirect(t *testing.T) {
	net := buildTriangle(t)
	r := router.New(net, 0)
	p := population.DefaultProfile()

	a, _ := net.NodeIndex("A")
	b, _ := net.NodeIndex("B")
	path, cost, err := r.Route(p, a, b)
	assert.NoError(t, err)
	assert.Equal(t, nodePath(t, net, "A", "B"), path)
	assert.Greater(t, cost, 0.0)

	// same node is a single-element path
	path, cost, err = r.Route(p, a, a)
	assert.NoError(t, err)
	assert.Equal(t, []int{a}, path)
	assert.Equal(t, 0.0, cost)
}

func TestRouteUnreachable(t *testing.T) {
	net := network.New()
	assert.NoError(t, net.AddNode("A", 0, 0))
	assert.NoError(t, net.AddNode("B", 100, 0))
	assert.NoError(t, net.AddNode("D", 200, 0))
	assert.NoError(t, net.AddEdge("A", "B", 100, nil))
	assert.NoError(t, net.AddEdge("B", "A", 100, nil))
	assert.NoError(t, net.Finalize())

	r := router.New(net, 0)
	a, _ := net.NodeIndex("A")
	d, _ := net.NodeIndex("D")
	path, _, err := r.Route(population.DefaultProfile(), a, d)
	assert.Nil(t, path)
	assert.ErrorIs(t, err, router.ErrNoPath)

	// the negative result is memoized too
	_, _, err = r.Route(population.DefaultProfile(), a, d)
	assert.ErrorIs(t, err, router.ErrNoPath)
	assert.Equal(t, 1, r.CacheLen())
}

// a length-weighted profile takes the short route, a safety-weighted profile
// pays distance for safety
func TestProfilePreference(t *testing.T) {
	net := network.New()
	require.NoError(t, net.AddNode("A", 0, 0))
	require.NoError(t, net.AddNode("B1", 50, 10))
	require.NoError(t, net.AddNode("B2", 50, -10))
	require.NoError(t, net.AddNode("C", 100, 0))
	short := map[string]float64{"safety": 5}
	safe := map[string]float64{"safety": 9}
	require.NoError(t, net.AddEdge("A", "B1", 50, short))
	require.NoError(t, net.AddEdge("B1", "C", 50, short))
	require.NoError(t, net.AddEdge("A", "B2", 100, safe))
	require.NoError(t, net.AddEdge("B2", "C", 100, safe))
	require.NoError(t, net.Finalize())

	r := router.New(net, 0)
	a, _ := net.NodeIndex("A")
	c, _ := net.NodeIndex("C")

	lengthOnly := population.Profile{ID: 1, Weights: map[string]float64{"length": 1}}
	path, _, err := r.Route(lengthOnly, a, c)
	assert.NoError(t, err)
	assert.Equal(t, nodePath(t, net, "A", "B1", "C"), path)

	safetyOnly := population.Profile{ID: 2, Weights: map[string]float64{"safety": 1}}
	path, _, err = r.Route(safetyOnly, a, c)
	assert.NoError(t, err)
	assert.Equal(t, nodePath(t, net, "A", "B2", "C"), path)
}

// a profile whose attributes are absent from the network falls back to
// length-only routing
func TestProfileFallbackToLength(t *testing.T) {
	net := buildTriangle(t)
	r := router.New(net, 0)
	p := population.Profile{ID: 7, Weights: map[string]float64{"scenery": 1}}

	a, _ := net.NodeIndex("A")
	b, _ := net.NodeIndex("B")
	path, _, err := r.Route(p, a, b)
	assert.NoError(t, err)
	assert.Equal(t, nodePath(t, net, "A", "B"), path)
}

// normalization preserves order: costlier raw values never rank cheaper
func TestWeightMonotonicity(t *testing.T) {
	net := network.New()
	require.NoError(t, net.AddNode("A", 0, 0))
	require.NoError(t, net.AddNode("B", 1, 0))
	require.NoError(t, net.AddNode("C", 2, 0))
	require.NoError(t, net.AddNode("D", 3, 0))
	require.NoError(t, net.AddEdge("A", "B", 10, nil))
	require.NoError(t, net.AddEdge("A", "C", 20, nil))
	require.NoError(t, net.AddEdge("A", "D", 30, nil))
	require.NoError(t, net.Finalize())

	r := router.New(net, 0)
	w := r.Weights(population.DefaultProfile())
	ab, _ := net.EdgeIndex(0, 1)
	ac, _ := net.EdgeIndex(0, 2)
	ad, _ := net.EdgeIndex(0, 3)
	assert.Less(t, w[ab], w[ac])
	assert.Less(t, w[ac], w[ad])
	// endpoints of the normalized scale
	assert.InDelta(t, 1.0, w[ab], 1e-12)
	assert.InDelta(t, 10.0, w[ad], 1e-12)
}

// cost ties are broken by lexicographic node id, independent of insertion
// order
func TestTieBreakDeterminism(t *testing.T) {
	for _, order := range [][]string{{"M", "K"}, {"K", "M"}} {
		net := network.New()
		require.NoError(t, net.AddNode("A", 0, 0))
		for _, id := range order {
			require.NoError(t, net.AddNode(id, 50, 0))
		}
		require.NoError(t, net.AddNode("Z", 100, 0))
		for _, id := range order {
			require.NoError(t, net.AddEdge("A", id, 50, nil))
			require.NoError(t, net.AddEdge(id, "Z", 50, nil))
		}
		require.NoError(t, net.Finalize())

		r := router.New(net, 0)
		a, _ := net.NodeIndex("A")
		z, _ := net.NodeIndex("Z")
		path, _, err := r.Route(population.DefaultProfile(), a, z)
		assert.NoError(t, err)
		ids := make([]string, len(path))
		for i, n := range path {
			ids[i] = net.Node(n).ID
		}
		assert.Equal(t, []string{"A", "K", "Z"}, ids)
	}
}

func TestCacheEviction(t *testing.T) {
	net := buildTriangle(t)
	r := router.New(net, 2)
	p := population.DefaultProfile()

	a, _ := net.NodeIndex("A")
	b, _ := net.NodeIndex("B")
	c, _ := net.NodeIndex("C")
	_, _, err := r.Route(p, a, b)
	assert.NoError(t, err)
	_, _, err = r.Route(p, a, c)
	assert.NoError(t, err)
	assert.Equal(t, 2, r.CacheLen())
	_, _, err = r.Route(p, b, c)
	assert.NoError(t, err)
	assert.Equal(t, 2, r.CacheLen())
}
