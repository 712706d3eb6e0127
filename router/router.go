// Package router computes per-profile composite edge weights and shortest
// routes over the cycle-path network.
package router

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"git.fiblab.net/sim/cyclesim/network"
	"git.fiblab.net/sim/cyclesim/population"
)

var log = logrus.WithField("module", "router")

// ErrNoPath is returned when no route exists between the chosen pair. The
// caller discards the cyclist and counts a diagnostic.
var ErrNoPath = errors.New("no path between origin and destination")

// DefaultCacheSize bounds the (profile, origin, destination) memo.
const DefaultCacheSize = 4096

// Router memoizes per-profile edge weights and shortest-path results. The
// underlying graph is directed: (u,v) and (v,u) may carry different
// attributes and are weighted independently.
type Router struct {
	net     *network.Network
	weights map[int][]float64 // profile id -> composite edge weights
	cache   *routeCache
}

func New(net *network.Network, cacheSize int) *Router {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Router{
		net:     net,
		weights: make(map[int][]float64),
		cache:   newRouteCache(cacheSize),
	}
}

// Weights returns the composite edge-weight vector for a profile, computing
// and retaining it on first use.
func (r *Router) Weights(p population.Profile) []float64 {
	if w, ok := r.weights[p.ID]; ok {
		return w
	}
	w := edgeWeights(r.net, bindProfile(r.net, p))
	r.weights[p.ID] = w
	log.Debugf("composite weights built for profile %d", p.ID)
	return w
}

// Route returns the shortest node path origin->dest under the profile's
// composite weights, and its cost. Results are memoized per
// (profile, origin, destination) with LRU eviction.
func (r *Router) Route(p population.Profile, origin, dest int) ([]int, float64, error) {
	key := routeKey{profile: p.ID, origin: origin, dest: dest}
	if path, cost, ok := r.cache.get(key); ok {
		if path == nil {
			return nil, cost, ErrNoPath
		}
		return path, cost, nil
	}
	path, cost := dijkstra(r.net, r.Weights(p), origin, dest)
	r.cache.put(key, path, cost)
	if path == nil {
		return nil, math.Inf(0), ErrNoPath
	}
	return path, cost, nil
}

// CacheLen reports the number of memoized routes.
func (r *Router) CacheLen() int { return r.cache.len() }
