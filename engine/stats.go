package engine

import (
	"math"
	"sort"
	"strings"

	"git.fiblab.net/sim/cyclesim/network"
)

// CyclistRecord is the per-cyclist line of Results.
type CyclistRecord struct {
	ID            int       `json:"id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	Profile       int       `json:"profile"`
	Route         []string  `json:"route"`
	EdgeTimes     []float64 `json:"edge_times"`
	TotalDistance float64   `json:"total_distance"`
	TotalTime     float64   `json:"total_time"`
	State         string    `json:"state"`
}

// EdgeRecord is the per-directed-edge line of Results.
type EdgeRecord struct {
	Origin      string              `json:"origin"`
	Destination string              `json:"destination"`
	Usage       int                 `json:"usage"`
	Events      []network.EdgeEvent `json:"events"`
	// mean traversal speed over completed traversals, 0 if none
	AverageSpeed float64 `json:"average_speed"`
}

// RouteUsage counts trips over one exact node sequence.
type RouteUsage struct {
	Route string `json:"route"`
	Count int    `json:"count"`
}

// Aggregates are the exact online trip counters.
type Aggregates struct {
	CompletedTrips int     `json:"completed_trips"`
	AvgTripTime    float64 `json:"avg_trip_time"`
	MinTripTime    float64 `json:"min_trip_time"`
	MaxTripTime    float64 `json:"max_trip_time"`
	AvgSpeed       float64 `json:"avg_speed"`
	MinSpeed       float64 `json:"min_speed"`
	MaxSpeed       float64 `json:"max_speed"`
	TotalDistance  float64 `json:"total_distance"`
}

// Diagnostics is the post-run diagnostic block.
type Diagnostics struct {
	ArrivalsGenerated int `json:"arrivals_generated"`
	CyclistsCreated   int `json:"cyclists_created"`
	// cyclists that drew an unreachable destination
	Discarded int `json:"discarded"`
	// continuations terminated by a bug
	AgentFailures int `json:"agent_failures"`
	PoolReuses    int `json:"pool_reuses"`
}

// Results is the post-run view handed to exporters.
type Results struct {
	Status           string          `json:"status"`
	Now              float64         `json:"now"`
	Cyclists         []CyclistRecord `json:"cyclists"`
	Edges            []EdgeRecord    `json:"edges"`
	Routes           []RouteUsage    `json:"routes"`
	ArrivalsByOrigin map[string]int  `json:"arrivals_by_origin"`
	CyclistsByOrigin map[string]int  `json:"cyclists_by_origin"`
	Aggregates       Aggregates      `json:"aggregates"`
	Diagnostics      Diagnostics     `json:"diagnostics"`
}

// ActiveCyclist is one live agent inside a Snapshot.
type ActiveCyclist struct {
	ID    int      `json:"id"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Color string   `json:"color"`
	Route []string `json:"route"`
}

// Snapshot is the read-only view for rendering.
type Snapshot struct {
	Status        Status          `json:"status"`
	Now           float64         `json:"now"`
	ActiveCount   int             `json:"active_count"`
	Active        []ActiveCyclist `json:"active"`
	EdgeOccupancy map[string]int  `json:"edge_occupancy"`
	Aggregates    Aggregates      `json:"aggregates"`
}

// stats accumulates exact counters online; no sampling.
type stats struct {
	arrivalsByOrigin []int
	cyclistsByOrigin []int
	routeUsage       map[string]int

	// per-edge traversal time sums and counts, for average speed
	edgeTimeSum []float64
	edgeTrips   []int

	trips       int
	tripTimeSum float64
	tripTimeMin float64
	tripTimeMax float64
	speedSum    float64
	speedMin    float64
	speedMax    float64
	distanceSum float64
}

func newStats(numNodes, numEdges int) *stats {
	return &stats{
		arrivalsByOrigin: make([]int, numNodes),
		cyclistsByOrigin: make([]int, numNodes),
		routeUsage:       make(map[string]int),
		edgeTimeSum:      make([]float64, numEdges),
		edgeTrips:        make([]int, numEdges),
		tripTimeMin:      math.Inf(1),
		tripTimeMax:      math.Inf(-1),
		speedMin:         math.Inf(1),
		speedMax:         math.Inf(-1),
	}
}

func (s *stats) recordArrival(origin int) { s.arrivalsByOrigin[origin]++ }

func (s *stats) recordSpawn(origin int, routeKey string) {
	s.cyclistsByOrigin[origin]++
	s.routeUsage[routeKey]++
}

func (s *stats) recordEdgeTraversal(edge int, elapsed float64) {
	s.edgeTimeSum[edge] += elapsed
	s.edgeTrips[edge]++
}

func (s *stats) recordTrip(c *Cyclist) {
	s.trips++
	s.tripTimeSum += c.TotalTime
	s.tripTimeMin = math.Min(s.tripTimeMin, c.TotalTime)
	s.tripTimeMax = math.Max(s.tripTimeMax, c.TotalTime)
	s.distanceSum += c.TotalDistance
	if c.TotalTime > 0 {
		v := c.TotalDistance / c.TotalTime
		s.speedSum += v
		s.speedMin = math.Min(s.speedMin, v)
		s.speedMax = math.Max(s.speedMax, v)
	}
}

func (s *stats) aggregates() Aggregates {
	a := Aggregates{CompletedTrips: s.trips, TotalDistance: s.distanceSum}
	if s.trips > 0 {
		a.AvgTripTime = s.tripTimeSum / float64(s.trips)
		a.MinTripTime = s.tripTimeMin
		a.MaxTripTime = s.tripTimeMax
		a.AvgSpeed = s.speedSum / float64(s.trips)
		a.MinSpeed = s.speedMin
		a.MaxSpeed = s.speedMax
	}
	return a
}

// sortedRoutes returns the route usage counters, most used first, ties in
// route order.
func (s *stats) sortedRoutes() []RouteUsage {
	routes := make([]RouteUsage, 0, len(s.routeUsage))
	for r, c := range s.routeUsage {
		routes = append(routes, RouteUsage{Route: r, Count: c})
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Count != routes[j].Count {
			return routes[i].Count > routes[j].Count
		}
		return routes[i].Route < routes[j].Route
	})
	return routes
}

// routeKey renders a node-index route as "A->B->C" using node ids.
func routeKey(net *network.Network, route []int) string {
	ids := make([]string, len(route))
	for i, n := range route {
		ids[i] = net.Node(n).ID
	}
	return strings.Join(ids, "->")
}
