// Package engine is the discrete-event simulation core: the event-time
// scheduler, the arrival generators, the per-cyclist agent processes and the
// statistics accumulator, behind a single in-process control surface.
package engine

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"

	"git.fiblab.net/sim/cyclesim/network"
	"git.fiblab.net/sim/cyclesim/population"
	"git.fiblab.net/sim/cyclesim/random"
	"git.fiblab.net/sim/cyclesim/router"
	"git.fiblab.net/sim/cyclesim/scenario"
)

var log = logrus.WithField("module", "engine")

// Status of the simulation run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// how long a completed cyclist's storage is retained before pool reuse
const poolRetentionSeconds = 30.0

// palette assigned to origin nodes, cycled by node index
var nodePalette = []string{
	"#CC0000", "#006666", "#003366", "#006600", "#CC6600",
	"#660066", "#006633", "#CC9900", "#663399", "#003399",
	"#CC3300", "#009900", "#990000", "#4B0082", "#2F4F2F",
	"#8B4513", "#800080", "#191970", "#2E8B57", "#8B0000",
}

// Engine owns all run state. The simulation itself is single-threaded
// cooperative; the RBMutex only guards the control surface against a
// concurrent rendering reader.
type Engine struct {
	mu *xsync.RBMutex

	net *network.Network
	occ *network.Occupancy
	rt  *router.Router
	mix *population.Mix
	od  *population.ODMatrix

	sched      *scheduler
	generators []*arrivalGenerator

	choiceRand *rand.Rand
	speedRand  *rand.Rand

	vMin, vMax float64
	tSim       float64

	stopped   bool
	status    Status
	nextID    int
	active    map[int]*Cyclist
	pool      *pool
	records   []CyclistRecord
	stats     *stats
	colors    []string
	discarded int
}

func New() *Engine {
	return &Engine{mu: xsync.NewRBMutex(), status: StatusIdle}
}

// Reset validates the scenario and rebuilds all derived state: network,
// ranges, router, population model, substreams, arrival generators and the
// termination process. On error the previous state is kept and the status is
// failed; no partial state is installed.
func (e *Engine) Reset(sc *scenario.Scenario, seed uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.build(sc, seed); err != nil {
		e.status = StatusFailed
		return err
	}
	e.status = StatusIdle
	log.Infof("scenario loaded: %d nodes, %d edges, %d profiles, t_sim=%v, seed=%d",
		e.net.NumNodes(), e.net.NumEdges(), len(e.mix.Profiles()), e.tSim, seed)
	return nil
}

func (e *Engine) build(sc *scenario.Scenario, seed uint64) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	net := network.New()
	for _, n := range sc.Nodes {
		if err := net.AddNode(n.ID, n.X, n.Y); err != nil {
			return errors.Wrap(err, "build network")
		}
	}
	for _, edge := range sc.Edges {
		if err := net.AddEdge(edge.Origin, edge.Destination, edge.Length, edge.Attrs); err != nil {
			return errors.Wrap(err, "build network")
		}
	}
	if err := net.Finalize(); err != nil {
		return errors.Wrap(err, "build network")
	}

	profiles := lo.Map(sc.Profiles, func(p scenario.Profile, _ int) population.Profile {
		dirs := make(map[string]population.Direction, len(p.Directions))
		for attr, d := range p.Directions {
			if d == "desc" {
				dirs[attr] = population.Descending
			} else {
				dirs[attr] = population.Ascending
			}
		}
		return population.Profile{
			ID:          p.ID,
			Probability: p.Probability,
			Weights:     p.Weights,
			Directions:  dirs,
		}
	})
	mix, err := population.NewMix(profiles)
	if err != nil {
		return errors.Wrap(err, "build profile mix")
	}

	od := population.Uniform(net.NumNodes())
	if len(sc.OD) > 0 {
		rows := make(map[int]map[int]float64, len(sc.OD))
		for origin, row := range sc.OD {
			oi, _ := net.NodeIndex(origin)
			dense := make(map[int]float64, len(row))
			for dest, mass := range row {
				di, _ := net.NodeIndex(dest)
				dense[di] = mass
			}
			rows[oi] = dense
		}
		od, err = population.NewODMatrix(net.NumNodes(), rows)
		if err != nil {
			return errors.Wrap(err, "build od matrix")
		}
	}

	streams := random.NewStreams(seed)
	sched := newScheduler()

	// one generator per origin, built in node-index order for determinism
	generators := make([]*arrivalGenerator, 0, net.NumNodes())
	for i := 0; i < net.NumNodes(); i++ {
		id := net.Node(i).ID
		dist, ok := sc.Distributions[id]
		if !ok {
			dist = scenario.Distribution{
				Kind:   random.Exponential,
				Params: map[string]float64{"lambda": random.DefaultLambda},
			}
		}
		if dist.Kind == random.Exponential && dist.Params["lambda"] == 0 {
			// silent origin
			continue
		}
		sampler, err := random.NewSampler(dist.Kind, dist.Params, streams.Source("arrivals", id))
		if err != nil {
			return errors.Wrapf(err, "distribution for node %s", id)
		}
		generators = append(generators, &arrivalGenerator{origin: i, sampler: sampler})
	}

	colors := make([]string, net.NumNodes())
	for i := range colors {
		colors[i] = nodePalette[i%len(nodePalette)]
	}

	// install
	e.net = net
	e.occ = network.NewOccupancy(net.NumEdges())
	e.rt = router.New(net, router.DefaultCacheSize)
	e.mix = mix
	e.od = od
	e.sched = sched
	e.generators = generators
	e.choiceRand = streams.Rand("choice")
	e.speedRand = streams.Rand("speed")
	e.vMin = sc.Kinematics.VMin
	e.vMax = sc.Kinematics.VMax
	e.tSim = sc.Kinematics.TSim
	e.stopped = false
	e.nextID = 0
	e.active = make(map[int]*Cyclist)
	e.pool = newPool(poolRetentionSeconds)
	e.records = nil
	e.stats = newStats(net.NumNodes(), net.NumEdges())
	e.colors = colors
	e.discarded = 0

	for _, g := range e.generators {
		g.e = e
		g.start()
	}
	e.sched.schedule(e.tSim, &terminator{e: e})
	return nil
}

// terminator raises the stop flag at T_sim and cancels the pending arrival
// wakeups; live agents drain cooperatively.
type terminator struct {
	e *Engine
}

func (t *terminator) resume(now float64) {
	e := t.e
	e.stopped = true
	for _, g := range e.generators {
		if g.pending != nil {
			e.sched.cancel(g.pending)
			g.pending = nil
		}
	}
	log.Infof("simulated horizon reached at t=%v, draining %d agents", now, len(e.active))
}

// Step dispatches one event and returns the clock and the number of active
// cyclists. A paused or unconfigured engine does not advance.
func (e *Engine) Step() (float64, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched == nil || e.status == StatusPaused || e.status == StatusCompleted || e.status == StatusFailed {
		return e.now(), len(e.active)
	}
	e.status = StatusRunning
	if !e.sched.step() {
		e.status = StatusCompleted
	} else {
		e.pool.reclaim(e.sched.now)
		if e.sched.empty() {
			e.status = StatusCompleted
		}
	}
	return e.sched.now, len(e.active)
}

// RunUntil dispatches events until the clock reaches t or the queue is
// empty. Returns the clock.
func (e *Engine) RunUntil(t float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched == nil || e.status == StatusPaused || e.status == StatusCompleted || e.status == StatusFailed {
		return e.now()
	}
	e.status = StatusRunning
	e.sched.runUntil(t)
	e.pool.reclaim(e.sched.now)
	if e.sched.empty() {
		e.status = StatusCompleted
	}
	return e.sched.now
}

// Run executes the whole horizon and drains the in-flight agents, declaring
// the run completed.
func (e *Engine) Run() float64 {
	e.RunUntil(e.tSim)
	// drain: the termination event and at most one micro-step per agent
	for {
		e.mu.Lock()
		if e.sched == nil || e.sched.empty() || e.status == StatusPaused || e.status == StatusFailed {
			if e.sched != nil && e.sched.empty() && e.status != StatusFailed {
				e.status = StatusCompleted
			}
			now := e.now()
			e.mu.Unlock()
			return now
		}
		e.sched.step()
		e.mu.Unlock()
	}
}

// Stop raises the cooperative stop flag: generators stop producing and each
// agent terminates after its current micro-step.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched == nil {
		return
	}
	e.stopped = true
	for _, g := range e.generators {
		if g.pending != nil {
			e.sched.cancel(g.pending)
			g.pending = nil
		}
	}
}

// Pause freezes dispatch until Resume.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		e.status = StatusPaused
	}
}

func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusPaused {
		e.status = StatusRunning
	}
}

func (e *Engine) now() float64 {
	if e.sched == nil {
		return 0
	}
	return e.sched.now
}

// Snapshot returns the read-only view for rendering: clock, live cyclists,
// per-edge occupancy and the aggregate counters.
func (e *Engine) Snapshot() Snapshot {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)

	snap := Snapshot{Status: e.status, Now: e.now()}
	if e.net == nil {
		return snap
	}
	snap.ActiveCount = len(e.active)
	ids := lo.Keys(e.active)
	sort.Ints(ids)
	snap.Active = make([]ActiveCyclist, 0, len(ids))
	for _, id := range ids {
		c := e.active[id]
		snap.Active = append(snap.Active, ActiveCyclist{
			ID:    c.ID,
			X:     c.Pos.X,
			Y:     c.Pos.Y,
			Color: c.Color,
			Route: e.routeIDs(c.Route),
		})
	}
	snap.EdgeOccupancy = make(map[string]int, e.net.NumEdges())
	for i := 0; i < e.net.NumEdges(); i++ {
		edge := e.net.Edge(i)
		key := e.net.Node(edge.From).ID + "->" + e.net.Node(edge.To).ID
		snap.EdgeOccupancy[key] = e.occ.Count(i)
	}
	snap.Aggregates = e.stats.aggregates()
	return snap
}

// Results returns the post-run arrays: per-cyclist records (completed plus
// in-flight at stop time), per-edge records, route usage and diagnostics.
func (e *Engine) Results() Results {
	t := e.mu.RLock()
	defer e.mu.RUnlock(t)

	res := Results{Status: string(e.status), Now: e.now()}
	if e.net == nil {
		return res
	}

	res.Cyclists = append(res.Cyclists, e.records...)
	ids := lo.Keys(e.active)
	sort.Ints(ids)
	for _, id := range ids {
		res.Cyclists = append(res.Cyclists, e.record(e.active[id]))
	}
	sort.Slice(res.Cyclists, func(i, j int) bool {
		return res.Cyclists[i].ID < res.Cyclists[j].ID
	})

	res.Edges = make([]EdgeRecord, e.net.NumEdges())
	for i := 0; i < e.net.NumEdges(); i++ {
		edge := e.net.Edge(i)
		rec := EdgeRecord{
			Origin:      e.net.Node(edge.From).ID,
			Destination: e.net.Node(edge.To).ID,
			Usage:       e.occ.Entries(i),
			Events:      e.occ.Events(i),
		}
		if trips := e.stats.edgeTrips[i]; trips > 0 {
			rec.AverageSpeed = edge.Length * float64(trips) / e.stats.edgeTimeSum[i]
		}
		res.Edges[i] = rec
	}

	res.Routes = e.stats.sortedRoutes()
	res.ArrivalsByOrigin = e.originCounts(e.stats.arrivalsByOrigin)
	res.CyclistsByOrigin = e.originCounts(e.stats.cyclistsByOrigin)
	res.Aggregates = e.stats.aggregates()
	res.Diagnostics = Diagnostics{
		ArrivalsGenerated: lo.Sum(e.stats.arrivalsByOrigin),
		CyclistsCreated:   e.nextID,
		Discarded:         e.discarded,
		AgentFailures:     e.sched.failures,
		PoolReuses:        e.pool.reused,
	}
	return res
}

func (e *Engine) originCounts(counts []int) map[string]int {
	out := make(map[string]int, len(counts))
	for i, n := range counts {
		if n > 0 {
			out[e.net.Node(i).ID] = n
		}
	}
	return out
}

func (e *Engine) routeIDs(route []int) []string {
	return lo.Map(route, func(n int, _ int) string { return e.net.Node(n).ID })
}

func (e *Engine) record(c *Cyclist) CyclistRecord {
	return CyclistRecord{
		ID:            c.ID,
		Origin:        e.net.Node(c.Origin).ID,
		Destination:   e.net.Node(c.Dest).ID,
		Profile:       c.ProfileID,
		Route:         e.routeIDs(c.Route),
		EdgeTimes:     append([]float64(nil), c.EdgeTimes...),
		TotalDistance: c.TotalDistance,
		TotalTime:     c.TotalTime,
		State:         c.State.String(),
	}
}
