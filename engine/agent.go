package engine

// agent is the per-cyclist trip continuation, modelled as an explicit state
// machine resumed by the scheduler. One resume completes one suspension
// point: the initial dispatch or one micro-step of the current edge.
type agent struct {
	e *Engine
	c *Cyclist

	started bool

	// current edge traversal
	edge      int
	entryTime float64
	length    float64
	vg        float64
	phi       float64
	from      Position
	to        Position

	// progressed fraction of the edge
	alpha float64
	// plan covering the remaining fraction: K steps of dt, k done
	planStart float64
	k, K      int
	dt        float64
	// next density-recompute boundary (0.25, 0.50, 0.75)
	nextBoundary float64
}

func (a *agent) resume(now float64) {
	if !a.started {
		if a.e.stopped {
			return
		}
		a.started = true
		a.enterEdge(now)
		return
	}

	// one micro-step elapsed
	a.k++
	if a.k >= a.K {
		a.alpha = 1
	} else {
		rem := 1 - a.planStart
		a.alpha = a.planStart + rem*float64(a.k)/float64(a.K)
	}
	a.c.Pos = Position{
		X: a.from.X + a.alpha*(a.to.X-a.from.X),
		Y: a.from.Y + a.alpha*(a.to.Y-a.from.Y),
	}
	a.c.appendTrail(a.c.Pos)

	if a.e.stopped {
		// cooperative cancel: current micro-step is done, release the edge
		// and terminate; the cyclist stays active for reporting
		a.e.occ.Exit(a.edge, a.c.ID, now)
		return
	}

	if a.k >= a.K {
		a.exitEdge(now)
		return
	}

	if a.K < 4 || a.alpha+1e-12 >= a.nextBoundary {
		for a.alpha+1e-12 >= a.nextBoundary {
			a.nextBoundary += 0.25
		}
		a.replan()
	}
	a.e.sched.schedule(a.dt, a)
}

// enterEdge registers the cyclist on its next route edge, computes the
// traversal plan and schedules the first micro-step.
func (a *agent) enterEdge(now float64) {
	e := a.e
	c := a.c
	u, v := c.Route[c.EdgeIdx], c.Route[c.EdgeIdx+1]
	ei, ok := e.net.EdgeIndex(u, v)
	if !ok {
		// the route came from the same network, so this is a logic bug
		log.Panicf("cyclist %d: route edge (%s,%s) not in network",
			c.ID, e.net.Node(u).ID, e.net.Node(v).ID)
	}
	a.edge = ei
	a.entryTime = now
	edge := e.net.Edge(ei)
	a.length = edge.Length

	grade := 0.0
	if id, ok := e.net.Vocab().ID("grade"); ok {
		if g, ok := edge.Attr(id); ok {
			grade = g
		}
	}
	var safety, lighting float64
	var hasSafety, hasLighting bool
	if id, ok := e.net.Vocab().ID("safety"); ok {
		safety, hasSafety = edge.Attr(id)
	}
	if id, ok := e.net.Vocab().ID("lighting"); ok {
		lighting, hasLighting = edge.Attr(id)
	}
	a.vg = gradeAdjustedSpeed(c.V0, grade, e.vMin, e.vMax)
	a.phi = timeFactor(safety, hasSafety, lighting, hasLighting)

	e.occ.Enter(ei, c.ID, now)

	nu, nv := e.net.Node(u), e.net.Node(v)
	a.from = Position{X: nu.X, Y: nu.Y}
	a.to = Position{X: nv.X, Y: nv.Y}
	c.Pos = a.from
	c.appendTrail(c.Pos)

	a.alpha = 0
	a.nextBoundary = 0.25
	a.replan()
	e.sched.schedule(a.dt, a)
}

// replan recomputes the density factor from the current occupancy and
// re-subdivides the remaining fraction of the edge.
func (a *agent) replan() {
	e := a.e
	edge := e.net.Edge(a.edge)
	rho := densityFactor(e.occ.Count(a.edge), edge.Capacity)
	rem := 1 - a.alpha
	tRem := rem * a.length * a.phi / (a.vg * rho)
	a.planStart = a.alpha
	a.K = microSteps(tRem)
	a.dt = tRem / float64(a.K)
	a.k = 0
}

// exitEdge deregisters from the edge, records timing and either advances to
// the next edge or completes the trip.
func (a *agent) exitEdge(now float64) {
	e := a.e
	c := a.c
	e.occ.Exit(a.edge, c.ID, now)
	elapsed := now - a.entryTime
	c.EdgeTimes = append(c.EdgeTimes, elapsed)
	c.TotalDistance += a.length
	e.stats.recordEdgeTraversal(a.edge, elapsed)

	c.EdgeIdx++
	if c.EdgeIdx >= len(c.Route)-1 {
		a.complete(now)
		return
	}
	a.enterEdge(now)
}

func (a *agent) complete(now float64) {
	c := a.c
	c.State = Completed
	c.TotalTime = now - c.StartTime
	c.Pos = sentinelPosition
	a.e.finishCyclist(c, now)
}

// fail is invoked by the scheduler when resume panics: the cyclist is forced
// to completed at its current position and the trip metrics it accumulated
// so far are committed.
func (a *agent) fail(now float64) {
	c := a.c
	if a.started && a.e.occ.Has(a.edge, c.ID) {
		a.e.occ.Exit(a.edge, c.ID, now)
	}
	c.State = Completed
	c.TotalTime = now - c.StartTime
	a.e.finishCyclist(c, now)
}
