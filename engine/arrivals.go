package engine

import (
	"git.fiblab.net/sim/cyclesim/random"
	"git.fiblab.net/sim/cyclesim/router"

	"github.com/pkg/errors"
)

// arrivalGenerator is the perpetual source of new cyclists at one origin
// node. Each resume spawns a cyclist and suspends until the next sampled
// inter-arrival.
type arrivalGenerator struct {
	e       *Engine
	origin  int
	sampler *random.Sampler
	// pending wakeup, cancelled by the termination process
	pending *Handle
}

// start schedules the first arrival.
func (g *arrivalGenerator) start() {
	g.pending = g.e.sched.schedule(g.sampler.Sample(), g)
}

func (g *arrivalGenerator) resume(now float64) {
	g.pending = nil
	if g.e.stopped {
		return
	}
	g.e.spawn(g.origin, now)
	g.pending = g.e.sched.schedule(g.sampler.Sample(), g)
}

// spawn is the decision block: profile, destination, route, base speed, then
// the agent process is scheduled immediately.
func (e *Engine) spawn(origin int, now float64) {
	e.stats.recordArrival(origin)

	profile := e.mix.Draw(e.choiceRand)
	dest, ok := e.od.Draw(origin, e.choiceRand)
	if !ok {
		e.discarded++
		return
	}
	route, _, err := e.rt.Route(profile, origin, dest)
	if err != nil {
		if errors.Is(err, router.ErrNoPath) {
			e.discarded++
			log.Debugf("discarding cyclist at %s: no path to %s",
				e.net.Node(origin).ID, e.net.Node(dest).ID)
			return
		}
		e.discarded++
		log.Warnf("routing failed for %s->%s: %v",
			e.net.Node(origin).ID, e.net.Node(dest).ID, err)
		return
	}
	v0 := e.vMin + e.speedRand.Float64()*(e.vMax-e.vMin)

	c := e.pool.get()
	c.ID = e.nextID
	e.nextID++
	c.ProfileID = profile.ID
	c.Origin = origin
	c.Dest = dest
	c.Route = append(c.Route[:0], route...)
	c.V0 = v0
	c.State = Active
	c.StartTime = now
	c.Color = e.colors[origin]
	c.Pos = sentinelPosition

	e.stats.recordSpawn(origin, routeKey(e.net, route))
	e.active[c.ID] = c
	e.sched.schedule(0, &agent{e: e, c: c})
}

// finishCyclist commits a completed cyclist's record and returns its storage
// to the pool after the retention window.
func (e *Engine) finishCyclist(c *Cyclist, now float64) {
	e.stats.recordTrip(c)
	e.records = append(e.records, e.record(c))
	delete(e.active, c.ID)
	e.pool.put(c, now)
}
