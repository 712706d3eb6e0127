package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrailRingDecimation(t *testing.T) {
	c := &Cyclist{}
	for i := 0; i < TrailCap; i++ {
		c.appendTrail(Position{X: float64(i)})
	}
	assert.Len(t, c.Trail, TrailCap)

	// the next append halves the ring first
	c.appendTrail(Position{X: 999})
	assert.Len(t, c.Trail, TrailCap/2+1)
	assert.Equal(t, 0.0, c.Trail[0].X)
	assert.Equal(t, 2.0, c.Trail[1].X)
	assert.Equal(t, 999.0, c.Trail[len(c.Trail)-1].X)
}

func TestPoolReuseAfterRetention(t *testing.T) {
	p := newPool(30)
	a := p.get()
	a.ID = 1
	a.EdgeTimes = append(a.EdgeTimes, 5)
	p.put(a, 100)

	// still retained
	p.reclaim(120)
	b := p.get()
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, p.created)

	// window elapsed, storage comes back reset
	p.reclaim(130)
	c := p.get()
	assert.Same(t, a, c)
	assert.Equal(t, 1, p.reused)
	assert.Equal(t, 0, c.ID)
	assert.Empty(t, c.EdgeTimes)
	assert.Equal(t, sentinelPosition, c.Pos)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "completed", Completed.String())
}
