package population_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.fiblab.net/sim/cyclesim/population"
	"git.fiblab.net/sim/cyclesim/random"
)

func TestMixNormalization(t *testing.T) {
	mix, err := population.NewMix([]population.Profile{
		{ID: 1, Probability: 0.301, Weights: map[string]float64{"length": 1}},
		{ID: 2, Probability: 0.699, Weights: map[string]float64{"safety": 1}},
	})
	require.NoError(t, err)

	r := random.NewStreams(42).Rand("choice")
	counts := map[int]int{}
	for i := 0; i < 100_000; i++ {
		counts[mix.Draw(r).ID]++
	}
	assert.InDelta(t, 30_100, counts[1], 1500)
	assert.InDelta(t, 69_900, counts[2], 1500)
}

func TestMixRejectsBadProbabilities(t *testing.T) {
	_, err := population.NewMix([]population.Profile{{ID: 1, Probability: 1.5}})
	assert.Error(t, err)

	_, err = population.NewMix([]population.Profile{
		{ID: 1, Probability: 0.5},
		{ID: 2, Probability: 0.3},
	})
	assert.Error(t, err, "sum 0.8 is beyond tolerance")
}

func TestMixDefaultsToLengthOnly(t *testing.T) {
	mix, err := population.NewMix(nil)
	require.NoError(t, err)
	p := mix.Draw(random.NewStreams(1).Rand("choice"))
	assert.Equal(t, map[string]float64{"length": 1.0}, p.Weights)
}

func TestODDraw(t *testing.T) {
	od, err := population.NewODMatrix(3, map[int]map[int]float64{
		0: {1: 0.5, 2: 0.5},
	})
	require.NoError(t, err)

	r := random.NewStreams(42).Rand("choice")
	counts := map[int]int{}
	for i := 0; i < 50_000; i++ {
		d, ok := od.Draw(0, r)
		require.True(t, ok)
		counts[d]++
	}
	assert.Zero(t, counts[0], "diagonal is forced to zero")
	assert.InDelta(t, 25_000, counts[1], 1000)
	assert.InDelta(t, 25_000, counts[2], 1000)
}

func TestODDiagonalForcedToZero(t *testing.T) {
	od, err := population.NewODMatrix(2, map[int]map[int]float64{
		0: {0: 0.9, 1: 0.1},
	})
	require.NoError(t, err)
	r := random.NewStreams(7).Rand("choice")
	for i := 0; i < 1000; i++ {
		d, ok := od.Draw(0, r)
		require.True(t, ok)
		assert.Equal(t, 1, d)
	}
}

func TestODUniformFallback(t *testing.T) {
	od := population.Uniform(4)
	r := random.NewStreams(42).Rand("choice")
	counts := map[int]int{}
	for i := 0; i < 30_000; i++ {
		d, ok := od.Draw(2, r)
		require.True(t, ok)
		counts[d]++
	}
	assert.Zero(t, counts[2])
	for _, d := range []int{0, 1, 3} {
		assert.InDelta(t, 10_000, counts[d], 600)
	}
}

func TestODRejectsInvalidMass(t *testing.T) {
	_, err := population.NewODMatrix(2, map[int]map[int]float64{0: {1: -0.5}})
	assert.Error(t, err)
	_, err = population.NewODMatrix(2, map[int]map[int]float64{0: {0: 1}})
	assert.Error(t, err, "only diagonal mass leaves the row empty")
}

func TestDirections(t *testing.T) {
	p := population.Profile{Weights: map[string]float64{"length": 1, "safety": 1, "scenery": 1}}
	assert.Equal(t, population.Descending, p.Direction("length"))
	assert.Equal(t, population.Descending, p.Direction("grade"))
	assert.Equal(t, population.Ascending, p.Direction("safety"))
	assert.Equal(t, population.Ascending, p.Direction("scenery"))

	p.Directions = map[string]population.Direction{"scenery": population.Descending}
	assert.Equal(t, population.Descending, p.Direction("scenery"))
}
