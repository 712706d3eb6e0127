package engine

import (
	"math"

	"github.com/samber/lo"
)

const (
	// nominal micro-step duration inside an edge traversal
	microStepSeconds = 0.5
	// upper bound on micro-steps per edge
	maxMicroSteps = 200

	// uphill speed reduction saturates at 50%, downhill gain at 30%
	uphillCapPercent   = 50.0
	downhillCapPercent = 30.0

	minTimeFactor = 0.5
	maxTimeFactor = 2.0

	minDensityFactor = 0.1
)

// gradeAdjustedSpeed reduces (uphill) or raises (downhill) the base speed by
// the grade percentage, then clamps to the configured speed band.
func gradeAdjustedSpeed(v0, grade, vMin, vMax float64) float64 {
	vg := v0
	switch {
	case grade > 0:
		vg = v0 * (1 - math.Min(grade, uphillCapPercent)/100)
	case grade < 0:
		vg = v0 * (1 + math.Min(-grade, downhillCapPercent)/100)
	}
	return lo.Clamp(vg, vMin, vMax)
}

// timeFactor is the safety/lighting dilation applied multiplicatively on the
// elapsed edge time. A missing attribute contributes factor 1.
func timeFactor(safety float64, hasSafety bool, lighting float64, hasLighting bool) float64 {
	fs, fl := 1.0, 1.0
	if hasSafety {
		fs = 1.3 - (safety-5)*0.125
	}
	if hasLighting {
		fl = 1.2 - (lighting-4)*0.075
	}
	return lo.Clamp(fs*fl, minTimeFactor, maxTimeFactor)
}

// densityFactor degrades speed once a directed edge holds more bikes than
// its congestion-free capacity. Never rejects entry.
func densityFactor(occupancy, capacity int) float64 {
	if occupancy <= capacity {
		return 1
	}
	return math.Max(minDensityFactor, float64(capacity)/float64(occupancy))
}

// microSteps subdivides a traversal of duration t into K steps of roughly
// the nominal micro-step duration.
func microSteps(t float64) int {
	k := int(math.Round(t / microStepSeconds))
	if k < 1 {
		return 1
	}
	if k > maxMicroSteps {
		return maxMicroSteps
	}
	return k
}
