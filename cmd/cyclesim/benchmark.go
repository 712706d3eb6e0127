package main

import (
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"git.fiblab.net/sim/cyclesim/engine"
	"git.fiblab.net/sim/cyclesim/scenario"
)

var (
	benchmarkCount = flag.Int("benchmark.count", 10, "number of timed runs")
	benchmarkSeed  = flag.Uint64("benchmark.seed", 42, "seed of the first run; each run adds 1")
)

// runBenchmark times repeated full runs of the scenario with incrementing
// seeds.
func runBenchmark(sc *scenario.Scenario) {
	log.Logger.SetLevel(logrus.WarnLevel)
	e := engine.New()
	var total time.Duration
	completed := 0
	for i := 0; i < *benchmarkCount; i++ {
		if err := e.Reset(sc, *benchmarkSeed+uint64(i)); err != nil {
			log.Fatalf("reset failed: %v", err)
		}
		start := time.Now()
		e.Run()
		total += time.Since(start)
		completed += e.Results().Aggregates.CompletedTrips
	}
	log.Logger.SetLevel(logrus.InfoLevel)
	log.Infof("%d runs in %v (%v per run), %d completed trips",
		*benchmarkCount, total, total/time.Duration(*benchmarkCount), completed)
}
