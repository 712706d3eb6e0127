package main

import (
	"flag"
	"os"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"

	"git.fiblab.net/sim/cyclesim/engine"
	"git.fiblab.net/sim/cyclesim/scenario"
)

var (
	scenarioPath = flag.String("scenario", "", "scenario file path (JSON)")
	seed         = flag.Uint64("seed", 0, "master seed (0 means the scenario's seed)")
	logLevel     = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")
	pprofAddr    = flag.String("pprof", "", "pprof listening address (empty means disabled)")

	benchmark = flag.Bool("benchmark", false, "benchmark mode")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

var log = logrus.WithField("module", "main")

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	flag.Parse()
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}

	if *scenarioPath == "" {
		log.Fatal("no scenario file given, use -scenario")
	}
	f, err := os.Open(*scenarioPath)
	if err != nil {
		log.Fatalf("open scenario: %v", err)
	}
	sc, err := scenario.Load(f)
	f.Close()
	if err != nil {
		log.Fatalf("load scenario: %v", err)
	}
	if *seed != 0 {
		sc.Kinematics.Seed = *seed
	}

	if *pprofAddr != "" {
		startHTTPDebugger(*pprofAddr)
	}

	if *benchmark {
		runBenchmark(sc)
		return
	}

	e := engine.New()
	if err := e.Reset(sc, sc.Kinematics.Seed); err != nil {
		log.Fatalf("reset failed: %v", err)
	}
	e.Run()

	res := e.Results()
	agg := res.Aggregates
	log.Infof("run %s at t=%.1f", res.Status, res.Now)
	log.Infof("cyclists: %d created, %d completed, %d discarded",
		res.Diagnostics.CyclistsCreated, agg.CompletedTrips, res.Diagnostics.Discarded)
	if agg.CompletedTrips > 0 {
		log.Infof("trip time avg/min/max: %.2f/%.2f/%.2f s",
			agg.AvgTripTime, agg.MinTripTime, agg.MaxTripTime)
		log.Infof("observed speed avg/min/max: %.2f/%.2f/%.2f m/s",
			agg.AvgSpeed, agg.MinSpeed, agg.MaxSpeed)
	}
	for i, r := range res.Routes {
		if i >= 5 {
			break
		}
		log.Infof("route %s: %d trips", r.Route, r.Count)
	}
}
