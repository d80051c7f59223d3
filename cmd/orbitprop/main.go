package main

import (
	"flag"
	"io"
	"math"
	"os"

	"github.com/ChristopherRabotin/orbitprop"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// This code reads the scenario, propagates it and writes the ephemeris as CSV.

const defaultScenario = "~~unset~~"

var (
	scenario string
	output   string
	verbose  bool
)

func init() {
	// Read flags
	flag.StringVar(&scenario, "scenario", defaultScenario, "scenario TOML file")
	flag.StringVar(&output, "out", "", "CSV output file (default stdout)")
	flag.BoolVar(&verbose, "verbose", false, "really verbose (esp. for configuration)")
}

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	if verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	if err := run(logger); err != nil {
		level.Error(logger).Log("subsys", "cmd", "err", err)
		os.Exit(1)
	}
}

func run(logger kitlog.Logger) error {
	if scenario == defaultScenario {
		return errors.Errorf("no scenario provided")
	}
	sc, err := orbitprop.LoadScenario(scenario)
	if err != nil {
		return err
	}
	model, err := sc.Model()
	if err != nil {
		return err
	}
	n, err := orbitprop.OrbitalAngularVelocityOfOrbit(sc.Orbit, model, sc.Gravity)
	if err != nil {
		return err
	}
	period, err := orbitprop.OrbitalPeriodOfOrbit(sc.Orbit, model, sc.Gravity)
	if err != nil {
		return err
	}
	dΩ, err := orbitprop.RAANTimeDerivativeOfOrbit(sc.Orbit, model, sc.Gravity)
	if err != nil {
		return err
	}
	level.Info(logger).Log("subsys", "conf", "gravity", sc.Gravity, "propagator", sc.Propagator, "model", model, "orbit", sc.Orbit)
	level.Info(logger).Log("subsys", "conf", "angvel(deg/s)", n*180/math.Pi, "period(s)", period, "dRAAN(deg/day)", dΩ*86400*180/math.Pi)

	reg := prometheus.NewRegistry()
	metrics := orbitprop.NewMetrics(reg)
	prop, err := sc.NewPropagator(orbitprop.WithLogger(logger), orbitprop.WithMetrics(metrics))
	if err != nil {
		return err
	}
	states, err := orbitprop.Sample(prop, sc.Start, sc.End, sc.Step, logger)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := orbitprop.WriteCSV(w, states); err != nil {
		return err
	}
	if sc.Station != nil {
		passes := orbitprop.Passes(*sc.Station, states, sc.Gravity)
		for _, pass := range passes {
			level.Info(logger).Log("subsys", "station", "station", sc.Station.Name, "pass", pass)
		}
		level.Info(logger).Log("subsys", "station", "station", sc.Station, "passes", len(passes))
	}
	logMetrics(logger, reg)
	return nil
}

// logMetrics dumps the counters and histograms at debug level.
func logMetrics(logger kitlog.Logger, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		level.Warn(logger).Log("subsys", "metrics", "err", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			kv := []interface{}{"subsys", "metrics", "name", mf.GetName()}
			for _, l := range m.GetLabel() {
				kv = append(kv, l.GetName(), l.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				kv = append(kv, "value", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				kv = append(kv, "count", m.GetHistogram().GetSampleCount(), "sum", m.GetHistogram().GetSampleSum())
			}
			level.Debug(logger).Log(kv...)
		}
	}
}
