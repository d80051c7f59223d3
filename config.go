package orbitprop

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables which override scenario keys,
// e.g. ORBITPROP_ORBIT_SMA overrides orbit.sma.
const EnvPrefix = "ORBITPROP"

// Scenario is a propagation run read from a configuration file.
type Scenario struct {
	Gravity    GravityModel
	Propagator string // twobody, j2, j2osc, j4 or sgp4
	Orbit      Orbit[float64]
	// Drag
	Bstar, DnO2, DdnO6 float64
	// Sampling
	Start, End time.Time
	Step       time.Duration
	// Optional ground station
	Station *Station
}

// LoadScenario reads a scenario file (any format viper supports, TOML in
// practice). All angles are in degrees. Dates are either a Julian date or a
// time viper can parse.
//
//	[gravity]
//	model = "EGM08"      # or radius, mu, J2, J4
//	[orbit]
//	epoch = 2458849.5
//	sma = 7130.982       # or rA and rP
//	ecc = 0.001111
//	inc = 98.405
//	RAAN = 10
//	argPeri = 20
//	mAnomaly = 30        # or tAnomaly
//	[propagator]
//	type = "J2"
//	[drag]
//	dn_o2 = 0
//	ddn_o6 = 0
//	bstar = 0
//	[sampling]
//	end = "2020-01-02T00:00:00Z"   # start defaults to the epoch
//	step = "1m"
//	[station]            # optional
//	name = "DSS65"       # or lat, long, alt and elevation
func LoadScenario(path string) (Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("gravity.model", "EGM08")
	v.SetDefault("propagator.type", "J2")
	v.SetDefault("sampling.step", "1m")
	if err := v.ReadInConfig(); err != nil {
		return Scenario{}, errors.Wrapf(err, "%s not found", path)
	}
	return scenarioFromViper(v)
}

func scenarioFromViper(v *viper.Viper) (s Scenario, err error) {
	if v.IsSet("gravity.mu") {
		s.Gravity, err = NewGravityModel(v.GetString("gravity.name"), v.GetFloat64("gravity.radius"), v.GetFloat64("gravity.mu"), v.GetFloat64("gravity.J2"), v.GetFloat64("gravity.J4"))
	} else {
		s.Gravity, err = GravityModelFromString(v.GetString("gravity.model"))
	}
	if err != nil {
		return s, errors.Wrap(err, "gravity")
	}

	epoch, err := confReadJDEorTime(v, "orbit.epoch")
	if err != nil {
		return s, err
	}
	a := v.GetFloat64("orbit.sma")
	e := v.GetFloat64("orbit.ecc")
	if v.IsSet("orbit.rA") {
		if a, e, err = Radii2ae(v.GetFloat64("orbit.rA"), v.GetFloat64("orbit.rP")); err != nil {
			return s, errors.Wrap(err, "orbit")
		}
	}
	i := v.GetFloat64("orbit.inc") * deg2rad
	Ω := v.GetFloat64("orbit.RAAN") * deg2rad
	ω := v.GetFloat64("orbit.argPeri") * deg2rad
	if v.IsSet("orbit.tAnomaly") {
		s.Orbit, err = NewOrbitFromTrueAnomaly(epoch, a, e, i, Ω, ω, v.GetFloat64("orbit.tAnomaly")*deg2rad)
	} else {
		s.Orbit, err = NewOrbit(epoch, a, e, i, Ω, ω, v.GetFloat64("orbit.mAnomaly")*deg2rad)
	}
	if err != nil {
		return s, errors.Wrap(err, "orbit")
	}

	s.Propagator = strings.ToLower(v.GetString("propagator.type"))
	if _, err = s.Model(); err != nil {
		return s, err
	}
	s.Bstar = v.GetFloat64("drag.bstar")
	s.DnO2 = v.GetFloat64("drag.dn_o2")
	s.DdnO6 = v.GetFloat64("drag.ddn_o6")

	s.Start = epoch
	if v.IsSet("sampling.start") {
		if s.Start, err = confReadJDEorTime(v, "sampling.start"); err != nil {
			return s, err
		}
	}
	if s.End, err = confReadJDEorTime(v, "sampling.end"); err != nil {
		return s, err
	}
	s.Step = v.GetDuration("sampling.step")
	if s.Step <= 0 {
		return s, errors.Errorf("sampling.step must be positive, got %s", s.Step)
	}

	switch {
	case v.IsSet("station.name") && !v.IsSet("station.lat"):
		st, err := BuiltinStationFromName(v.GetString("station.name"))
		if err != nil {
			return s, err
		}
		s.Station = &st
	case v.IsSet("station.lat"):
		st := NewStation(v.GetString("station.name"), v.GetFloat64("station.alt"), v.GetFloat64("station.elevation"), v.GetFloat64("station.lat"), v.GetFloat64("station.long"))
		s.Station = &st
	}
	return s, nil
}

// Model returns the perturbation model of the propagator of the scenario.
// SGP4 reports J2, its dominant secular model.
func (s Scenario) Model() (Perturbation, error) {
	switch s.Propagator {
	case "twobody", "two-body", "unperturbed":
		return J0, nil
	case "j2", "j2osc", "j2-osculating", "sgp4":
		return J2, nil
	case "j4":
		return J4, nil
	}
	return J0, errors.Errorf("unknown propagator type %q", s.Propagator)
}

// NewPropagator builds the propagator of the scenario.
func (s Scenario) NewPropagator(opts ...Option) (Propagator[float64], error) {
	opts = append(opts, WithDrag(s.DnO2, s.DdnO6))
	var (
		p   Propagator[float64]
		err error
	)
	switch s.Propagator {
	case "twobody", "two-body", "unperturbed":
		p, err = NewTwoBody(s.Orbit, s.Gravity, opts...)
	case "j2":
		p, err = NewJ2Mean(s.Orbit, s.Gravity, opts...)
	case "j2osc", "j2-osculating":
		p, err = NewJ2Osculating(s.Orbit, s.Gravity, opts...)
	case "j4":
		p, err = NewJ4Mean(s.Orbit, s.Gravity, opts...)
	case "sgp4":
		p, err = NewSGP4(s.Orbit, s.Bstar, opts...)
	default:
		return nil, errors.Errorf("unknown propagator type %q", s.Propagator)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func confReadJDEorTime(v *viper.Viper, key string) (dt time.Time, err error) {
	if !v.IsSet(key) {
		return dt, errors.Errorf("%s is missing", key)
	}
	if jde := v.GetFloat64(key); jde != 0 {
		return julian.JDToTime(jde).UTC(), nil
	}
	dt = v.GetTime(key)
	if dt.IsZero() {
		return dt, errors.Errorf("%s: cannot parse %q as a date", key, v.GetString(key))
	}
	return dt.UTC(), nil
}
