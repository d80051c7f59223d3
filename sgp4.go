package orbitprop

import (
	"fmt"
	"math"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/pkg/errors"
)

// WGS84 is Earth as modeled by SGP4 (WGS-84 constants of Vallado's sgp4).
var WGS84 = GravityModel{"Earth (WGS84)", 6378.137, 398600.5, 0.00108262998905, -0.00000161098761}

// SGP4 wraps the SGP4/SDP4 propagator of go-satellite behind the Propagator
// contract. The orbit is handed over as a two line element set, so angles
// are rounded to 1e-4 degrees, and go-satellite only accepts whole seconds:
// states are computed at the epoch plus t rounded to the second.
// SGP4 returns osculating TEME states which are converted back to elements.
type SGP4 struct {
	initial      Orbit[float64]
	line1, line2 string
	sat          satellite.Satellite

	elapsed float64
	current Orbit[float64]
	logger  log.Logger
	metrics *Metrics
}

// NewSGP4 returns an SGP4 propagator of o, taken as SGP4 mean elements with
// the provided B* drag term (1/earth radii). WithDrag sets the (unused by
// SGP4) mean motion derivatives of the element set.
func NewSGP4(o Orbit[float64], bstar float64, opts ...Option) (*SGP4, error) {
	const op = "new sgp4 propagator"
	if err := validateElements(op, o.a, o.e, o.i, o.Ω, o.ω, o.M); err != nil {
		return nil, err
	}
	cfg := newOptions(opts)
	line1, line2, err := FormatTLE(o, WGS84, bstar, cfg.dnO2, cfg.ddnO6)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, errors.Wrap(&ElementError{Op: op, Param: "sgp4 code", Value: float64(sat.Error)}, sat.ErrorStr)
	}
	p := &SGP4{
		initial: o,
		line1:   line1,
		line2:   line2,
		sat:     sat,
		logger:  log.With(cfg.logger, "subsys", "prop", "propagator", "sgp4"),
		metrics: cfg.metrics,
	}
	level.Debug(p.logger).Log("line1", line1, "line2", line2)
	if p.current, err = p.stateAt(0); err != nil {
		return nil, errors.Wrap(err, op)
	}
	return p, nil
}

func (p *SGP4) stateAt(t float64) (Orbit[float64], error) {
	dt := p.initial.epoch.Add(secondsToDuration(t)).UTC().Round(time.Second)
	year, month, day := dt.Date()
	hour, minute, sec := dt.Clock()
	pos, vel := satellite.Propagate(p.sat, year, int(month), day, hour, minute, sec)
	R := []float64{pos.X, pos.Y, pos.Z}
	V := []float64{vel.X, vel.Y, vel.Z}
	if r := norm(R); !(r >= WGS84.Radius) || math.IsInf(r, 0) || math.IsNaN(norm(V)) {
		p.metrics.failure("sgp4")
		level.Warn(p.logger).Log("t", t, "r", r)
		return Orbit[float64]{}, &ElementError{Op: "sgp4", Param: "|r|", Value: r}
	}
	o, err := NewOrbitFromRV(dt, R, V, WGS84)
	if err != nil {
		p.metrics.failure("sgp4")
		return Orbit[float64]{}, errors.Wrap(err, "sgp4")
	}
	return o, nil
}

// Propagate sets the elapsed time since epoch to t.
func (p *SGP4) Propagate(t float64) (Orbit[float64], error) {
	o, err := p.stateAt(t)
	if err != nil {
		return p.current, err
	}
	p.elapsed = t
	p.current = o
	p.metrics.step("sgp4")
	return o, nil
}

// Step advances the elapsed time by Δt.
func (p *SGP4) Step(Δt float64) (Orbit[float64], error) {
	return p.Propagate(p.elapsed + Δt)
}

// PropagateToEpoch propagates to the provided Julian date.
func (p *SGP4) PropagateToEpoch(jd float64) (Orbit[float64], error) {
	return p.Propagate(sinceEpoch[float64](p.initial.epoch, jd))
}

// Orbit returns the current osculating elements.
func (p *SGP4) Orbit() Orbit[float64] { return p.current }

// Epoch returns the epoch of the initial elements.
func (p *SGP4) Epoch() time.Time { return p.initial.epoch }

// Elapsed returns the current time since epoch (s).
func (p *SGP4) Elapsed() float64 { return p.elapsed }

// TLE returns the element set handed to SGP4.
func (p *SGP4) TLE() (line1, line2 string) {
	return p.line1, p.line2
}

// FormatTLE encodes an orbit as the two lines of a TLE (satellite number 0).
// The mean motion is computed from a with gm, dnO2 (rad/s²) and ddnO6
// (rad/s³) are converted to rev/day² and rev/day³.
func FormatTLE(o Orbit[float64], gm GravityModel, bstar, dnO2, ddnO6 float64) (line1, line2 string, err error) {
	const revPerDay = 86400 / (2 * math.Pi)
	ndot, err := tleDecimal(dnO2 * 86400 * revPerDay)
	if err != nil {
		return "", "", errors.Wrap(err, "ndot")
	}
	nddot, err := tleExponent(ddnO6 * 86400 * 86400 * revPerDay)
	if err != nil {
		return "", "", errors.Wrap(err, "nddot")
	}
	bstarStr, err := tleExponent(bstar)
	if err != nil {
		return "", "", errors.Wrap(err, "bstar")
	}
	epoch := o.epoch.UTC()
	midnight := time.Date(epoch.Year(), epoch.Month(), epoch.Day(), 0, 0, 0, 0, time.UTC)
	day := float64(epoch.YearDay()) + epoch.Sub(midnight).Seconds()/86400
	line1 = fmt.Sprintf("1 %05dU %-8s %02d%012.8f %s %s %s 0 %4d", 0, "", epoch.Year()%100, day, ndot, nddot, bstarStr, 999)
	line1 += fmt.Sprint(tleChecksum(line1))

	n := math.Sqrt(gm.μ/(o.a*o.a*o.a)) * revPerDay
	ecc := int(math.Round(o.e * 1e7))
	if n >= 100 {
		return "", "", &ElementError{Op: "format tle", Param: "n", Value: n}
	}
	if ecc > 9999999 {
		return "", "", &ElementError{Op: "format tle", Param: "e", Value: o.e}
	}
	line2 = fmt.Sprintf("2 %05d %8.4f %8.4f %07d %8.4f %8.4f %11.8f%5d", 0,
		Rad2deg(o.i), Rad2deg(o.Ω), ecc, Rad2deg(o.ω), Rad2deg(o.M), n, 0)
	line2 += fmt.Sprint(tleChecksum(line2))
	return
}

// tleDecimal formats |x| < 1 as the 10 columns " .dddddddd".
func tleDecimal(x float64) (string, error) {
	if !(math.Abs(x) < 0.99999999) {
		return "", &ElementError{Op: "format tle", Param: "decimal", Value: x}
	}
	sign := " "
	if x < 0 {
		sign = "-"
	}
	return sign + fmt.Sprintf("%.8f", math.Abs(x))[1:], nil
}

// tleExponent formats x as the 8 columns " ddddd-e" of an assumed decimal
// point with a power of ten.
func tleExponent(x float64) (string, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "", &ElementError{Op: "format tle", Param: "exponent", Value: x}
	}
	sign := " "
	if x < 0 {
		sign = "-"
		x = -x
	}
	if x < 1e-10 {
		return " 00000+0", nil
	}
	exp := int(math.Floor(math.Log10(x))) + 1
	mant := int(math.Round(x / math.Pow(10, float64(exp)) * 1e5))
	if mant >= 100000 {
		mant /= 10
		exp++
	}
	if exp > 9 {
		return "", &ElementError{Op: "format tle", Param: "exponent", Value: x}
	}
	expSign := "+"
	if exp < 0 {
		expSign = "-"
		exp = -exp
	}
	return fmt.Sprintf("%s%05d%s%d", sign, mant, expSign, exp), nil
}

func tleChecksum(line string) int {
	sum := 0
	for _, c := range line {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}
