package orbitprop

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
)

var (
	DSS34Canberra  = NewStation("DSS34Canberra", 0.691750, 10, -35.398333, 148.981944)
	DSS65Madrid    = NewStation("DSS65Madrid", 0.834939, 10, 40.427222, 4.250556)
	DSS13Goldstone = NewStation("DSS13Goldstone", 1.07114904, 10, 35.247164, 243.205)
)

// Station defines a ground station on a spherical Earth.
type Station struct {
	Name        string
	R           []float64 // position in ECEF
	LatΦ, Longθ float64   // these are stored in radians!
	Altitude    float64   // km
	Elevation   float64   // minimum elevation for visibility, in degrees
}

// NewStation returns a new station. Angles in degrees.
func NewStation(name string, altitude, elevation, latΦ, longθ float64) Station {
	R := GEO2ECEF(altitude, latΦ*deg2rad, longθ*deg2rad)
	return Station{name, R, latΦ * deg2rad, longθ * deg2rad, altitude, elevation}
}

// BuiltinStationFromName returns one of the DSN stations.
func BuiltinStationFromName(name string) (Station, error) {
	switch strings.ToLower(name) {
	case "dss13":
		return DSS13Goldstone, nil
	case "dss34":
		return DSS34Canberra, nil
	case "dss65":
		return DSS65Madrid, nil
	default:
		return Station{}, errors.Errorf("unknown station `%s`", name)
	}
}

// RangeElAz returns the range (in the SEZ frame), elevation and azimuth (in degrees) of a given R vector in ECEF.
func (s Station) RangeElAz(rECEF []float64) (ρECEF []float64, ρ, el, az float64) {
	ρECEF = make([]float64, 3)
	for i := 0; i < 3; i++ {
		ρECEF[i] = rECEF[i] - s.R[i]
	}
	ρ = norm(ρECEF)
	rSEZ := MxV33(R3(s.Longθ), ρECEF)
	rSEZ = MxV33(R2(math.Pi/2-s.LatΦ), rSEZ)
	el = math.Asin(rSEZ[2]/ρ) / deg2rad
	az = Rad2deg(WrapAngle(math.Atan2(rSEZ[1], -rSEZ[0])))
	return
}

func (s Station) String() string {
	return fmt.Sprintf("%s (%f,%f); alt = %f km; el = %f deg", s.Name, s.LatΦ/deg2rad, s.Longθ/deg2rad, s.Altitude, s.Elevation)
}

// Observation is the line of sight from a station to an orbit.
type Observation struct {
	DT                        time.Time
	Visible                   bool
	Range, Elevation, Azimuth float64 // km and degrees
}

// Observe returns the observation of o from s. The elements are taken in
// the true of date frame and rotated with the mean sidereal time.
func Observe[T Float](s Station, o Orbit[T], gm GravityModel) Observation {
	R, _ := o.RV(gm)
	θgst := sidereal.Mean(julian.TimeToJD(o.epoch)).Angle().Rad()
	_, ρ, el, az := s.RangeElAz(ECI2ECEF(R, θgst))
	return Observation{o.epoch, el >= s.Elevation, ρ, el, az}
}

// Pass is a visibility window of a station.
type Pass struct {
	AOS, LOS     time.Time
	MaxElevation float64 // degrees
}

func (p Pass) String() string {
	return fmt.Sprintf("AOS %s LOS %s (%s) max el = %.2f deg", p.AOS.UTC().Format(dateFormat), p.LOS.UTC().Format(dateFormat), p.LOS.Sub(p.AOS), p.MaxElevation)
}

// Passes returns the visibility windows of the sampled states, to the
// resolution of the sampling. A window still open at the last state is
// closed there.
func Passes[T Float](s Station, states []State[T], gm GravityModel) []Pass {
	var passes []Pass
	var cur *Pass
	for _, st := range states {
		obs := Observe(s, st.Orbit, gm)
		switch {
		case obs.Visible && cur == nil:
			cur = &Pass{AOS: st.DT, LOS: st.DT, MaxElevation: obs.Elevation}
		case obs.Visible:
			cur.LOS = st.DT
			cur.MaxElevation = math.Max(cur.MaxElevation, obs.Elevation)
		case cur != nil:
			passes = append(passes, *cur)
			cur = nil
		}
	}
	if cur != nil {
		passes = append(passes, *cur)
	}
	return passes
}
