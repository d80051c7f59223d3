package orbitprop

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	distanceε     = 2e1                          // 20 km
)

// Orbit is a Keplerian element set at an epoch. Both anomalies are always
// populated and consistent with each other through Kepler's equation.
// An Orbit is a value: propagators hand out copies.
type Orbit[T Float] struct {
	epoch               time.Time
	a, e, i, Ω, ω, M, ν T
}

// NewOrbit creates an orbit from its mean anomaly (all angles in radians,
// a in km). RAAN, argument of periapsis and mean anomaly are wrapped to
// [0, 2π); the true anomaly is derived through Kepler's equation.
func NewOrbit[T Float](epoch time.Time, a, e, i, Ω, ω, M T) (Orbit[T], error) {
	if err := validateElements("new orbit", a, e, i, Ω, ω, M); err != nil {
		return Orbit[T]{}, err
	}
	M = WrapAngle(M)
	ν, err := MeanToTrueAnomaly(M, e)
	if err != nil {
		return Orbit[T]{}, errors.Wrap(err, "new orbit")
	}
	return Orbit[T]{epoch, a, e, i, WrapAngle(Ω), WrapAngle(ω), M, ν}, nil
}

// NewOrbitFromTrueAnomaly creates an orbit from its true anomaly.
func NewOrbitFromTrueAnomaly[T Float](epoch time.Time, a, e, i, Ω, ω, ν T) (Orbit[T], error) {
	if err := validateElements("new orbit", a, e, i, Ω, ω, ν); err != nil {
		return Orbit[T]{}, err
	}
	ν = WrapAngle(ν)
	return Orbit[T]{epoch, a, e, i, WrapAngle(Ω), WrapAngle(ω), TrueToMeanAnomaly(ν, e), ν}, nil
}

// NewOrbitFromOE creates a double precision orbit from the orbital elements.
// WARNING: Angles must be in degrees not radian.
func NewOrbitFromOE(epoch time.Time, a, e, i, Ω, ω, ν float64) (Orbit[float64], error) {
	return NewOrbitFromTrueAnomaly(epoch, a, e, i*deg2rad, Ω*deg2rad, ω*deg2rad, ν*deg2rad)
}

func validateElements[T Float](op string, a, e, i, Ω, ω, anomaly T) error {
	switch {
	case !(a > 0) || !finite(a):
		return elementErr(op, "a", a)
	case !(e >= 0 && e < 1):
		return elementErr(op, "e", e)
	case !(i >= 0 && i <= T(math.Pi)):
		return elementErr(op, "i", i)
	case !finite(Ω):
		return elementErr(op, "Ω", Ω)
	case !finite(ω):
		return elementErr(op, "ω", ω)
	case !finite(anomaly):
		return elementErr(op, "anomaly", anomaly)
	}
	return nil
}

// Epoch returns the reference time of the elements.
func (o Orbit[T]) Epoch() time.Time { return o.epoch }

// SemiMajorAxis returns a in km.
func (o Orbit[T]) SemiMajorAxis() T { return o.a }

// Eccentricity returns e.
func (o Orbit[T]) Eccentricity() T { return o.e }

// Inclination returns i in radians.
func (o Orbit[T]) Inclination() T { return o.i }

// RAAN returns Ω in radians.
func (o Orbit[T]) RAAN() T { return o.Ω }

// ArgPeriapsis returns ω in radians.
func (o Orbit[T]) ArgPeriapsis() T { return o.ω }

// MeanAnomaly returns M in radians.
func (o Orbit[T]) MeanAnomaly() T { return o.M }

// TrueAnomaly returns ν in radians.
func (o Orbit[T]) TrueAnomaly() T { return o.ν }

// Elements returns all the orbital elements.
func (o Orbit[T]) Elements() (a, e, i, Ω, ω, M, ν T) {
	return o.a, o.e, o.i, o.Ω, o.ω, o.M, o.ν
}

// SemiParameter returns the semi parameter p.
func (o Orbit[T]) SemiParameter() T {
	return o.a * (1 - o.e*o.e)
}

// Apoapsis returns the apoapsis radius.
func (o Orbit[T]) Apoapsis() T {
	return o.a * (1 + o.e)
}

// Periapsis returns the periapsis radius.
func (o Orbit[T]) Periapsis() T {
	return o.a * (1 - o.e)
}

// ArgLatitude returns the argument of latitude.
func (o Orbit[T]) ArgLatitude() T {
	return WrapAngle(o.ν + o.ω)
}

// RV returns the inertial radius and velocity vectors (km and km/s).
func (o Orbit[T]) RV(gm GravityModel) (R, V []float64) {
	a, e, i, Ω, ω, ν := float64(o.a), float64(o.e), float64(o.i), float64(o.Ω), float64(o.ω), float64(o.ν)
	p := a * (1 - e*e)
	sinν, cosν := math.Sincos(ν)
	R = []float64{p * cosν / (1 + e*cosν), p * sinν / (1 + e*cosν), 0}
	R = PQW2ECI(i, ω, Ω, R)

	vp := math.Sqrt(gm.μ / p)
	V = []float64{-vp * sinν, vp * (e + cosν), 0}
	V = PQW2ECI(i, ω, Ω, V)
	return
}

// String implements the stringer interface (hence the value receiver)
func (o Orbit[T]) String() string {
	a, e := float64(o.a), float64(o.e)
	if e < eccentricityε {
		// Circular orbit
		return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f u=%.3f", a, e, Rad2deg(float64(o.i)), Rad2deg(float64(o.Ω)), Rad2deg(float64(o.ArgLatitude())))
	}
	return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", a, e, Rad2deg(float64(o.i)), Rad2deg(float64(o.Ω)), Rad2deg(float64(o.ω)), Rad2deg(float64(o.ν)))
}

// Equals returns whether two orbits are identical with free true anomaly.
// Use StrictlyEquals to also check true anomaly.
func (o Orbit[T]) Equals(o1 Orbit[T]) (bool, error) {
	if !scalar.EqualWithinAbs(float64(o.a), float64(o1.a), distanceε) {
		return false, errors.New("semi major axis invalid")
	}
	if !scalar.EqualWithinAbs(float64(o.e), float64(o1.e), eccentricityε) {
		return false, errors.New("eccentricity invalid")
	}
	if !anglesWithin(o.i, o1.i, angleε) {
		return false, errors.New("inclination invalid")
	}
	if !anglesWithin(o.Ω, o1.Ω, angleε) {
		return false, errors.New("RAAN invalid")
	}
	if o.e < eccentricityε {
		// Circular orbit
		if !anglesWithin(o.ArgLatitude(), o1.ArgLatitude(), angleε) {
			return false, errors.New("argument of latitude invalid")
		}
	} else if !anglesWithin(o.ω, o1.ω, angleε) {
		return false, errors.New("argument of perigee invalid")
	}
	return true, nil
}

// StrictlyEquals returns whether two orbits are identical.
func (o Orbit[T]) StrictlyEquals(o1 Orbit[T]) (bool, error) {
	// Only check for non circular orbits
	if o.e > eccentricityε && !anglesWithin(o.ν, o1.ν, angleε) {
		return false, errors.New("true anomaly invalid")
	}
	return o.Equals(o1)
}

func anglesWithin[T Float](a, b T, tol float64) bool {
	return math.Abs(float64(wrapPi(a-b))) <= tol
}

// NewOrbitFromRV returns orbital elements from the R and V vectors.
// Only elliptical orbits are supported.
func NewOrbitFromRV(epoch time.Time, R, V []float64, gm GravityModel) (Orbit[float64], error) {
	// From Vallado's RV2COE, page 113
	hVec := cross(R, V)
	n := cross([]float64{0, 0, 1}, hVec)
	v := norm(V)
	r := norm(R)
	if r == 0 || norm(hVec) == 0 {
		return Orbit[float64]{}, &ElementError{Op: "rv2coe", Param: "|h|", Value: norm(hVec)}
	}
	ξ := (v*v)/2 - gm.μ/r
	a := -gm.μ / (2 * ξ)
	eVec := make([]float64, 3)
	for i := 0; i < 3; i++ {
		eVec[i] = ((v*v-gm.μ/r)*R[i] - dot(R, V)*V[i]) / gm.μ
	}
	e := norm(eVec)
	if e >= 1 {
		return Orbit[float64]{}, &ElementError{Op: "rv2coe", Param: "e", Value: e}
	}
	i := math.Acos(hVec[2] / norm(hVec))
	var Ω, ω, ν float64
	equatorial := norm(n) < 1e-12
	if equatorial {
		// The node is the x axis.
		n = []float64{1, 0, 0}
	} else {
		Ω = math.Acos(clamp(n[0] / norm(n)))
		if n[1] < 0 {
			Ω = 2*math.Pi - Ω
		}
	}
	if e > 1e-12 {
		ω = math.Acos(clamp(dot(n, eVec) / (norm(n) * e)))
		if (!equatorial && eVec[2] < 0) || (equatorial && eVec[1] < 0) {
			ω = 2*math.Pi - ω
		}
		ν = math.Acos(clamp(dot(eVec, R) / (e * r)))
		if dot(R, V) < 0 {
			ν = 2*math.Pi - ν
		}
	} else {
		// Circular: ν is the argument of latitude (or true longitude).
		ν = math.Acos(clamp(dot(n, R) / (norm(n) * r)))
		if (!equatorial && R[2] < 0) || (equatorial && R[1] < 0) {
			ν = 2*math.Pi - ν
		}
	}
	return NewOrbitFromTrueAnomaly(epoch, a, e, i, Ω, ω, ν)
}

// clamp fixes rounding errors which push a cosine just outside [-1, 1].
func clamp(cos float64) float64 {
	if math.Abs(cos) > 1 && scalar.EqualWithinAbs(math.Abs(cos), 1, 1e-12) {
		return sign(cos)
	}
	return cos
}

// Radii2ae returns the semi major axis and the eccentricty from the radii.
func Radii2ae(rA, rP float64) (a, e float64, err error) {
	if rA < rP {
		return 0, 0, &ElementError{Op: "radii2ae", Param: "rA", Value: rA}
	}
	a = (rP + rA) / 2
	e = (rA - rP) / (rA + rP)
	return
}
