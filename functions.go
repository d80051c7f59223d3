package orbitprop

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// SunSynchronousRate is Earth's mean motion around the Sun (rad/s), i.e.
	// 0.9856473598947981 °/day, the RAAN drift of a Sun-synchronous orbit.
	SunSynchronousRate = 0.9856473598947981 * deg2rad / 86400

	smaTolerance64 = 1e-13
	smaTolerance32 = 1e-6
)

// maxSMAIterations caps the fixed point and secant iterations.
var maxSMAIterations = 50

// rates are the secular rates of the mean elements (rad/s).
// n0 is the unperturbed mean motion.
type rates[T Float] struct {
	n0, δM, δω, δΩ T
}

// angularVelocity is the rate of the argument of latitude.
func (r rates[T]) angularVelocity() T {
	return r.n0 + r.δM + r.δω
}

func checkInputs[T Float](op string, a, e, i T, model Perturbation, gm GravityModel) error {
	if err := model.Validate(op); err != nil {
		return err
	}
	if err := gm.Validate(); err != nil {
		return errors.Wrap(err, op)
	}
	switch {
	case !(a > 0) || !finite(a):
		return elementErr(op, "a", a)
	case !(e >= 0 && e < 1):
		return elementErr(op, "e", e)
	case !finite(i):
		return elementErr(op, "i", i)
	}
	return nil
}

// secularRates is the single source of every secular rate in this package:
// the public functions and all the mean element propagators call it.
func secularRates[T Float](op string, a, e, i T, model Perturbation, gm GravityModel) (rates[T], error) {
	if err := checkInputs(op, a, e, i, model, gm); err != nil {
		return rates[T]{}, err
	}
	μ := T(gm.μ)
	r := rates[T]{n0: sqrt(μ / (a * a * a))}
	if model == J0 {
		return r, nil
	}

	j2 := T(gm.J2)
	e2 := e * e
	η2 := 1 - e2
	η := sqrt(η2)
	p := a / T(gm.Radius) * η2 // semi parameter in body radii
	p2 := p * p
	s, c := sincos(i)
	s2 := s * s

	if model == J2 {
		k := T(0.75) * r.n0 * j2 / p2
		r.δM = k * η * (2 - 3*s2)
		r.δω = k * (4 - 5*s2)
		r.δΩ = -2 * k * c
		return r, nil
	}

	// Merson's second order theory: rates are scaled by the J2 perturbed
	// mean motion.
	j4 := T(gm.J4)
	j22 := j2 * j2
	p4 := p2 * p2
	s4 := s2 * s2
	e4 := e2 * e2
	n := r.n0 * (1 + T(0.75)*j2/p2*η*(2-3*s2))

	r.δΩ = -T(1.5)*n*j2/p2*c +
		T(3.0/32)*n*j22/p4*c*(12-4*e2-(80+5*e2)*s2) +
		T(15.0/32)*n*j4/p4*c*(8+12*e2-(14+21*e2)*s2)
	r.δω = T(0.75)*n*j2/p2*(4-5*s2) +
		T(9.0/384)*n*j22/p4*(56*e2+(760-36*e2)*s2-(890+45*e2)*s4) -
		T(15.0/128)*n*j4/p4*(64+72*e2-(248+252*e2)*s2+(196+189*e2)*s4)
	r.δM = T(0.75)*n*j2/p2*η*(2-3*s2) +
		T(3.0/512)*n*j22/(p4*η)*(320*e2-280*e4+(1600-1568*e2+328*e4)*s2+(-2096+1072*e2+79*e4)*s4) -
		T(45.0/128)*n*j4/p4*η*e2*(8-40*s2+35*s4)
	return r, nil
}

// OrbitalAngularVelocity returns the mean angular velocity (rad/s) of an
// orbit with semi-major axis a (km), eccentricity e and inclination i (rad).
// Under J0 this is √(μ/a³); under J2 and J4 it also includes the secular
// drift of the mean anomaly and of the argument of periapsis.
func OrbitalAngularVelocity[T Float](a, e, i T, model Perturbation, gm GravityModel) (T, error) {
	r, err := secularRates("orbital angular velocity", a, e, i, model, gm)
	if err != nil {
		return 0, err
	}
	return r.angularVelocity(), nil
}

// OrbitalAngularVelocityOfOrbit is OrbitalAngularVelocity for the elements of o.
func OrbitalAngularVelocityOfOrbit[T Float](o Orbit[T], model Perturbation, gm GravityModel) (T, error) {
	return OrbitalAngularVelocity(o.a, o.e, o.i, model, gm)
}

// OrbitalPeriod returns 2π divided by the orbital angular velocity (s).
func OrbitalPeriod[T Float](a, e, i T, model Perturbation, gm GravityModel) (T, error) {
	n, err := OrbitalAngularVelocity(a, e, i, model, gm)
	if err != nil {
		return 0, errors.Wrap(err, "orbital period")
	}
	return T(twoPi) / n, nil
}

// OrbitalPeriodOfOrbit is OrbitalPeriod for the elements of o.
func OrbitalPeriodOfOrbit[T Float](o Orbit[T], model Perturbation, gm GravityModel) (T, error) {
	return OrbitalPeriod(o.a, o.e, o.i, model, gm)
}

// RAANTimeDerivative returns the secular drift of the RAAN (rad/s).
// It is exactly zero under J0.
func RAANTimeDerivative[T Float](a, e, i T, model Perturbation, gm GravityModel) (T, error) {
	r, err := secularRates("raan time derivative", a, e, i, model, gm)
	if err != nil {
		return 0, err
	}
	return r.δΩ, nil
}

// RAANTimeDerivativeOfOrbit is RAANTimeDerivative for the elements of o.
func RAANTimeDerivativeOfOrbit[T Float](o Orbit[T], model Perturbation, gm GravityModel) (T, error) {
	return RAANTimeDerivative(o.a, o.e, o.i, model, gm)
}

// AngularVelocityToSemiMajorAxis is the inverse of OrbitalAngularVelocity: it
// returns the semi-major axis (km) of an orbit with angular velocity n (rad/s).
// J0 and J2 are closed form. J4 is solved by fixed point iteration seeded with
// the J2 solution and fails with a *ConvergenceError after 50 iterations.
func AngularVelocityToSemiMajorAxis[T Float](n, e, i T, model Perturbation, gm GravityModel) (T, error) {
	const op = "angular velocity to semi-major axis"
	if !(n > 0) || !finite(n) {
		if err := model.Validate(op); err != nil {
			return 0, err
		}
		return 0, elementErr(op, "n", n)
	}
	if err := checkInputs(op, 1, e, i, model, gm); err != nil {
		return 0, err
	}
	μ := T(gm.μ)
	a0 := cbrt(μ / (n * n))
	switch model {
	case J0:
		return a0, nil
	case J2:
		return j2SemiMajorAxis(a0, e, i, gm), nil
	}

	tol := T(smaTolerance64)
	if single[T]() {
		tol = smaTolerance32
	}
	a := j2SemiMajorAxis(a0, e, i, gm)
	var Δ T
	for iter := 1; iter <= maxSMAIterations; iter++ {
		r, err := secularRates(op, a, e, i, J4, gm)
		if err != nil {
			return 0, err
		}
		n0 := n - r.δM - r.δω
		if !(n0 > 0) {
			return 0, elementErr(op, "n", n)
		}
		next := cbrt(μ / (n0 * n0))
		Δ = abs(next - a)
		a = next
		if Δ <= tol*a {
			return a, nil
		}
	}
	return 0, &ConvergenceError{Op: op, Iterations: maxSMAIterations, Residual: float64(Δ)}
}

// j2SemiMajorAxis inverts n = n0·(1 + K/a²), where K gathers the J2 terms
// which do not depend on a. Three substitutions into a = a0·(1 + K/a²)^(2/3)
// leave an O(J2⁴) residual, well below a millimeter in LEO.
func j2SemiMajorAxis[T Float](a0, e, i T, gm GravityModel) T {
	R0 := T(gm.Radius)
	η2 := 1 - e*e
	η := sqrt(η2)
	c := cos(i)
	c2 := c * c
	K := T(0.75) * T(gm.J2) * R0 * R0 / (η2 * η2) * (η*(3*c2-1) + (5*c2 - 1))
	a := a0
	for k := 0; k < 3; k++ {
		x := 1 + K/(a*a)
		a = a0 * cbrt(x*x)
	}
	return a
}

// SunSynchronousInclination returns the inclination (rad) for which the RAAN
// drifts at SunSynchronousRate. J2 is closed form, J4 is refined with the
// secant method from the J2 solution.
func SunSynchronousInclination[T Float](a, e T, model Perturbation, gm GravityModel) (T, error) {
	const op = "sun-synchronous inclination"
	if model == J0 {
		return 0, &ModelError{Op: op, Model: model}
	}
	r, err := secularRates(op, a, e, 0, J2, gm)
	if err != nil {
		return 0, err
	}
	if err := model.Validate(op); err != nil {
		return 0, err
	}
	target := T(SunSynchronousRate)
	// Under J2, the RAAN drift is δΩ(0)·cos(i).
	c := target / r.δΩ
	if !(abs(c) <= 1) {
		return 0, elementErr(op, "a", a)
	}
	i0 := atan2(sqrt(1-c*c), c)
	if model == J2 {
		return i0, nil
	}

	tol := T(keplerTolerance64)
	if single[T]() {
		tol = keplerTolerance32
	}
	f := func(i T) (T, error) {
		dΩ, err := RAANTimeDerivative(a, e, i, model, gm)
		return dΩ - target, err
	}
	i1 := i0 + T(1e-3)
	f0, err := f(i0)
	if err != nil {
		return 0, errors.Wrap(err, op)
	}
	var Δ T
	for iter := 1; iter <= maxSMAIterations; iter++ {
		f1, err := f(i1)
		if err != nil {
			return 0, errors.Wrap(err, op)
		}
		if f1 == f0 {
			break
		}
		i2 := i1 - f1*(i1-i0)/(f1-f0)
		Δ = abs(i2 - i1)
		if Δ <= tol {
			if i2 < 0 || i2 > T(math.Pi) {
				return 0, elementErr(op, "i", i2)
			}
			return i2, nil
		}
		i0, f0, i1 = i1, f1, i2
	}
	return 0, &ConvergenceError{Op: op, Iterations: maxSMAIterations, Residual: float64(Δ)}
}
