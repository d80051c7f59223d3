package orbitprop

import "math"

const (
	keplerTolerance64 = 1e-12
	keplerTolerance32 = 1e-5
)

var maxKeplerIterations = 50

// keplerTolerance is the Newton step below which E is converged.
func keplerTolerance[T Float]() T {
	if single[T]() {
		return keplerTolerance32
	}
	return keplerTolerance64
}

// solveKepler solves M = E - e·sin(E) by Newton's method seeded with E = M,
// and returns the number of iterations used. The root is bracketed by
// [M, M+e] for M ≤ π and [M-e, M] otherwise; a Newton step leaving the
// bracket is replaced by a bisection, which keeps highly eccentric orbits
// from cycling near periapsis.
func solveKepler[T Float](M, e T) (E T, iter int, err error) {
	if !finite(M) {
		return 0, 0, elementErr("kepler", "M", M)
	}
	if !(e >= 0 && e < 1) {
		return 0, 0, elementErr("kepler", "e", e)
	}
	M = WrapAngle(M)
	lo, hi := M, M+e
	if M > T(math.Pi) {
		lo, hi = M-e, M
	}
	E = M
	tol := keplerTolerance[T]()
	var ΔE T
	for iter = 1; iter <= maxKeplerIterations; iter++ {
		sE, cE := sincos(E)
		f := E - e*sE - M
		if f > 0 {
			hi = E
		} else {
			lo = E
		}
		next := E - f/(1-e*cE)
		if next < lo || next > hi {
			next = (lo + hi) / 2
		}
		ΔE = E - next
		E = next
		if abs(ΔE) <= tol {
			return WrapAngle(E), iter, nil
		}
	}
	return 0, maxKeplerIterations, &ConvergenceError{Op: "kepler", Iterations: maxKeplerIterations, Residual: float64(ΔE)}
}

// EccentricAnomaly returns the eccentric anomaly for the mean anomaly M.
func EccentricAnomaly[T Float](M, e T) (T, error) {
	E, _, err := solveKepler(M, e)
	return E, err
}

// EccentricToTrueAnomaly converts the eccentric anomaly to the true anomaly.
func EccentricToTrueAnomaly[T Float](E, e T) T {
	sE, cE := sincos(E)
	return WrapAngle(atan2(sqrt(1-e*e)*sE, cE-e))
}

// MeanToTrueAnomaly solves Kepler's equation and returns the true anomaly.
func MeanToTrueAnomaly[T Float](M, e T) (T, error) {
	E, _, err := solveKepler(M, e)
	if err != nil {
		return 0, err
	}
	return EccentricToTrueAnomaly(E, e), nil
}

// TrueToMeanAnomaly is the closed form inverse of MeanToTrueAnomaly.
func TrueToMeanAnomaly[T Float](ν, e T) T {
	sν, cν := sincos(ν)
	E := atan2(sqrt(1-e*e)*sν, e+cν)
	return WrapAngle(E - e*sin(E))
}
