package orbitprop

import (
	"math"
	"unsafe"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	deg2rad = math.Pi / 180
	twoPi   = 2 * math.Pi
)

// Float is the set of floating point types the engine computes in.
// Every intermediate value is evaluated in the caller's precision: float32
// inputs go through math32 and never get promoted to float64.
type Float interface {
	~float32 | ~float64
}

// single returns whether T is a single precision type.
func single[T Float]() bool {
	var z T
	return unsafe.Sizeof(z) == 4
}

func sqrt[T Float](x T) T {
	if single[T]() {
		return T(math32.Sqrt(float32(x)))
	}
	return T(math.Sqrt(float64(x)))
}

func cbrt[T Float](x T) T {
	if single[T]() {
		return T(math32.Cbrt(float32(x)))
	}
	return T(math.Cbrt(float64(x)))
}

func sin[T Float](x T) T {
	if single[T]() {
		return T(math32.Sin(float32(x)))
	}
	return T(math.Sin(float64(x)))
}

func cos[T Float](x T) T {
	if single[T]() {
		return T(math32.Cos(float32(x)))
	}
	return T(math.Cos(float64(x)))
}

func sincos[T Float](x T) (s, c T) {
	if single[T]() {
		s32, c32 := math32.Sincos(float32(x))
		return T(s32), T(c32)
	}
	s64, c64 := math.Sincos(float64(x))
	return T(s64), T(c64)
}

func atan2[T Float](y, x T) T {
	if single[T]() {
		return T(math32.Atan2(float32(y), float32(x)))
	}
	return T(math.Atan2(float64(y), float64(x)))
}

func asin[T Float](x T) T {
	if single[T]() {
		return T(math32.Asin(float32(x)))
	}
	return T(math.Asin(float64(x)))
}

func abs[T Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

func mod[T Float](x, y T) T {
	if single[T]() {
		return T(math32.Mod(float32(x), float32(y)))
	}
	return T(math.Mod(float64(x), float64(y)))
}

// finite returns false for NaN and infinities.
func finite[T Float](x T) bool {
	f := float64(x)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// WrapAngle returns the provided angle in [0, 2π).
func WrapAngle[T Float](x T) T {
	x = mod(x, T(twoPi))
	if x < 0 {
		x += T(twoPi)
	}
	if x >= T(twoPi) {
		// float32 rounding of a tiny negative angle.
		x = 0
	}
	return x
}

// wrapPi returns the provided angle in (-π, π].
func wrapPi[T Float](x T) T {
	x = WrapAngle(x)
	if x > T(math.Pi) {
		x -= T(twoPi)
	}
	return x
}

// norm returns the norm of a given vector which is supposed to be 3x1.
func norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if scalar.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// dot performs the inner product.
func dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// cross performs the cross product.
func cross(a, b []float64) []float64 {
	return []float64{a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]} // Cross product R x V.
}

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}
