package orbitprop

import (
	"fmt"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

var testEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if !scalar.EqualWithinRel(a[i], b[i], 1e-3) {
			return false
		}
	}
	return true
}

// anglesEqual returns whether two angles in Radians are equal.
func anglesEqual(a, b float64) (bool, error) {
	diff := math.Abs(float64(wrapPi(a - b)))
	if diff < angleε {
		return true, nil
	}
	return false, fmt.Errorf("difference of %3.10f degrees", Rad2deg(diff))
}

// referenceOrbit is the Sun-synchronous LEO used throughout the tests.
func referenceOrbit(t *testing.T) Orbit[float64] {
	t.Helper()
	o, err := NewOrbit(testEpoch, 7130.982, 0.001111, Deg2rad(98.405), Deg2rad(30), Deg2rad(40), Deg2rad(10))
	if err != nil {
		t.Fatalf("reference orbit: %s", err)
	}
	return o
}

// lowerIterationCaps sets the solver iteration caps until the test ends.
func lowerIterationCaps(t *testing.T, kepler, sma int) {
	t.Helper()
	k, s := maxKeplerIterations, maxSMAIterations
	maxKeplerIterations, maxSMAIterations = kepler, sma
	t.Cleanup(func() {
		maxKeplerIterations, maxSMAIterations = k, s
	})
}
