package orbitprop

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// GravityModel holds the gravitational constants of a central body.
// It is a plain value: copies may be shared freely by any number of
// propagators and nothing in this package ever mutates one.
type GravityModel struct {
	Name   string
	Radius float64 // Equatorial radius R0 (km)
	μ      float64 // km^3/s^2
	J2     float64
	J4     float64
}

// NewGravityModel returns a validated gravity model.
func NewGravityModel(name string, radius, gm, j2, j4 float64) (GravityModel, error) {
	g := GravityModel{Name: name, Radius: radius, μ: gm, J2: j2, J4: j4}
	if err := g.Validate(); err != nil {
		return GravityModel{}, err
	}
	return g, nil
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (g GravityModel) GM() float64 {
	return g.μ
}

// NormalizedRootGM returns √(μ/R0³), the mean motion of a circular orbit at
// one body radius, in rad/s.
func (g GravityModel) NormalizedRootGM() float64 {
	return math.Sqrt(g.μ / (g.Radius * g.Radius * g.Radius))
}

// J returns the zonal harmonic of degree n, or zero if not modeled.
func (g GravityModel) J(n Perturbation) float64 {
	switch n {
	case J2:
		return g.J2
	case J4:
		return g.J4
	default:
		return 0.0
	}
}

// Validate checks the radius, μ and harmonics.
func (g GravityModel) Validate() error {
	switch {
	case !(g.Radius > 0) || math.IsInf(g.Radius, 0):
		return &ElementError{Op: "gravity model", Param: "radius", Value: g.Radius}
	case !(g.μ > 0) || math.IsInf(g.μ, 0):
		return &ElementError{Op: "gravity model", Param: "μ", Value: g.μ}
	case math.IsNaN(g.J2) || math.IsInf(g.J2, 0):
		return &ElementError{Op: "gravity model", Param: "J2", Value: g.J2}
	case math.IsNaN(g.J4) || math.IsInf(g.J4, 0):
		return &ElementError{Op: "gravity model", Param: "J4", Value: g.J4}
	}
	return nil
}

// String implements the Stringer interface.
func (g GravityModel) String() string {
	return fmt.Sprintf("%s (R0=%.4f km μ=%.6f J2=%.6e J4=%.6e)", g.Name, g.Radius, g.μ, g.J2, g.J4)
}

// GravityModelFromString returns the model from its name
func GravityModelFromString(name string) (GravityModel, error) {
	switch strings.ToLower(name) {
	case "earth", "egm08", "egm2008":
		return EGM08, nil
	case "jgm3":
		return JGM3, nil
	case "wgs84":
		return WGS84, nil
	case "mars":
		return Mars, nil
	case "jupiter":
		return Jupiter, nil
	default:
		return GravityModel{}, errors.Errorf("undefined gravity model '%s'", name)
	}
}

/* Definitions */

// EGM08 is Earth per EGM2008 and the default reference model.
var EGM08 = GravityModel{"Earth (EGM08)", 6378.137, 3.986004415e5, 1.0826261738522227e-3, -1.6198975999169731e-6}

// JGM3 is Earth per JGM-3, as used in Vallado.
var JGM3 = GravityModel{"Earth (JGM3)", 6378.1363, 3.986004415e5, 1.0826269e-3, -1.6204e-6}

// Mars is the vacation place.
var Mars = GravityModel{"Mars", 3396.19, 4.28283100e4, 1964e-6, -18e-6}

// Jupiter is big.
var Jupiter = GravityModel{"Jupiter", 71492.0, 1.266865361e8, 0.01475, -0.00058}
