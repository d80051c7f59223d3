package orbitprop

// J2Mean propagates mean elements with the first order secular effects of
// J2: the RAAN, the argument of periapsis and the mean anomaly drift
// linearly. With WithDrag, the semi-major axis and eccentricity decay
// linearly and the mean anomaly gains quadratic and cubic terms.
type J2Mean[T Float] struct {
	meanPropagator[T]
}

// NewJ2Mean returns a J2 mean element propagator of o, taken as mean elements.
func NewJ2Mean[T Float](o Orbit[T], gm GravityModel, opts ...Option) (*J2Mean[T], error) {
	p, err := newMeanPropagator("J2", o, J2, gm, opts)
	if err != nil {
		return nil, err
	}
	return &J2Mean[T]{p}, nil
}
