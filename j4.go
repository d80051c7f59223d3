package orbitprop

// J4Mean is the J2 mean element propagator with the J2² and J4 secular terms.
type J4Mean[T Float] struct {
	meanPropagator[T]
}

// NewJ4Mean returns a J4 mean element propagator of o, taken as mean elements.
func NewJ4Mean[T Float](o Orbit[T], gm GravityModel, opts ...Option) (*J4Mean[T], error) {
	p, err := newMeanPropagator("J4", o, J4, gm, opts)
	if err != nil {
		return nil, err
	}
	return &J4Mean[T]{p}, nil
}
