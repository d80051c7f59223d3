package orbitprop

// TwoBody is the unperturbed Keplerian propagator: only the mean anomaly
// moves, at n0 = √(μ/a³).
type TwoBody[T Float] struct {
	meanPropagator[T]
}

// NewTwoBody returns a two body propagator of o around gm.
// Drag options are ignored.
func NewTwoBody[T Float](o Orbit[T], gm GravityModel, opts ...Option) (*TwoBody[T], error) {
	p, err := newMeanPropagator("two-body", o, J0, gm, opts)
	if err != nil {
		return nil, err
	}
	return &TwoBody[T]{p}, nil
}
