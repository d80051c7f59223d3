package orbitprop

import (
	"time"

	"github.com/pkg/errors"
)

// J2Osculating adds the first order J2 short period terms to the elements of
// an owned J2Mean propagator. The corrections are evaluated at every call
// from the current mean elements and carry no state of their own.
type J2Osculating[T Float] struct {
	mean    *J2Mean[T]
	current Orbit[T]
}

// NewJ2Osculating returns a J2 osculating propagator. The provided orbit is
// taken as the mean elements at epoch.
func NewJ2Osculating[T Float](o Orbit[T], gm GravityModel, opts ...Option) (*J2Osculating[T], error) {
	p, err := newMeanPropagator("J2 osculating", o, J2, gm, opts)
	if err != nil {
		return nil, err
	}
	mean := &J2Mean[T]{p}
	osc, err := j2Osculate(mean.current, gm)
	if err != nil {
		return nil, errors.Wrap(err, "new J2 osculating propagator")
	}
	return &J2Osculating[T]{mean: mean, current: osc}, nil
}

// Propagate sets the elapsed time since epoch to t.
func (p *J2Osculating[T]) Propagate(t T) (Orbit[T], error) {
	m, err := p.mean.meanAt(t)
	if err != nil {
		return p.current, err
	}
	osc, err := j2Osculate(m, p.mean.gm)
	if err != nil {
		p.mean.metrics.failure(p.mean.name)
		return p.current, errors.Wrapf(err, "J2 osculating at t=%gs", float64(t))
	}
	p.mean.commit(t, m)
	p.current = osc
	return osc, nil
}

// Step advances the elapsed time by Δt.
func (p *J2Osculating[T]) Step(Δt T) (Orbit[T], error) {
	return p.Propagate(p.mean.elapsed + Δt)
}

// PropagateToEpoch propagates to the provided Julian date.
func (p *J2Osculating[T]) PropagateToEpoch(jd float64) (Orbit[T], error) {
	return p.Propagate(sinceEpoch[T](p.mean.initial.epoch, jd))
}

// Orbit returns the current osculating elements.
func (p *J2Osculating[T]) Orbit() Orbit[T] { return p.current }

// Mean returns the current mean elements.
func (p *J2Osculating[T]) Mean() Orbit[T] { return p.mean.current }

// Epoch returns the epoch of the initial elements.
func (p *J2Osculating[T]) Epoch() time.Time { return p.mean.initial.epoch }

// Elapsed returns the current time since epoch (s).
func (p *J2Osculating[T]) Elapsed() T { return p.mean.elapsed }

// j2Osculate returns the osculating elements of the mean elements m using
// Brouwer's first order J2 short period terms. The corrections of e, M and
// of i, Ω are recombined with Lyddane's variables so that small
// eccentricities and inclinations do not blow up.
func j2Osculate[T Float](m Orbit[T], gm GravityModel) (Orbit[T], error) {
	a, e, i, Ω, ω, M, f := m.Elements()
	al := a / T(gm.Radius)
	e2 := e * e
	η2 := 1 - e2
	η := sqrt(η2)
	η3 := η2 * η
	η6 := η3 * η3
	si, θ := sincos(i)
	θ2 := θ * θ
	γ2 := T(gm.J2) / (2 * al * al)
	γ2p := γ2 / (η2 * η2)

	sf, cf := sincos(f)
	ar := (1 + e*cf) / η2 // a/r
	ar3 := ar * ar * ar
	s2f, c2f := sincos(2*ω + 2*f)
	s1, c1 := sincos(2*ω + f)
	s3, c3 := sincos(2*ω + 3*f)
	ec := 3*cf + 3*e*cf*cf + e2*cf*cf*cf

	δa := a * γ2 * ((3*θ2-1)*(ar3-1/η3) + 3*(1-θ2)*ar3*c2f)
	δe := η2 / 2 * (γ2*((3*θ2-1)/η6*(e*η+e/(1+η)+ec)+3*(1-θ2)/η6*(e+ec)*c2f) - γ2p*(1-θ2)*(3*c1+c3))
	δi := γ2p / 2 * θ * si * (3*c2f + 3*e*c1 + e*c3)
	S := 3*s2f + 3*e*s1 + e*s3
	// Equation of the center.
	φ := wrapPi(f-M) + e*sf
	δΩ := -γ2p / 2 * θ * (6*φ - S)
	ρ2 := ar * ar * η2 // (a/r)²η²
	X := 2*(3*θ2-1)*(ρ2+ar+1)*sf + 3*(1-θ2)*((-ρ2-ar+1)*s1+(ρ2+ar+T(1.0/3))*s3)
	eδM := -η3 / 4 * γ2p * X
	// Correction of M+ω+Ω.
	δL := γ2p*X*η2*(e/(1+η))/4 + γ2p/4*(6*(5*θ2-1)*φ+(3-5*θ2)*S) + δΩ

	sM, cM := sincos(M)
	d1 := (e+δe)*sM + eδM*cM
	d2 := (e+δe)*cM - eδM*sM
	Mo := atan2(d1, d2)
	eo := sqrt(d1*d1 + d2*d2)

	sh, ch := sincos(i / 2)
	sΩ, cΩ := sincos(Ω)
	d3 := (sh+ch*δi/2)*sΩ + sh*δΩ*cΩ
	d4 := (sh+ch*δi/2)*cΩ - sh*δΩ*sΩ
	Ωo := atan2(d3, d4)
	x := sqrt(d3*d3 + d4*d4)
	if x > 1 {
		x = 1
	}
	io := 2 * asin(x)
	ωo := M + ω + Ω + δL - Mo - Ωo
	return NewOrbit(m.epoch, a+δa, eo, io, Ωo, ωo, Mo)
}
