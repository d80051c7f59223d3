package orbitprop

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
)

// Propagator advances an orbit from its epoch. Every call recomputes the
// state from the initial elements and the requested elapsed time (s), so
// Propagate(t) equals any sequence of Steps summing to t.
// A Propagator is not safe for concurrent use; construct one per goroutine.
type Propagator[T Float] interface {
	// Step advances the elapsed time by Δt, which may be negative.
	Step(Δt T) (Orbit[T], error)
	// Propagate sets the elapsed time since epoch to t.
	Propagate(t T) (Orbit[T], error)
	// PropagateToEpoch propagates to the provided Julian date.
	PropagateToEpoch(jd float64) (Orbit[T], error)
	// Orbit returns the current state.
	Orbit() Orbit[T]
	// Epoch returns the epoch of the initial elements.
	Epoch() time.Time
	// Elapsed returns the current time since epoch.
	Elapsed() T
}

// PropagateAll propagates to each elapsed time of ts, all measured from epoch.
// The propagator is left at the last time.
func PropagateAll[T Float](p Propagator[T], ts []T) ([]Orbit[T], error) {
	orbits := make([]Orbit[T], 0, len(ts))
	for _, t := range ts {
		o, err := p.Propagate(t)
		if err != nil {
			return orbits, err
		}
		orbits = append(orbits, o)
	}
	return orbits, nil
}

// PropagateToTime propagates to the provided time.
func PropagateToTime[T Float](p Propagator[T], dt time.Time) (Orbit[T], error) {
	return p.Propagate(T(dt.Sub(p.Epoch()).Seconds()))
}

// sinceEpoch returns the seconds between the epoch and the Julian date.
func sinceEpoch[T Float](epoch time.Time, jd float64) T {
	return T((jd - julian.TimeToJD(epoch)) * 86400)
}

func secondsToDuration[T Float](t T) time.Duration {
	return time.Duration(float64(t) * float64(time.Second))
}

type options struct {
	logger      log.Logger
	metrics     *Metrics
	dnO2, ddnO6 float64
}

// Option configures a propagator.
type Option func(*options)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records steps and solver statistics in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDrag sets the first and second time derivatives of the mean motion,
// divided by 2 and 6 (rad/s² and rad/s³), which model atmospheric drag as a
// secular decay. Only the J2 and J4 propagators use it.
func WithDrag(dnO2, ddnO6 float64) Option {
	return func(o *options) {
		o.dnO2 = dnO2
		o.ddnO6 = ddnO6
	}
}

func newOptions(opts []Option) options {
	o := options{logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// meanPropagator advances mean elements with constant secular rates.
// TwoBody, J2 and J4 differ only in their perturbation model.
type meanPropagator[T Float] struct {
	name    string
	model   Perturbation
	gm      GravityModel
	initial Orbit[T]
	rates   rates[T]
	// Drag
	δa, δe, dnO2, ddnO6 T

	elapsed T
	current Orbit[T]
	logger  log.Logger
	metrics *Metrics
}

func newMeanPropagator[T Float](name string, o Orbit[T], model Perturbation, gm GravityModel, opts []Option) (meanPropagator[T], error) {
	op := "new " + name + " propagator"
	if err := validateElements(op, o.a, o.e, o.i, o.Ω, o.ω, o.M); err != nil {
		return meanPropagator[T]{}, err
	}
	r, err := secularRates(op, o.a, o.e, o.i, model, gm)
	if err != nil {
		return meanPropagator[T]{}, err
	}
	cfg := newOptions(opts)
	p := meanPropagator[T]{
		name:    name,
		model:   model,
		gm:      gm,
		initial: o,
		rates:   r,
		current: o,
		logger:  log.With(cfg.logger, "subsys", "prop", "propagator", name),
		metrics: cfg.metrics,
	}
	if model != J0 && (cfg.dnO2 != 0 || cfg.ddnO6 != 0) {
		p.dnO2 = T(cfg.dnO2)
		p.ddnO6 = T(cfg.ddnO6)
		p.δa = -T(4.0/3) * o.a * p.dnO2 / r.n0
		p.δe = -T(4.0/3) * (1 - o.e) * p.dnO2 / r.n0
	}
	level.Debug(p.logger).Log("orbit", o, "n0", r.n0, "dM", r.δM, "dω", r.δω, "dΩ", r.δΩ, "da", p.δa, "de", p.δe)
	return p, nil
}

// meanAt computes the mean elements at t without changing the state.
func (p *meanPropagator[T]) meanAt(t T) (Orbit[T], error) {
	o := p.initial
	a := o.a + p.δa*t
	e := o.e + p.δe*t
	if !(a > 0) || !finite(a) {
		p.metrics.failure(p.name)
		return Orbit[T]{}, elementErr(p.name, "a", a)
	}
	// The linear decay overshoots circular orbits, which stay circular.
	if e < 0 {
		e = 0
	}
	if !(e < 1) {
		p.metrics.failure(p.name)
		return Orbit[T]{}, elementErr(p.name, "e", e)
	}
	M := WrapAngle(o.M + (p.rates.n0+p.rates.δM)*t + p.dnO2*t*t + p.ddnO6*t*t*t)
	E, iter, err := solveKepler(M, e)
	p.metrics.kepler(iter)
	if err != nil {
		p.metrics.failure(p.name)
		level.Warn(p.logger).Log("t", t, "err", err)
		return Orbit[T]{}, errors.Wrapf(err, "%s at t=%gs", p.name, float64(t))
	}
	return Orbit[T]{
		epoch: o.epoch.Add(secondsToDuration(t)),
		a:     a,
		e:     e,
		i:     o.i,
		Ω:     WrapAngle(o.Ω + p.rates.δΩ*t),
		ω:     WrapAngle(o.ω + p.rates.δω*t),
		M:     M,
		ν:     EccentricToTrueAnomaly(E, e),
	}, nil
}

func (p *meanPropagator[T]) commit(t T, o Orbit[T]) {
	p.elapsed = t
	p.current = o
	p.metrics.step(p.name)
}

// Propagate sets the elapsed time since epoch to t.
func (p *meanPropagator[T]) Propagate(t T) (Orbit[T], error) {
	o, err := p.meanAt(t)
	if err != nil {
		return p.current, err
	}
	p.commit(t, o)
	return o, nil
}

// Step advances the elapsed time by Δt.
func (p *meanPropagator[T]) Step(Δt T) (Orbit[T], error) {
	return p.Propagate(p.elapsed + Δt)
}

// PropagateToEpoch propagates to the provided Julian date.
func (p *meanPropagator[T]) PropagateToEpoch(jd float64) (Orbit[T], error) {
	return p.Propagate(sinceEpoch[T](p.initial.epoch, jd))
}

// Orbit returns the current mean elements.
func (p *meanPropagator[T]) Orbit() Orbit[T] { return p.current }

// Epoch returns the epoch of the initial elements.
func (p *meanPropagator[T]) Epoch() time.Time { return p.initial.epoch }

// Elapsed returns the current time since epoch (s).
func (p *meanPropagator[T]) Elapsed() T { return p.elapsed }

// Rates returns the secular rates of the mean anomaly, argument of periapsis
// and RAAN (rad/s), on top of the unperturbed mean motion n0.
func (p *meanPropagator[T]) Rates() (n0, δM, δω, δΩ T) {
	return p.rates.n0, p.rates.δM, p.rates.δω, p.rates.δΩ
}
