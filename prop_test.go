package orbitprop

import (
	"fmt"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
	"gonum.org/v1/gonum/floats/scalar"
)

type propagatorCase struct {
	name string
	new  func(o Orbit[float64], opts ...Option) (Propagator[float64], error)
}

var propagatorCases = []propagatorCase{
	{"two-body", func(o Orbit[float64], opts ...Option) (Propagator[float64], error) {
		return NewTwoBody(o, EGM08, opts...)
	}},
	{"J2", func(o Orbit[float64], opts ...Option) (Propagator[float64], error) {
		return NewJ2Mean(o, EGM08, opts...)
	}},
	{"J2 osculating", func(o Orbit[float64], opts ...Option) (Propagator[float64], error) {
		return NewJ2Osculating(o, EGM08, opts...)
	}},
	{"J4", func(o Orbit[float64], opts ...Option) (Propagator[float64], error) {
		return NewJ4Mean(o, EGM08, opts...)
	}},
}

func elementsWithin(o1, o2 Orbit[float64], tol float64) error {
	a1, e1, i1, Ω1, ω1, M1, ν1 := o1.Elements()
	a2, e2, i2, Ω2, ω2, M2, ν2 := o2.Elements()
	if !scalar.EqualWithinAbs(a1, a2, tol*a1) {
		return fmt.Errorf("a: %.12f != %.12f", a1, a2)
	}
	if !scalar.EqualWithinAbs(e1, e2, tol) {
		return fmt.Errorf("e: %.12f != %.12f", e1, e2)
	}
	for _, ang := range []struct {
		name string
		x, y float64
	}{{"i", i1, i2}, {"Ω", Ω1, Ω2}, {"ω", ω1, ω2}, {"M", M1, M2}, {"ν", ν1, ν2}} {
		if !anglesWithin(ang.x, ang.y, tol) {
			return fmt.Errorf("%s: %.12f != %.12f", ang.name, ang.x, ang.y)
		}
	}
	return nil
}

func TestStepMatchesPropagate(t *testing.T) {
	o := referenceOrbit(t)
	for _, pc := range propagatorCases {
		p1, err := pc.new(o)
		if err != nil {
			t.Fatalf("[%s] %s", pc.name, err)
		}
		p2, _ := pc.new(o)
		final, err := p1.Propagate(3600)
		if err != nil {
			t.Fatalf("[%s] %s", pc.name, err)
		}
		var stepped Orbit[float64]
		for k := 0; k < 60; k++ {
			if stepped, err = p2.Step(60); err != nil {
				t.Fatalf("[%s] step %d: %s", pc.name, k, err)
			}
		}
		if p2.Elapsed() != 3600 {
			t.Fatalf("[%s] elapsed %f after 60 steps of 60 s", pc.name, p2.Elapsed())
		}
		if err := elementsWithin(final, stepped, 1e-12); err != nil {
			t.Fatalf("[%s] stepping differs from propagating: %s", pc.name, err)
		}
		if !final.Epoch().Equal(o.Epoch().Add(3600e9)) {
			t.Fatalf("[%s] epoch %s", pc.name, final.Epoch())
		}
		if p1.Epoch() != o.Epoch() {
			t.Fatalf("[%s] initial epoch changed to %s", pc.name, p1.Epoch())
		}
		// And back again.
		back, err := p2.Step(-3600)
		if err != nil {
			t.Fatalf("[%s] %s", pc.name, err)
		}
		start, _ := pc.new(o)
		if err := elementsWithin(back, start.Orbit(), 1e-12); err != nil {
			t.Fatalf("[%s] backward step does not return to epoch: %s", pc.name, err)
		}
	}
}

func TestPropagateToEpoch(t *testing.T) {
	o := referenceOrbit(t)
	jd := julian.TimeToJD(o.Epoch()) + 1
	for _, pc := range propagatorCases {
		p1, _ := pc.new(o)
		p2, _ := pc.new(o)
		o1, err := p1.PropagateToEpoch(jd)
		if err != nil {
			t.Fatalf("[%s] %s", pc.name, err)
		}
		o2, _ := p2.Propagate(86400)
		if err := elementsWithin(o1, o2, 1e-6); err != nil {
			t.Fatalf("[%s] %s", pc.name, err)
		}
		if !scalar.EqualWithinAbs(p1.Elapsed(), 86400, 1e-3) {
			t.Fatalf("[%s] elapsed %f", pc.name, p1.Elapsed())
		}
		o3, err := PropagateToTime(p2, o.Epoch().Add(-3600e9))
		if err != nil {
			t.Fatalf("[%s] %s", pc.name, err)
		}
		if p2.Elapsed() != -3600 || !o3.Epoch().Equal(o.Epoch().Add(-3600e9)) {
			t.Fatalf("[%s] PropagateToTime went to %f s (%s)", pc.name, p2.Elapsed(), o3.Epoch())
		}
	}
}

func TestPropagateAll(t *testing.T) {
	o := referenceOrbit(t)
	p, _ := NewJ4Mean(o, EGM08)
	ts := []float64{0, 600, 1200, -600, 86400}
	orbits, err := PropagateAll[float64](p, ts)
	if err != nil {
		t.Fatal(err)
	}
	if len(orbits) != len(ts) {
		t.Fatalf("got %d orbits", len(orbits))
	}
	if p.Elapsed() != 86400 {
		t.Fatalf("propagator left at %f", p.Elapsed())
	}
	for k, tk := range ts {
		single, _ := NewJ4Mean(o, EGM08)
		exp, _ := single.Propagate(tk)
		if err := elementsWithin(orbits[k], exp, 1e-12); err != nil {
			t.Fatalf("t=%f: %s", tk, err)
		}
	}
}

func TestTwoBodyPeriod(t *testing.T) {
	o := referenceOrbit(t)
	p, _ := NewTwoBody(o, EGM08)
	period, _ := OrbitalPeriodOfOrbit(o, J0, EGM08)
	after, err := p.Propagate(period)
	if err != nil {
		t.Fatal(err)
	}
	if err := elementsWithin(o, after, 1e-9); err != nil {
		t.Fatalf("two body orbit not closed: %s", err)
	}
	// Drag is ignored without perturbations.
	pd, _ := NewTwoBody(o, EGM08, WithDrag(1e-12, 0))
	after, _ = pd.Propagate(86400)
	if after.SemiMajorAxis() != o.SemiMajorAxis() {
		t.Fatalf("two body propagator decayed to %f", after.SemiMajorAxis())
	}
}

func TestMeanRates(t *testing.T) {
	o := referenceOrbit(t)
	for _, model := range []Perturbation{J2, J4} {
		var p Propagator[float64]
		if model == J2 {
			p, _ = NewJ2Mean(o, EGM08)
		} else {
			p, _ = NewJ4Mean(o, EGM08)
		}
		dΩ, _ := RAANTimeDerivativeOfOrbit(o, model, EGM08)
		n, _ := OrbitalAngularVelocityOfOrbit(o, model, EGM08)
		after, err := p.Propagate(86400)
		if err != nil {
			t.Fatal(err)
		}
		if ok, err := anglesEqual(after.RAAN(), o.RAAN()+dΩ*86400); !ok {
			t.Fatalf("[%s] RAAN %s", model, err)
		}
		if ok, err := anglesEqual(after.ArgLatitude()-after.TrueAnomaly()+after.MeanAnomaly(), o.ArgPeriapsis()+o.MeanAnomaly()+n*86400); !ok {
			t.Fatalf("[%s] mean argument of latitude %s", model, err)
		}
		if after.SemiMajorAxis() != o.SemiMajorAxis() || after.Eccentricity() != o.Eccentricity() || after.Inclination() != o.Inclination() {
			t.Fatalf("[%s] a, e or i changed without drag", model)
		}
	}
	p, _ := NewJ2Mean(o, EGM08)
	n0, δM, δω, δΩ := p.Rates()
	if n0 <= 0 || δM == 0 || δω == 0 || δΩ <= 0 {
		t.Fatalf("unexpected rates n0=%e δM=%e δω=%e δΩ=%e", n0, δM, δω, δΩ)
	}
}

func TestDragDecay(t *testing.T) {
	o := referenceOrbit(t)
	p, err := NewJ2Mean(o, EGM08, WithDrag(1e-13, 0))
	if err != nil {
		t.Fatal(err)
	}
	prev := o
	for day := 1; day <= 5; day++ {
		cur, err := p.Propagate(float64(day) * 86400)
		if err != nil {
			t.Fatal(err)
		}
		if cur.SemiMajorAxis() >= prev.SemiMajorAxis() {
			t.Fatalf("day %d: a=%f did not decay from %f", day, cur.SemiMajorAxis(), prev.SemiMajorAxis())
		}
		if cur.Eccentricity() >= prev.Eccentricity() {
			t.Fatalf("day %d: e=%f did not decay from %f", day, cur.Eccentricity(), prev.Eccentricity())
		}
		prev = cur
	}
}

func TestFailedPropagationKeepsState(t *testing.T) {
	o := referenceOrbit(t)
	for _, pc := range propagatorCases[1:] {
		p, _ := pc.new(o, WithDrag(1e-8, 0))
		before, err := p.Propagate(60)
		if err != nil {
			t.Fatalf("[%s] %s", pc.name, err)
		}
		got, err := p.Propagate(1e5)
		if !errors.Is(err, ErrInvalidElement) {
			t.Fatalf("[%s] expected the orbit to decay below zero, got %v", pc.name, err)
		}
		if got != before || p.Orbit() != before || p.Elapsed() != 60 {
			t.Fatalf("[%s] state changed on error", pc.name)
		}
	}
}

func TestDragCircularOrbit(t *testing.T) {
	for _, tc := range []struct {
		e, dnO2, days float64
	}{
		{0, 1e-14, 5},
		{1e-4, 1e-12, 2},
	} {
		o, err := NewOrbit(testEpoch, 7000.0, tc.e, Deg2rad(51.6), 0, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		for _, pc := range propagatorCases[1:] {
			p, err := pc.new(o, WithDrag(tc.dnO2, 0))
			if err != nil {
				t.Fatal(err)
			}
			for _, dt := range []float64{1, 3600, 86400, tc.days * 86400} {
				got, err := p.Propagate(dt)
				if err != nil {
					t.Fatalf("[%s] e0=%g t=%gs: %s", pc.name, tc.e, dt, err)
				}
				if got.SemiMajorAxis() >= o.SemiMajorAxis()+20 || got.Eccentricity() < 0 {
					t.Fatalf("[%s] e0=%g t=%gs: %s", pc.name, tc.e, dt, got)
				}
			}
		}
		// The mean eccentricity decays to zero and stays there.
		for _, p := range []interface {
			Propagate(float64) (Orbit[float64], error)
		}{mustJ2Mean(t, o, WithDrag(tc.dnO2, 0)), mustJ4Mean(t, o, WithDrag(tc.dnO2, 0))} {
			got, _ := p.Propagate(tc.days * 86400)
			if got.Eccentricity() != 0 || got.SemiMajorAxis() >= o.SemiMajorAxis() {
				t.Fatalf("e0=%g: mean elements %s after %g days", tc.e, got, tc.days)
			}
		}
	}
}

func mustJ2Mean(t *testing.T, o Orbit[float64], opts ...Option) *J2Mean[float64] {
	t.Helper()
	p, err := NewJ2Mean(o, EGM08, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func mustJ4Mean(t *testing.T, o Orbit[float64], opts ...Option) *J4Mean[float64] {
	t.Helper()
	p, err := NewJ4Mean(o, EGM08, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestHighEccentricity(t *testing.T) {
	for _, e := range []float64{0.99, 0.999} {
		// Periapsis radius of 7000 km.
		a := 7000 / (1 - e)
		o, err := NewOrbit(testEpoch, a, e, Deg2rad(refInc), Deg2rad(30), Deg2rad(40), 0)
		if err != nil {
			t.Fatal(err)
		}
		period := 2 * math.Pi * math.Sqrt(a*a*a/EGM08.GM())
		for _, pc := range propagatorCases {
			p, err := pc.new(o)
			if err != nil {
				t.Fatalf("[%s] e=%f: %s", pc.name, e, err)
			}
			for k := 0; k <= 720; k++ {
				dt := float64(k) * period / 720
				got, err := p.Propagate(dt)
				if err != nil {
					t.Fatalf("[%s] e=%f t=%fs: %s", pc.name, e, dt, err)
				}
				if ge := got.Eccentricity(); !(ge > 0 && ge < 1) {
					t.Fatalf("[%s] e=%f t=%fs: e=%f", pc.name, e, dt, ge)
				}
				if M := TrueToMeanAnomaly(got.TrueAnomaly(), got.Eccentricity()); !anglesWithin(M, got.MeanAnomaly(), 1e-6) {
					t.Fatalf("[%s] e=%f t=%fs: ν=%f inconsistent with M=%f", pc.name, e, dt, got.TrueAnomaly(), got.MeanAnomaly())
				}
			}
		}
	}
}

func TestNoConvergenceKeepsState(t *testing.T) {
	o := referenceOrbit(t)
	props := make([]Propagator[float64], len(propagatorCases))
	for k, pc := range propagatorCases {
		props[k], _ = pc.new(o)
		if _, err := props[k].Propagate(60); err != nil {
			t.Fatal(err)
		}
	}
	lowerIterationCaps(t, 1, maxSMAIterations)
	for k, p := range props {
		before := p.Orbit()
		got, err := p.Propagate(120)
		if !errors.Is(err, ErrNoConvergence) {
			t.Fatalf("[%s] expected ErrNoConvergence, got %v", propagatorCases[k].name, err)
		}
		if got != before || p.Orbit() != before || p.Elapsed() != 60 {
			t.Fatalf("[%s] state changed on error", propagatorCases[k].name)
		}
	}
}

func TestInvalidPropagator(t *testing.T) {
	for _, pc := range propagatorCases {
		if _, err := pc.new(Orbit[float64]{}); !errors.Is(err, ErrInvalidElement) {
			t.Fatalf("[%s] zero orbit accepted: %v", pc.name, err)
		}
	}
	o := referenceOrbit(t)
	if _, err := NewJ4Mean(o, GravityModel{Name: "nothing"}); !errors.Is(err, ErrInvalidElement) {
		t.Fatalf("invalid gravity model accepted: %v", err)
	}
}

func TestPropagatorFloat32(t *testing.T) {
	o64 := referenceOrbit(t)
	a, e, i, Ω, ω, M, _ := o64.Elements()
	o32, err := NewOrbit(o64.Epoch(), float32(a), float32(e), float32(i), float32(Ω), float32(ω), float32(M))
	if err != nil {
		t.Fatal(err)
	}
	p32, err := NewJ2Osculating(o32, EGM08)
	if err != nil {
		t.Fatal(err)
	}
	p64, _ := NewJ2Osculating(o64, EGM08)
	var p Propagator[float32] = p32
	got, err := p.Propagate(3600)
	if err != nil {
		t.Fatal(err)
	}
	exp, _ := p64.Propagate(3600)
	if !scalar.EqualWithinAbs(float64(got.SemiMajorAxis()), exp.SemiMajorAxis(), 1e-2) {
		t.Fatalf("float32 a=%f, float64 a=%f", got.SemiMajorAxis(), exp.SemiMajorAxis())
	}
	if !anglesWithin(float64(got.ArgLatitude()), exp.ArgLatitude(), 1e-4) {
		t.Fatalf("float32 u=%f, float64 u=%f", got.ArgLatitude(), exp.ArgLatitude())
	}
}

// j2Acceleration is the two body plus J2 acceleration (km/s²).
func j2Acceleration(r []float64, gm GravityModel) []float64 {
	x, y, z := r[0], r[1], r[2]
	rn := norm(r)
	k := -gm.GM() / (rn * rn * rn)
	f := 1.5 * gm.J2 * gm.GM() * gm.Radius * gm.Radius / math.Pow(rn, 5)
	z2 := (z / rn) * (z / rn)
	return []float64{k*x + f*x*(5*z2-1), k*y + f*y*(5*z2-1), k*z + f*z*(5*z2-3)}
}

// rk4 integrates the J2 equations of motion by one step of h seconds.
func rk4(s []float64, h float64, gm GravityModel) []float64 {
	deriv := func(s []float64) []float64 {
		return append(append([]float64{}, s[3:]...), j2Acceleration(s[:3], gm)...)
	}
	add := func(s, k []float64, h float64) []float64 {
		o := make([]float64, 6)
		for j := range o {
			o[j] = s[j] + h*k[j]
		}
		return o
	}
	k1 := deriv(s)
	k2 := deriv(add(s, k1, h/2))
	k3 := deriv(add(s, k2, h/2))
	k4 := deriv(add(s, k3, h))
	o := make([]float64, 6)
	for j := range o {
		o[j] = s[j] + h/6*(k1[j]+2*k2[j]+2*k3[j]+k4[j])
	}
	return o
}

func TestJ2OsculatingVersusIntegration(t *testing.T) {
	for _, tc := range []struct{ a, e, i float64 }{
		{7130.982, 0.001111, 98.405},
		{8000, 0.05, 45},
		{7000, 0.01, 63},
	} {
		mean, err := NewOrbit(testEpoch, tc.a, tc.e, Deg2rad(tc.i), Deg2rad(30), Deg2rad(40), Deg2rad(10))
		if err != nil {
			t.Fatal(err)
		}
		osc, err := NewJ2Osculating(mean, EGM08)
		if err != nil {
			t.Fatal(err)
		}
		meanOnly, _ := NewJ2Mean(mean, EGM08)
		R, V := osc.Orbit().RV(EGM08)
		state := append(R, V...)
		var worstOsc, worstMean float64
		const h = 10.0
		for k := 1; k <= 1200; k++ {
			state = rk4(state, h, EGM08)
			if k%60 != 0 {
				continue
			}
			tk := float64(k) * h
			o, err := osc.Propagate(tk)
			if err != nil {
				t.Fatal(err)
			}
			m, _ := meanOnly.Propagate(tk)
			Ro, _ := o.RV(EGM08)
			Rm, _ := m.RV(EGM08)
			dOsc := norm([]float64{Ro[0] - state[0], Ro[1] - state[1], Ro[2] - state[2]})
			dMean := norm([]float64{Rm[0] - state[0], Rm[1] - state[1], Rm[2] - state[2]})
			worstOsc = math.Max(worstOsc, dOsc)
			worstMean = math.Max(worstMean, dMean)
		}
		if worstOsc > 0.5 {
			t.Fatalf("a=%f e=%f i=%f: osculating position off by %f km", tc.a, tc.e, tc.i, worstOsc)
		}
		if worstMean < 1 {
			t.Fatalf("a=%f e=%f i=%f: mean elements only %f km off, short period terms untested", tc.a, tc.e, tc.i, worstMean)
		}
		if osc.Mean() != meanOnly.Orbit() {
			t.Fatalf("osculating propagator mean state %s differs from %s", osc.Mean(), meanOnly.Orbit())
		}
	}
}
