package orbitprop

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Perturbation selects the zonal harmonic fidelity of every formula and
// propagator. The value is the degree of the highest zonal term.
type Perturbation uint8

const (
	// J0 is unperturbed Keplerian motion.
	J0 Perturbation = 0
	// J2 includes the first order secular effect of Earth's oblateness.
	J2 Perturbation = 2
	// J4 adds the J2² and J4 secular terms.
	J4 Perturbation = 4
)

// String implements the Stringer interface.
func (p Perturbation) String() string {
	if p == J0 {
		return "unperturbed"
	}
	return fmt.Sprintf("J%d", uint8(p))
}

// Validate returns a *ModelError for anything but J0, J2 and J4.
// Odd harmonics have no secular effect on these quantities and are rejected.
func (p Perturbation) Validate(op string) error {
	switch p {
	case J0, J2, J4:
		return nil
	default:
		return &ModelError{Op: op, Model: p}
	}
}

// ParsePerturbation returns the model from its symbolic name.
func ParsePerturbation(name string) (Perturbation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "unperturbed", "j0", "twobody", "two-body":
		return J0, nil
	case "j2":
		return J2, nil
	case "j4":
		return J4, nil
	}
	var n uint8
	if _, err := fmt.Sscanf(strings.ToUpper(strings.TrimSpace(name)), "J%d", &n); err == nil {
		return Perturbation(n), &ModelError{Op: "parse", Model: Perturbation(n)}
	}
	return J0, errors.Errorf("parse: unknown perturbation model %q", name)
}
