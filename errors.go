package orbitprop

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidModel matches any *ModelError.
	ErrInvalidModel = errors.New("invalid perturbation model")
	// ErrInvalidElement matches any *ElementError.
	ErrInvalidElement = errors.New("invalid orbital element")
	// ErrNoConvergence matches any *ConvergenceError.
	ErrNoConvergence = errors.New("no convergence")
)

// ModelError is returned when an operation receives a perturbation model it
// does not support (e.g. J3).
type ModelError struct {
	Op    string
	Model Perturbation
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: unsupported perturbation model %s", e.Op, e.Model)
}

// Is allows errors.Is(err, ErrInvalidModel).
func (e *ModelError) Is(target error) bool {
	return target == ErrInvalidModel
}

// ElementError is returned when an orbital element or a gravity constant is
// out of range.
type ElementError struct {
	Op    string
	Param string
	Value float64
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("%s: invalid %s=%g", e.Op, e.Param, e.Value)
}

// Is allows errors.Is(err, ErrInvalidElement).
func (e *ElementError) Is(target error) bool {
	return target == ErrInvalidElement
}

// ConvergenceError is returned when an iterative solver hits its iteration
// cap before meeting its tolerance. The partial estimate is never returned.
type ConvergenceError struct {
	Op         string
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: no convergence after %d iterations (residual %g)", e.Op, e.Iterations, e.Residual)
}

// Is allows errors.Is(err, ErrNoConvergence).
func (e *ConvergenceError) Is(target error) bool {
	return target == ErrNoConvergence
}

func elementErr[T Float](op, param string, v T) error {
	return &ElementError{Op: op, Param: param, Value: float64(v)}
}
