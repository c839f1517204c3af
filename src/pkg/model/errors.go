package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a surface or object id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrOrderOutOfRange is returned when a layer order is outside (0, max].
	ErrOrderOutOfRange = errors.New("layer order out of range")
	// ErrFeatureDisabled is returned when a required collaborator is missing.
	ErrFeatureDisabled = errors.New("feature disabled")
)

// ValidationError rejects an operation that would break a model invariant.
// The operation has no effect.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

// NewValidationError formats a ValidationError.
func NewValidationError(op, format string, args ...interface{}) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// GeometryWarning accompanies a best-effort result of a geometric operation
// on degenerate input. The result is still valid to use.
type GeometryWarning struct {
	Op     string
	Reason string
}

func (e *GeometryWarning) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// NewGeometryWarning formats a GeometryWarning.
func NewGeometryWarning(op, format string, args ...interface{}) error {
	return &GeometryWarning{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsWarning reports whether err is only a GeometryWarning.
func IsWarning(err error) bool {
	var w *GeometryWarning
	return errors.As(err, &w)
}
