package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions.
//
// These are programming-contract violations. Expected numeric non-results
// (circular references, division by zero, ...) never travel as errors; they
// are problem sentinels carried inside evaluation results.
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnitNotFound     = fmt.Errorf("%w: unit", ErrNotFound)
	ErrConstantNotFound = fmt.Errorf("%w: constant", ErrNotFound)
	ErrTableNotFound    = fmt.Errorf("%w: lookup table", ErrNotFound)
	ErrQuantityNotFound = fmt.Errorf("%w: quantity", ErrNotFound)
	ErrReceptorNotFound = fmt.Errorf("%w: risk receptor", ErrNotFound)

	// Contract violations
	ErrContract               = errors.New("contract violation")
	ErrUnsupported            = fmt.Errorf("%w: operation not supported by quantity kind", ErrContract)
	ErrMissingDefaultScenario = fmt.Errorf("%w: default scenario key missing", ErrContract)
	ErrUnknownCategory        = fmt.Errorf("%w: category not in dimension", ErrContract)
	ErrMalformedTable         = fmt.Errorf("%w: malformed lookup table access", ErrContract)
	ErrUnknownKind            = fmt.Errorf("%w: unknown quantity kind", ErrContract)
	ErrDuplicate              = fmt.Errorf("%w: duplicate registration", ErrContract)

	// Conversion errors
	ErrNoConversionFactor = errors.New("no conversion factor")
)

// NewNotFoundError wraps ErrNotFound with the resource and its id.
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewUnsupportedError reports an operation a quantity kind refuses.
func NewUnsupportedError(operation, kind string) error {
	return fmt.Errorf("%w: %s on %s quantity", ErrUnsupported, operation, kind)
}

// NewConversionError reports a missing edge in the unit conversion graph.
func NewConversionError(from, to string) error {
	return fmt.Errorf("%w from %s to %s", ErrNoConversionFactor, from, to)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsContractError(err error) bool {
	return errors.Is(err, ErrContract)
}

func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}
