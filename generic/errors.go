/*
errors.go - Centralized error types for the statistics engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Packages built on top of the engine should wrap these errors with
  additional context.

ERROR CATEGORIES:
  1. Query errors - Invalid arguments to read operations (quantile range)
  2. Merge errors - Folding accumulators of different families
  3. Descriptor errors - Unknown or malformed accumulator recipes

WHAT IS NOT AN ERROR:
  Reading variance, stddev or quantiles from an accumulator that has seen
  too few observations returns NaN. A retirement metric for a life that
  never retired is an expected, common state.

USAGE:
  q, err := hist.Quantile(1.5)
  if errors.Is(err, generic.ErrInvalidQuantile) {
      // caller passed q outside [0, 1]
  }

SEE ALSO:
  - quantile.go: Returns QuantileRangeError
  - descriptor.go: Returns ErrUnknownKind / ErrInvalidDescriptor
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidQuantile is returned when a quantile outside [0, 1] is requested.
	ErrInvalidQuantile = errors.New("quantile should be a number between 0 and 1, inclusive")

	// ErrKindMismatch is returned when merging accumulators of different kinds.
	ErrKindMismatch = errors.New("accumulator kind mismatch")

	// ErrUnknownKind is returned when a descriptor names an unregistered kind.
	ErrUnknownKind = errors.New("unknown accumulator kind")

	// ErrInvalidDescriptor is returned when descriptor arguments are out of range.
	ErrInvalidDescriptor = errors.New("invalid accumulator descriptor")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// QuantileRangeError reports the rejected quantile.
type QuantileRangeError struct {
	Q float64
}

func (e *QuantileRangeError) Error() string {
	return fmt.Sprintf("invalid quantile %v: %v", e.Q, ErrInvalidQuantile)
}

func (e *QuantileRangeError) Unwrap() error {
	return ErrInvalidQuantile
}

// KindMismatchError describes an attempted merge across families.
type KindMismatchError struct {
	Want Kind
	Got  Kind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("cannot merge %s accumulator into %s accumulator", e.Got, e.Want)
}

func (e *KindMismatchError) Unwrap() error {
	return ErrKindMismatch
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuantile) ||
		errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrInvalidDescriptor)
}

func mismatch(want Kind, other Accumulator) error {
	got := Kind("nil")
	if other != nil {
		got = other.Kind()
	}
	return &KindMismatchError{Want: want, Got: got}
}
