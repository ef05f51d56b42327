/*
errors.go - Error taxonomy for the simulation core

PURPOSE:
  Every failure the core can produce belongs to one of four kinds. The
  boundary layer maps each kind to its own response category and never
  mixes partial results with an error.

ERROR CATEGORIES:
  1. Forbidden     - identity lacks the required capability
  2. NotFound      - attendance or coefficient does not exist
  3. AmbiguousData - more than one coefficient for a unique key
  4. InvalidInput  - a numeric field is outside its domain

  Anything else (store failures, timeouts) is an internal error.

USAGE:
    if errors.Is(err, simulation.ErrNotFound) { ... }

    var inv *simulation.InvalidInputError
    if errors.As(err, &inv) {
        fmt.Println(inv.Field)
    }

SEE ALSO:
  - api/errors.go: Kind → HTTP status mapping
*/
package simulation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrForbidden is returned when the identity may not simulate.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when an attendance or coefficient is missing.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousData is returned when the store yields several coefficients
	// for one (bank, installments) pair. Operators must fix the data.
	ErrAmbiguousData = errors.New("ambiguous data")

	// ErrInvalidInput is returned when an input field violates its constraint.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidInputError names the offending field. Field uses the wire name
// (e.g. "saldo_devedor") since it is shown to the caller.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError identifies which resource was missing.
type NotFoundError struct {
	Resource string // "attendance" or "coefficient"
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AmbiguousDataError reports a uniqueness violation in coefficient data.
type AmbiguousDataError struct {
	Bank         string
	Installments int
	Matches      int
}

func (e *AmbiguousDataError) Error() string {
	return fmt.Sprintf("ambiguous data: %d coefficients for bank %q with %d installments",
		e.Matches, e.Bank, e.Installments)
}

func (e *AmbiguousDataError) Unwrap() error {
	return ErrAmbiguousData
}

// ForbiddenError carries the denial reason. Subject is kept for logs only
// and is not part of the message.
type ForbiddenError struct {
	Subject string
	Reason  string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// ErrorKind classifies an error for the boundary layer.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindForbidden
	KindNotFound
	KindAmbiguousData
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindAmbiguousData:
		return "ambiguous_data"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// KindOf returns the kind of err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAmbiguousData):
		return KindAmbiguousData
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden returns true if the error is an authorization denial.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
