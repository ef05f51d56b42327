package simulation

import (
	"context"
	"fmt"
	"strings"
)

// Resolver looks up the single coefficient for a bank and term.
type Resolver struct {
	store CoefficientStore
}

// NewResolver creates a Resolver reading from store.
func NewResolver(store CoefficientStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the coefficient for (bank, installments). Zero matches is
// a NotFoundError and more than one is an AmbiguousDataError; the first
// match is never picked silently. Store errors are returned wrapped and
// are not retried. Surrounding space in bank is ignored.
func (r *Resolver) Resolve(ctx context.Context, bank string, installments int) (Coefficient, error) {
	bank = strings.TrimSpace(bank)
	if bank == "" {
		return Coefficient{}, &InvalidInputError{Field: FieldBank, Reason: "must not be empty"}
	}
	if installments <= 0 {
		return Coefficient{}, &InvalidInputError{Field: FieldInstallments, Reason: "must be a positive integer"}
	}

	matches, err := r.store.FindCoefficients(ctx, bank, installments)
	if err != nil {
		return Coefficient{}, fmt.Errorf("find coefficient %s/%d: %w", bank, installments, err)
	}

	switch len(matches) {
	case 0:
		return Coefficient{}, &NotFoundError{
			Resource: "coefficient",
			Key:      fmt.Sprintf("%s/%d", bank, installments),
		}
	case 1:
		return matches[0], nil
	default:
		return Coefficient{}, &AmbiguousDataError{
			Bank:         bank,
			Installments: installments,
			Matches:      len(matches),
		}
	}
}
