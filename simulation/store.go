/*
store.go - Read interfaces the core consumes

PURPOSE:
  The core never writes. It needs one attendance by id and the
  coefficients matching a (bank, installments) key. Writers (import,
  attendance creation) live on the concrete stores.

CONTRACT:
  GetAttendance returns (nil, nil) when the id does not exist, the same
  convention store/sqlite uses for every Get.

  FindCoefficients returns every row matching the key. Implementations
  backed by a uniqueness constraint may stop after two rows; the resolver
  only needs to tell zero, one and many apart.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:     Production
  - simulation/store/memory.go: Tests and dev
  - cache/coefficients.go:      Read-through cache decorator
*/
package simulation

import "context"

// AttendanceStore reads attendance records.
type AttendanceStore interface {
	GetAttendance(ctx context.Context, id AttendanceID) (*Attendance, error)
}

// CoefficientStore reads coefficient records.
type CoefficientStore interface {
	FindCoefficients(ctx context.Context, bank string, installments int) ([]Coefficient, error)
}
