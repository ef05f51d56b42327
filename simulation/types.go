/*
Package simulation provides the loan-restructuring simulation core.

PURPOSE:
  Given an attendance (a customer service case), a bank, an installment
  count and the customer's outstanding figures, the core resolves the
  bank's coefficient and computes the periodic installment. Access is
  gated by a capability check on the requesting identity.

KEY CONCEPTS IN THIS FILE (types.go):
  - Input:       Caller-supplied figures for one simulation
  - Result:      Computed values, full precision until the output boundary
  - Coefficient: Bank + installment-count multiplier
  - Attendance:  The customer case being simulated (read-only here)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64
  2. Statelessness: nothing is cached or persisted by the core
  3. Rounding only at the boundary (Result.Rounded)

SEE ALSO:
  - engine.go:   The financial formula
  - resolver.go: Coefficient lookup
  - policy.go:   Capability-based authorization
  - service.go:  Composed authorize → resolve → simulate flow
*/
package simulation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places money values are rounded to
// when leaving the core.
const MoneyPlaces = 2

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AttendanceID int64
type CoefficientID int64

// =============================================================================
// EXTERNAL RECORDS
// =============================================================================

// Attendance is a customer case. Its lifecycle belongs to the attendance
// store; the core only reads ID, Bank and AssignedTo.
type Attendance struct {
	ID           AttendanceID
	TaxID        string // cpf
	Registration string // matricula
	Bank         string
	AssignedTo   string // subject of the assigned operator, empty when unassigned
}

// Coefficient converts an adjusted balance into a periodic installment for
// one bank and term.
type Coefficient struct {
	ID           CoefficientID
	Bank         string
	Installments int
	Value        decimal.Decimal
}

// =============================================================================
// SIMULATION INPUT / RESULT
// =============================================================================

// Input holds the figures for one simulation. It is never persisted.
type Input struct {
	Bank               string
	Installments       int
	OutstandingBalance decimal.Decimal
	InsuranceFee       decimal.Decimal
	OverheadPercentage decimal.Decimal // fraction in [0, 1]
}

// Result is the outcome of Engine.Simulate. All values keep full precision.
type Result struct {
	Bank               string
	Installments       int
	Coefficient        decimal.Decimal
	OverheadPercentage decimal.Decimal
	Base               decimal.Decimal // balance + fee
	OverheadAmount     decimal.Decimal // base * overhead
	AdjustedBase       decimal.Decimal // base + overhead amount
	InstallmentTotal   decimal.Decimal // adjusted base * coefficient
}

// Rounded returns a copy with money fields rounded half-to-even to
// MoneyPlaces. Coefficient and OverheadPercentage are left exact.
func (r Result) Rounded() Result {
	out := r
	out.Base = r.Base.RoundBank(MoneyPlaces)
	out.OverheadAmount = r.OverheadAmount.RoundBank(MoneyPlaces)
	out.AdjustedBase = r.AdjustedBase.RoundBank(MoneyPlaces)
	out.InstallmentTotal = r.InstallmentTotal.RoundBank(MoneyPlaces)
	return out
}

// BankKey normalizes a bank name for matching: surrounding space trimmed,
// ASCII letters folded to lower case. Other characters are compared as is,
// which is what SQLite's NOCASE collation does, so every store and the
// cache agree on which spellings name the same bank.
func BankKey(bank string) string {
	bank = strings.TrimSpace(bank)
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, bank)
}

// MustParseDecimal parses s and panics on error. Intended for literals.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
