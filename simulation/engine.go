/*
engine.go - The installment formula

PURPOSE:
  Pure computation of the periodic installment from the caller's figures
  and one coefficient. No I/O, no state.

FORMULA:
  base             = outstanding_balance + insurance_fee
  overhead_amount  = base * overhead_percentage
  adjusted_base    = base + overhead_amount
  installment      = adjusted_base * coefficient

  Example (bank "Banco Teste", 60 installments, coefficient 0.02):
    balance 10000, fee 500, overhead 0.1
    base 10500 → overhead 1050 → adjusted 11550 → installment 231.00

INVARIANTS:
  - Inputs are validated first; nothing is computed for invalid input.
  - With non-negative balance, fee and coefficient and overhead in [0, 1]
    every result field is non-negative.
  - Same input, same output: decimal arithmetic is exact for + and *.

SEE ALSO:
  - types.go: Input and Result
*/
package simulation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Field names as they appear on the wire.
const (
	FieldBank         = "banco"
	FieldInstallments = "parcelas"
	FieldBalance      = "saldo_devedor"
	FieldInsurance    = "seguro_banco"
	FieldOverhead     = "percentual_co"
	FieldCoefficient  = "coeficiente"
)

// Bounds on decimal inputs. Arithmetic on decimal.Decimal aligns exponents,
// so a value like 1e-1000000 would expand every intermediate to a million
// digits.
const (
	MaxDecimalPlaces = 12
	MaxIntegerDigits = 20
)

var maxOverhead = decimal.NewFromInt(1)

// Engine applies the installment formula. The zero value is ready to use.
type Engine struct{}

// NewEngine returns an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Simulate computes the installment for in using coefficient.
func (e *Engine) Simulate(in Input, coefficient decimal.Decimal) (Result, error) {
	if err := ValidateInput(in); err != nil {
		return Result{}, err
	}
	if err := CheckMagnitude(FieldCoefficient, coefficient); err != nil {
		return Result{}, err
	}
	if coefficient.IsNegative() {
		return Result{}, &InvalidInputError{Field: FieldCoefficient, Reason: "must not be negative"}
	}

	base := in.OutstandingBalance.Add(in.InsuranceFee)
	overhead := base.Mul(in.OverheadPercentage)
	adjusted := base.Add(overhead)

	return Result{
		Bank:               in.Bank,
		Installments:       in.Installments,
		Coefficient:        coefficient,
		OverheadPercentage: in.OverheadPercentage,
		Base:               base,
		OverheadAmount:     overhead,
		AdjustedBase:       adjusted,
		InstallmentTotal:   adjusted.Mul(coefficient),
	}, nil
}

// ValidateInput checks the numeric constraints of in. Bank is not checked
// here; it only matters for coefficient resolution. Magnitude is checked
// before any comparison, since comparing also aligns exponents.
func ValidateInput(in Input) error {
	if in.Installments <= 0 {
		return &InvalidInputError{Field: FieldInstallments, Reason: "must be a positive integer"}
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{FieldBalance, in.OutstandingBalance},
		{FieldInsurance, in.InsuranceFee},
		{FieldOverhead, in.OverheadPercentage},
	} {
		if err := CheckMagnitude(f.name, f.value); err != nil {
			return err
		}
	}
	if in.OutstandingBalance.IsNegative() {
		return &InvalidInputError{Field: FieldBalance, Reason: "must not be negative"}
	}
	if in.InsuranceFee.IsNegative() {
		return &InvalidInputError{Field: FieldInsurance, Reason: "must not be negative"}
	}
	if in.OverheadPercentage.IsNegative() || in.OverheadPercentage.GreaterThan(maxOverhead) {
		return &InvalidInputError{Field: FieldOverhead, Reason: "must be between 0 and 1"}
	}
	return nil
}

// CheckMagnitude rejects d when it has more than MaxDecimalPlaces digits
// after the point or more than MaxIntegerDigits before it. Only the
// exponent and digit count are inspected, so it is cheap for any input.
func CheckMagnitude(field string, d decimal.Decimal) error {
	if d.Exponent() < -MaxDecimalPlaces {
		return &InvalidInputError{
			Field:  field,
			Reason: fmt.Sprintf("must have at most %d decimal places", MaxDecimalPlaces),
		}
	}
	if int64(d.NumDigits())+int64(d.Exponent()) > MaxIntegerDigits {
		return &InvalidInputError{
			Field:  field,
			Reason: fmt.Sprintf("must have at most %d integer digits", MaxIntegerDigits),
		}
	}
	return nil
}
