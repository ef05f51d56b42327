package simulation_test

import (
	"testing"

	"github.com/lifecaller/simulator/simulation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return simulation.MustParseDecimal(s)
}

func bancoTesteInput() simulation.Input {
	return simulation.Input{
		Bank:               "Banco Teste",
		Installments:       60,
		OutstandingBalance: dec("10000"),
		InsuranceFee:       dec("500"),
		OverheadPercentage: dec("0.1"),
	}
}

// =============================================================================
// FORMULA
// =============================================================================

func TestSimulate_BancoTesteExample(t *testing.T) {
	// GIVEN: balance 10000, fee 500, overhead 10%, coefficient 0.02
	engine := simulation.NewEngine()

	// WHEN
	res, err := engine.Simulate(bancoTesteInput(), dec("0.02"))

	// THEN
	require.NoError(t, err)
	assert.True(t, res.Base.Equal(dec("10500")), "base = %s", res.Base)
	assert.True(t, res.OverheadAmount.Equal(dec("1050")), "overhead = %s", res.OverheadAmount)
	assert.True(t, res.AdjustedBase.Equal(dec("11550")), "adjusted = %s", res.AdjustedBase)
	assert.True(t, res.InstallmentTotal.Equal(dec("231")), "installment = %s", res.InstallmentTotal)
	assert.Equal(t, "0.02", res.Coefficient.String())
	assert.Equal(t, "231.00", res.Rounded().InstallmentTotal.StringFixed(2))
}

func TestSimulate_ZeroOverheadAndZeroFee(t *testing.T) {
	engine := simulation.NewEngine()
	in := simulation.Input{
		Installments:       12,
		OutstandingBalance: dec("1200"),
		InsuranceFee:       decimal.Zero,
		OverheadPercentage: decimal.Zero,
	}

	res, err := engine.Simulate(in, dec("0.0875"))
	require.NoError(t, err)
	assert.True(t, res.OverheadAmount.IsZero())
	assert.True(t, res.InstallmentTotal.Equal(dec("105")), "got %s", res.InstallmentTotal)
}

func TestSimulate_KeepsFullPrecisionUntilRounded(t *testing.T) {
	// 1234.56 * 1.12345 = 1386.9609... ; * 0.0231 = 32.0383...
	engine := simulation.NewEngine()
	in := simulation.Input{
		Installments:       84,
		OutstandingBalance: dec("1234.56"),
		InsuranceFee:       decimal.Zero,
		OverheadPercentage: dec("0.12345"),
	}

	res, err := engine.Simulate(in, dec("0.0231"))
	require.NoError(t, err)

	want := dec("1234.56").Mul(dec("1.12345")).Mul(dec("0.0231"))
	assert.True(t, res.InstallmentTotal.Equal(want), "intermediate rounding leaked: %s != %s", res.InstallmentTotal, want)
	assert.Greater(t, -res.InstallmentTotal.Exponent(), int32(2))
	assert.Equal(t, want.RoundBank(2).StringFixed(2), res.Rounded().InstallmentTotal.StringFixed(2))
}

func TestResult_RoundedUsesBankersRounding(t *testing.T) {
	res := simulation.Result{
		Base:             dec("10.125"),
		OverheadAmount:   dec("10.135"),
		AdjustedBase:     dec("0.005"),
		InstallmentTotal: dec("2.675"),
		Coefficient:      dec("0.012345"),
	}

	r := res.Rounded()
	assert.Equal(t, "10.12", r.Base.StringFixed(2))
	assert.Equal(t, "10.14", r.OverheadAmount.StringFixed(2))
	assert.Equal(t, "0.00", r.AdjustedBase.StringFixed(2))
	assert.Equal(t, "2.68", r.InstallmentTotal.StringFixed(2))
	assert.Equal(t, "0.012345", r.Coefficient.String(), "coefficient must not be rounded")
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestSimulate_NonNegativeForValidInputs(t *testing.T) {
	engine := simulation.NewEngine()
	balances := []string{"0", "0.01", "999.99", "1000000"}
	fees := []string{"0", "12.5", "500"}
	overheads := []string{"0", "0.001", "0.5", "1"}
	coefficients := []string{"0", "0.0001", "0.02", "1.5"}

	for _, b := range balances {
		for _, f := range fees {
			for _, o := range overheads {
				for _, c := range coefficients {
					in := simulation.Input{
						Installments:       1,
						OutstandingBalance: dec(b),
						InsuranceFee:       dec(f),
						OverheadPercentage: dec(o),
					}
					res, err := engine.Simulate(in, dec(c))
					require.NoError(t, err)
					assert.False(t, res.InstallmentTotal.IsNegative(), "b=%s f=%s o=%s c=%s", b, f, o, c)
					assert.False(t, res.Base.IsNegative())
					assert.False(t, res.OverheadAmount.IsNegative())
					assert.False(t, res.AdjustedBase.IsNegative())
				}
			}
		}
	}
}

func TestSimulate_Idempotent(t *testing.T) {
	engine := simulation.NewEngine()
	in := simulation.Input{
		Installments:       96,
		OutstandingBalance: dec("31337.33"),
		InsuranceFee:       dec("123.45"),
		OverheadPercentage: dec("0.0777"),
	}

	first, err := engine.Simulate(in, dec("0.019876"))
	require.NoError(t, err)
	second, err := engine.Simulate(in, dec("0.019876"))
	require.NoError(t, err)

	assert.Equal(t, first.InstallmentTotal.String(), second.InstallmentTotal.String())
	assert.Equal(t, first, second)
}

func TestSimulate_MonotonicInBalance(t *testing.T) {
	engine := simulation.NewEngine()
	prev := decimal.NewFromInt(-1)

	for _, b := range []string{"0", "0.01", "1", "99.99", "100", "5000", "5000.01", "250000"} {
		in := bancoTesteInput()
		in.OutstandingBalance = dec(b)

		res, err := engine.Simulate(in, dec("0.02"))
		require.NoError(t, err)
		assert.True(t, res.InstallmentTotal.GreaterThanOrEqual(prev), "balance %s decreased installment", b)
		prev = res.InstallmentTotal
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestSimulate_InvalidInputNamesField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*simulation.Input)
		field  string
	}{
		{"zero installments", func(in *simulation.Input) { in.Installments = 0 }, "parcelas"},
		{"negative installments", func(in *simulation.Input) { in.Installments = -12 }, "parcelas"},
		{"negative balance", func(in *simulation.Input) { in.OutstandingBalance = dec("-0.01") }, "saldo_devedor"},
		{"negative fee", func(in *simulation.Input) { in.InsuranceFee = dec("-1") }, "seguro_banco"},
		{"negative overhead", func(in *simulation.Input) { in.OverheadPercentage = dec("-0.1") }, "percentual_co"},
		{"overhead above one", func(in *simulation.Input) { in.OverheadPercentage = dec("1.0001") }, "percentual_co"},
	}

	engine := simulation.NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := bancoTesteInput()
			tt.mutate(&in)

			res, err := engine.Simulate(in, dec("0.02"))

			require.Error(t, err)
			assert.ErrorIs(t, err, simulation.ErrInvalidInput)
			var inv *simulation.InvalidInputError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.field, inv.Field)
			assert.Equal(t, simulation.Result{}, res, "no partial result on failure")
		})
	}
}

func TestSimulate_OverheadBoundsInclusive(t *testing.T) {
	engine := simulation.NewEngine()
	for _, o := range []string{"0", "1"} {
		in := bancoTesteInput()
		in.OverheadPercentage = dec(o)
		_, err := engine.Simulate(in, dec("0.02"))
		assert.NoError(t, err, "overhead %s", o)
	}
}

func TestSimulate_NegativeCoefficientRejected(t *testing.T) {
	_, err := simulation.NewEngine().Simulate(bancoTesteInput(), dec("-0.02"))

	var inv *simulation.InvalidInputError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "coeficiente", inv.Field)
}

func TestSimulate_RejectsOversizedDecimals(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*simulation.Input)
		coefficient string
		field       string
	}{
		{"tiny fee exponent", func(in *simulation.Input) { in.InsuranceFee = dec("1e-1000000") }, "0.02", "seguro_banco"},
		{"zero with huge scale", func(in *simulation.Input) { in.OverheadPercentage = dec("0e-1000000") }, "0.02", "percentual_co"},
		{"huge balance", func(in *simulation.Input) { in.OutstandingBalance = dec("1e30") }, "0.02", "saldo_devedor"},
		{"huge positive exponent", func(in *simulation.Input) { in.OutstandingBalance = dec("1E+1000000") }, "0.02", "saldo_devedor"},
		{"tiny coefficient exponent", func(in *simulation.Input) {}, "1e-1000000", "coeficiente"},
		{"thirteen decimal places", func(in *simulation.Input) { in.InsuranceFee = dec("0.0000000000001") }, "0.02", "seguro_banco"},
	}

	engine := simulation.NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := bancoTesteInput()
			tt.mutate(&in)

			_, err := engine.Simulate(in, dec(tt.coefficient))

			assert.ErrorIs(t, err, simulation.ErrInvalidInput)
			var inv *simulation.InvalidInputError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.field, inv.Field)
		})
	}
}

func TestSimulate_AcceptsDecimalsAtTheBounds(t *testing.T) {
	in := bancoTesteInput()
	in.OutstandingBalance = dec("99999999999999999999")
	in.InsuranceFee = dec("0.000000000001")

	res, err := simulation.NewEngine().Simulate(in, dec("0.000000000001"))

	require.NoError(t, err)
	assert.False(t, res.InstallmentTotal.IsNegative())
}

// =============================================================================
// BANK KEY
// =============================================================================

func TestBankKey_FoldsASCIIOnly(t *testing.T) {
	assert.Equal(t, "banco teste", simulation.BankKey("  Banco TESTE "))
	assert.Equal(t, "itaú", simulation.BankKey("Itaú"))
	assert.Equal(t, "itaÚ", simulation.BankKey("ITAÚ"))
	assert.NotEqual(t, simulation.BankKey("Itaú"), simulation.BankKey("ITAÚ"))
}
