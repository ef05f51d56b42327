/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names follow
  the front end's Portuguese vocabulary (banco, parcelas, saldo_devedor).

DECIMALS:
  Money and coefficients cross the boundary as strings, never floats.
  Requests accept either JSON numbers or strings; both are parsed exactly
  by shopspring/decimal. Responses fix money to two places with banker's
  rounding and keep coeficiente/percentual_co exactly as computed.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Wrappers

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"strconv"

	"github.com/lifecaller/simulator/importer"
	"github.com/lifecaller/simulator/simulation"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SIMULATION
// =============================================================================

// SimulateRequest is the body of POST /api/atendimentos/{id}/simulate.
type SimulateRequest struct {
	Banco        string              `json:"banco"`
	Parcelas     int                 `json:"parcelas"`
	PrazoMeses   int                 `json:"prazo_meses"` // alias sent by older clients
	SaldoDevedor decimal.NullDecimal `json:"saldo_devedor"`
	SeguroBanco  decimal.NullDecimal `json:"seguro_banco"`
	PercentualCO decimal.NullDecimal `json:"percentual_co"`
}

// toDomain converts the body. Missing numeric fields are reported as
// invalid input instead of defaulting to zero.
func (r SimulateRequest) toDomain(id simulation.AttendanceID) (simulation.Request, error) {
	installments := r.Parcelas
	if installments == 0 {
		installments = r.PrazoMeses
	}

	required := []struct {
		field string
		value decimal.NullDecimal
	}{
		{simulation.FieldBalance, r.SaldoDevedor},
		{simulation.FieldInsurance, r.SeguroBanco},
		{simulation.FieldOverhead, r.PercentualCO},
	}
	for _, f := range required {
		if !f.value.Valid {
			return simulation.Request{}, &simulation.InvalidInputError{Field: f.field, Reason: "is required"}
		}
	}

	return simulation.Request{
		AttendanceID:       id,
		Bank:               r.Banco,
		Installments:       installments,
		OutstandingBalance: r.SaldoDevedor.Decimal,
		InsuranceFee:       r.SeguroBanco.Decimal,
		OverheadPercentage: r.PercentualCO.Decimal,
	}, nil
}

// SimulationDTO is a successful simulation.
type SimulationDTO struct {
	AtendimentoID int64  `json:"atendimento_id"`
	Banco         string `json:"banco"`
	Parcelas      int    `json:"parcelas"`
	Coeficiente   string `json:"coeficiente"`
	PercentualCO  string `json:"percentual_co"`
	Base          string `json:"base"`
	ValorCO       string `json:"valor_co"`
	BaseAjustada  string `json:"base_ajustada"`
	ParcelaTotal  string `json:"parcela_total"`
}

func toSimulationDTO(id simulation.AttendanceID, res simulation.Result) SimulationDTO {
	r := res.Rounded()
	return SimulationDTO{
		AtendimentoID: int64(id),
		Banco:         r.Bank,
		Parcelas:      r.Installments,
		Coeficiente:   r.Coefficient.String(),
		PercentualCO:  r.OverheadPercentage.String(),
		Base:          r.Base.StringFixed(simulation.MoneyPlaces),
		ValorCO:       r.OverheadAmount.StringFixed(simulation.MoneyPlaces),
		BaseAjustada:  r.AdjustedBase.StringFixed(simulation.MoneyPlaces),
		ParcelaTotal:  r.InstallmentTotal.StringFixed(simulation.MoneyPlaces),
	}
}

// =============================================================================
// COEFFICIENTS
// =============================================================================

// CoefficientDTO is one row of the coefficient table.
type CoefficientDTO struct {
	ID          int64  `json:"id"`
	Banco       string `json:"banco"`
	Parcelas    int    `json:"parcelas"`
	Coeficiente string `json:"coeficiente"`
}

func toCoefficientDTO(c simulation.Coefficient) CoefficientDTO {
	return CoefficientDTO{
		ID:          int64(c.ID),
		Banco:       c.Bank,
		Parcelas:    c.Installments,
		Coeficiente: c.Value.String(),
	}
}

// CoefficientListResponse mirrors the paginated shape the front end reads
// (data.results), without pagination.
type CoefficientListResponse struct {
	Count   int              `json:"count"`
	Results []CoefficientDTO `json:"results"`
}

// ImportResponse reports a successful coefficient import.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// =============================================================================
// ATTENDANCES
// =============================================================================

// AttendanceDTO represents an attendance in API responses.
type AttendanceDTO struct {
	ID         int64  `json:"id"`
	CPF        string `json:"cpf"`
	Matricula  string `json:"matricula"`
	Banco      string `json:"banco"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// CreateAttendanceRequest is the body of POST /api/atendimentos.
type CreateAttendanceRequest struct {
	CPF        string `json:"cpf"`
	Matricula  string `json:"matricula"`
	Banco      string `json:"banco"`
	AssignedTo string `json:"assigned_to"`
}

func (r CreateAttendanceRequest) validate() error {
	fields := []struct{ name, value string }{
		{"cpf", r.CPF},
		{"matricula", r.Matricula},
		{simulation.FieldBank, r.Banco},
	}
	for _, f := range fields {
		if f.value == "" {
			return &simulation.InvalidInputError{Field: f.name, Reason: "is required"}
		}
	}
	return nil
}

func toAttendanceDTO(a simulation.Attendance) AttendanceDTO {
	return AttendanceDTO{
		ID:         int64(a.ID),
		CPF:        a.TaxID,
		Matricula:  a.Registration,
		Banco:      a.Bank,
		AssignedTo: a.AssignedTo,
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Field   string              `json:"field,omitempty"`
	Details string              `json:"details,omitempty"`
	Rows    []importer.RowError `json:"rows,omitempty"`
}

func parseID(raw string) (simulation.AttendanceID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, &simulation.InvalidInputError{Field: "id", Reason: "must be a positive integer"}
	}
	return simulation.AttendanceID(n), nil
}
