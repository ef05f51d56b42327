package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/lifecaller/simulator/simulation"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Fixture is a YAML document of dev/demo data.
//
//	attendances:
//	  - id: 1
//	    cpf: "00000000000"
//	    matricula: "123456"
//	    banco: Banco Teste
//	coefficients:
//	  - banco: Banco Teste
//	    parcelas: 60
//	    coeficiente: "0.02"
type Fixture struct {
	Attendances  []FixtureAttendance  `yaml:"attendances"`
	Coefficients []FixtureCoefficient `yaml:"coefficients"`
}

type FixtureAttendance struct {
	ID         int64  `yaml:"id"`
	CPF        string `yaml:"cpf"`
	Matricula  string `yaml:"matricula"`
	Banco      string `yaml:"banco"`
	AssignedTo string `yaml:"assigned_to"`
}

type FixtureCoefficient struct {
	Banco       string `yaml:"banco"`
	Parcelas    int    `yaml:"parcelas"`
	Coeficiente string `yaml:"coeficiente"`
}

// Sink receives fixture data. Both stores implement it.
type Sink interface {
	SaveAttendance(ctx context.Context, att simulation.Attendance) (simulation.AttendanceID, error)
	UpsertCoefficients(ctx context.Context, cs []simulation.Coefficient) error
}

// LoadResult counts what a fixture wrote.
type LoadResult struct {
	Attendances  int
	Coefficients int
}

// ParseFixture decodes a YAML fixture. Unknown keys are rejected.
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// coefficients validates and converts the fixture's coefficient rows.
func (f *Fixture) coefficients() ([]simulation.Coefficient, error) {
	out := make([]simulation.Coefficient, 0, len(f.Coefficients))
	for i, fc := range f.Coefficients {
		if fc.Banco == "" || fc.Parcelas <= 0 {
			return nil, fmt.Errorf("coefficient %d: banco and positive parcelas are required", i)
		}
		v, err := decimal.NewFromString(fc.Coeficiente)
		if err != nil || v.IsNegative() {
			return nil, fmt.Errorf("coefficient %d: invalid coeficiente %q", i, fc.Coeficiente)
		}
		if err := simulation.CheckMagnitude(simulation.FieldCoefficient, v); err != nil {
			return nil, fmt.Errorf("coefficient %d: %w", i, err)
		}
		out = append(out, simulation.Coefficient{Bank: fc.Banco, Installments: fc.Parcelas, Value: v})
	}
	return out, nil
}

// Load writes f into sink. Coefficients are written in one batch first so a
// bad row leaves attendances untouched.
func Load(ctx context.Context, f *Fixture, sink Sink) (LoadResult, error) {
	var res LoadResult

	cs, err := f.coefficients()
	if err != nil {
		return res, err
	}
	if len(cs) > 0 {
		if err := sink.UpsertCoefficients(ctx, cs); err != nil {
			return res, fmt.Errorf("load coefficients: %w", err)
		}
		res.Coefficients = len(cs)
	}

	for _, fa := range f.Attendances {
		att := simulation.Attendance{
			ID:           simulation.AttendanceID(fa.ID),
			TaxID:        fa.CPF,
			Registration: fa.Matricula,
			Bank:         fa.Banco,
			AssignedTo:   fa.AssignedTo,
		}
		if _, err := sink.SaveAttendance(ctx, att); err != nil {
			return res, fmt.Errorf("load attendance %d: %w", fa.ID, err)
		}
		res.Attendances++
	}
	return res, nil
}
