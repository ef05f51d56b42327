/*
Package importer reads coefficient tables and dev fixtures.

COEFFICIENT CSV:
  Header row required, columns in any order, names case-insensitive:

    banco,parcelas,coeficiente
    Banco Teste,60,0.02
    Banco Teste,72,0.0185

  Spreadsheet exports with ';' separators and decimal commas are accepted:

    banco;parcelas;coeficiente
    Banco Teste;60;0,02

  The whole file is validated before anything is written. Every bad row is
  reported with its line number; a file with any bad row imports nothing.
  The same (banco, parcelas) twice in one file is an error, since the
  table must hold one coefficient per key.

SEE ALSO:
  - fixture.go: YAML fixtures for attendances and coefficients
*/
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lifecaller/simulator/simulation"
	"github.com/shopspring/decimal"
)

// RowError describes one rejected line.
type RowError struct {
	Line   int    `json:"line"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s %s", e.Line, e.Field, e.Reason)
}

// ImportError lists every rejected line. It unwraps to ErrInvalidInput.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	parts := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		parts[i] = r.String()
	}
	return "invalid coefficient file: " + strings.Join(parts, "; ")
}

func (e *ImportError) Unwrap() error {
	return simulation.ErrInvalidInput
}

var requiredColumns = []string{simulation.FieldBank, simulation.FieldInstallments, simulation.FieldCoefficient}

// ParseCoefficientsCSV reads a coefficient table from r.
func ParseCoefficientsCSV(r io.Reader) ([]simulation.Coefficient, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read coefficient file: %w", err)
	}
	text := strings.TrimPrefix(string(raw), "\ufeff")

	firstLine, _, _ := strings.Cut(text, "\n")
	semicolon := strings.Contains(firstLine, ";") && !strings.Contains(firstLine, ",")

	reader := csv.NewReader(strings.NewReader(text))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	if semicolon {
		reader.Comma = ';'
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ImportError{Rows: []RowError{{Line: 1, Reason: "file is empty"}}}
	}
	if err != nil {
		return nil, &ImportError{Rows: []RowError{{Line: 1, Reason: err.Error()}}}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []RowError
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, RowError{Line: 1, Field: name, Reason: "column missing from header"})
		}
	}
	if len(missing) > 0 {
		return nil, &ImportError{Rows: missing}
	}

	var (
		out    []simulation.Coefficient
		errs   []RowError
		seen   = make(map[string]int)
		lineNo = 1
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				lineNo = perr.Line
			} else {
				lineNo++
			}
			errs = append(errs, RowError{Line: lineNo, Reason: err.Error()})
			continue
		}
		lineNo, _ = reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		c, rowErr := parseRow(record, cols, semicolon)
		if rowErr != nil {
			rowErr.Line = lineNo
			errs = append(errs, *rowErr)
			continue
		}

		k := simulation.BankKey(c.Bank) + "\x00" + strconv.Itoa(c.Installments)
		if first, dup := seen[k]; dup {
			errs = append(errs, RowError{
				Line:   lineNo,
				Reason: fmt.Sprintf("duplicate of line %d for %s/%d", first, c.Bank, c.Installments),
			})
			continue
		}
		seen[k] = lineNo
		out = append(out, c)
	}

	if len(errs) > 0 {
		return nil, &ImportError{Rows: errs}
	}
	if len(out) == 0 {
		return nil, &ImportError{Rows: []RowError{{Line: lineNo, Reason: "no coefficient rows"}}}
	}
	return out, nil
}

func parseRow(record []string, cols map[string]int, decimalComma bool) (simulation.Coefficient, *RowError) {
	get := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	bank := get(simulation.FieldBank)
	if bank == "" {
		return simulation.Coefficient{}, &RowError{Field: simulation.FieldBank, Reason: "must not be empty"}
	}

	n, err := strconv.Atoi(get(simulation.FieldInstallments))
	if err != nil || n <= 0 {
		return simulation.Coefficient{}, &RowError{Field: simulation.FieldInstallments, Reason: "must be a positive integer"}
	}

	rawValue := get(simulation.FieldCoefficient)
	if decimalComma {
		rawValue = strings.ReplaceAll(rawValue, ",", ".")
	}
	value, err := decimal.NewFromString(rawValue)
	if err != nil {
		return simulation.Coefficient{}, &RowError{Field: simulation.FieldCoefficient, Reason: "must be a decimal number"}
	}
	if err := simulation.CheckMagnitude(simulation.FieldCoefficient, value); err != nil {
		reason := err.Error()
		var inv *simulation.InvalidInputError
		if errors.As(err, &inv) {
			reason = inv.Reason
		}
		return simulation.Coefficient{}, &RowError{Field: simulation.FieldCoefficient, Reason: reason}
	}
	if value.IsNegative() {
		return simulation.Coefficient{}, &RowError{Field: simulation.FieldCoefficient, Reason: "must not be negative"}
	}

	return simulation.Coefficient{Bank: bank, Installments: n, Value: value}, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
