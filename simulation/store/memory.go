// Package store provides in-memory implementations of the simulation stores.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/lifecaller/simulator/simulation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds attendances and coefficients in maps. Unlike the SQLite
// store it does not enforce coefficient uniqueness: AddCoefficient appends,
// so duplicate rows can be staged to exercise the ambiguous-data path.
type Memory struct {
	mu           sync.RWMutex
	attendances  map[simulation.AttendanceID]simulation.Attendance
	coefficients map[key][]simulation.Coefficient
	nextAttID    simulation.AttendanceID
	nextCoefID   simulation.CoefficientID
}

type key struct {
	Bank         string
	Installments int
}

func coefKey(bank string, installments int) key {
	return key{Bank: simulation.BankKey(bank), Installments: installments}
}

func NewMemory() *Memory {
	return &Memory{
		attendances:  make(map[simulation.AttendanceID]simulation.Attendance),
		coefficients: make(map[key][]simulation.Coefficient),
	}
}

// SaveAttendance stores att. A zero ID is assigned the next sequence value.
func (m *Memory) SaveAttendance(_ context.Context, att simulation.Attendance) (simulation.AttendanceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if att.ID == 0 {
		m.nextAttID++
		att.ID = m.nextAttID
	} else if att.ID > m.nextAttID {
		m.nextAttID = att.ID
	}
	m.attendances[att.ID] = att
	return att.ID, nil
}

// GetAttendance returns nil, nil for an unknown id.
func (m *Memory) GetAttendance(_ context.Context, id simulation.AttendanceID) (*simulation.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	att, ok := m.attendances[id]
	if !ok {
		return nil, nil
	}
	return &att, nil
}

// AddCoefficient appends c without checking for an existing row.
func (m *Memory) AddCoefficient(_ context.Context, c simulation.Coefficient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextCoefID++
	c.ID = m.nextCoefID
	k := coefKey(c.Bank, c.Installments)
	m.coefficients[k] = append(m.coefficients[k], c)
	return nil
}

// FindCoefficients matches bank the way simulation.BankKey normalizes it.
func (m *Memory) FindCoefficients(_ context.Context, bank string, installments int) ([]simulation.Coefficient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.coefficients[coefKey(bank, installments)]
	out := make([]simulation.Coefficient, len(rows))
	copy(out, rows)
	return out, nil
}

// ListCoefficients returns all rows, optionally filtered by bank, ordered by
// bank then installments.
func (m *Memory) ListCoefficients(_ context.Context, bank string) ([]simulation.Coefficient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filter := simulation.BankKey(bank)
	var out []simulation.Coefficient
	for k, rows := range m.coefficients {
		if filter != "" && k.Bank != filter {
			continue
		}
		out = append(out, rows...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bank != out[j].Bank {
			return out[i].Bank < out[j].Bank
		}
		if out[i].Installments != out[j].Installments {
			return out[i].Installments < out[j].Installments
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpsertCoefficients replaces every row for each key in cs.
func (m *Memory) UpsertCoefficients(_ context.Context, cs []simulation.Coefficient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range cs {
		k := coefKey(c.Bank, c.Installments)
		if existing := m.coefficients[k]; len(existing) > 0 {
			c.ID = existing[0].ID
		} else {
			m.nextCoefID++
			c.ID = m.nextCoefID
		}
		m.coefficients[k] = []simulation.Coefficient{c}
	}
	return nil
}
