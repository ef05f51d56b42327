/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists attendances and the coefficient table. Implements the read
  interfaces of the simulation core plus the writers used by the import
  and attendance endpoints.

INTERFACES IMPLEMENTED:
  simulation.AttendanceStore:  GetAttendance
  simulation.CoefficientStore: FindCoefficients
  api.CoefficientCatalog:      ListCoefficients, UpsertCoefficients
  api.AttendanceRepository:    GetAttendance, SaveAttendance

KEY TABLES:
  attendances:  Customer cases (cpf, matricula, banco, assigned_to)
  coefficients: (banco, parcelas) → coeficiente, stored as TEXT so the
                decimal survives exactly

UNIQUENESS:
  idx_unique_coefficient enforces one row per (banco, parcelas), banco
  compared case-insensitively. The ambiguous-data path in the resolver is
  therefore unreachable against this schema; FindCoefficients still
  returns up to two rows so a database migrated without the index is
  reported instead of silently resolved.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Coefficient imports run in a single
  SQL transaction, so a failed import leaves the table untouched.

USAGE:
  store, err := sqlite.New("./data/lifecaller.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - simulation/store.go: Read interfaces
  - simulation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lifecaller/simulator/simulation"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Open wraps an existing handle without migrating. The caller owns the schema.
func Open(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attendances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cpf TEXT NOT NULL,
		matricula TEXT NOT NULL,
		banco TEXT NOT NULL,
		assigned_to TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendances_cpf
		ON attendances(cpf);

	CREATE TABLE IF NOT EXISTS coefficients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		banco TEXT NOT NULL COLLATE NOCASE,
		parcelas INTEGER NOT NULL CHECK (parcelas > 0),
		coeficiente TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One authoritative coefficient per bank and term
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_coefficient
		ON coefficients(banco, parcelas);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

// SaveAttendance inserts att, or updates it when att.ID is set, and returns
// its id.
func (s *Store) SaveAttendance(ctx context.Context, att simulation.Attendance) (simulation.AttendanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	if att.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO attendances (id, cpf, matricula, banco, assigned_to, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				cpf = excluded.cpf,
				matricula = excluded.matricula,
				banco = excluded.banco,
				assigned_to = excluded.assigned_to
		`, int64(att.ID), att.TaxID, att.Registration, att.Bank, nullString(att.AssignedTo), now)
		if err != nil {
			return 0, fmt.Errorf("save attendance %d: %w", att.ID, err)
		}
		return att.ID, nil
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO attendances (cpf, matricula, banco, assigned_to, created_at) VALUES (?, ?, ?, ?, ?)",
		att.TaxID, att.Registration, att.Bank, nullString(att.AssignedTo), now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert attendance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert attendance: %w", err)
	}
	return simulation.AttendanceID(id), nil
}

// GetAttendance retrieves an attendance by ID. Returns nil, nil when missing.
func (s *Store) GetAttendance(ctx context.Context, id simulation.AttendanceID) (*simulation.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var att simulation.Attendance
	var rawID int64
	var assigned sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT id, cpf, matricula, banco, assigned_to FROM attendances WHERE id = ?",
		int64(id),
	).Scan(&rawID, &att.TaxID, &att.Registration, &att.Bank, &assigned)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance %d: %w", id, err)
	}

	att.ID = simulation.AttendanceID(rawID)
	att.AssignedTo = assigned.String
	return &att, nil
}

// =============================================================================
// COEFFICIENT STORE
// =============================================================================

// FindCoefficients returns at most two rows for (bank, installments).
func (s *Store) FindCoefficients(ctx context.Context, bank string, installments int) ([]simulation.Coefficient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCoefficients(ctx,
		"SELECT id, banco, parcelas, coeficiente FROM coefficients WHERE banco = ? COLLATE NOCASE AND parcelas = ? ORDER BY id LIMIT 2",
		strings.TrimSpace(bank), installments,
	)
}

// ListCoefficients returns the coefficient table ordered by bank and term.
// An empty bank lists every bank.
func (s *Store) ListCoefficients(ctx context.Context, bank string) ([]simulation.Coefficient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bank = strings.TrimSpace(bank)
	if bank == "" {
		return s.queryCoefficients(ctx,
			"SELECT id, banco, parcelas, coeficiente FROM coefficients ORDER BY banco, parcelas",
		)
	}
	return s.queryCoefficients(ctx,
		"SELECT id, banco, parcelas, coeficiente FROM coefficients WHERE banco = ? COLLATE NOCASE ORDER BY banco, parcelas",
		bank,
	)
}

// UpsertCoefficients writes cs atomically. Existing (banco, parcelas) rows
// get the new value.
func (s *Store) UpsertCoefficients(ctx context.Context, cs []simulation.Coefficient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO coefficients (banco, parcelas, coeficiente, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(banco, parcelas) DO UPDATE SET
			coeficiente = excluded.coeficiente,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range cs {
		if _, err := stmt.ExecContext(ctx, strings.TrimSpace(c.Bank), c.Installments, c.Value.String(), now); err != nil {
			return fmt.Errorf("upsert coefficient %s/%d: %w", c.Bank, c.Installments, err)
		}
	}

	return dbTx.Commit()
}

func (s *Store) queryCoefficients(ctx context.Context, query string, args ...any) ([]simulation.Coefficient, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query coefficients: %w", err)
	}
	defer rows.Close()

	var out []simulation.Coefficient
	for rows.Next() {
		var c simulation.Coefficient
		var id int64
		var value string
		if err := rows.Scan(&id, &c.Bank, &c.Installments, &value); err != nil {
			return nil, fmt.Errorf("scan coefficient: %w", err)
		}
		c.ID = simulation.CoefficientID(id)
		if c.Value, err = parseDecimal(value); err != nil {
			return nil, fmt.Errorf("coefficient %d: %w", id, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", value, err)
	}
	return d, nil
}
