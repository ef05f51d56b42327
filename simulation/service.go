/*
service.go - Composed simulation flow

PURPOSE:
  Single entry point used by the HTTP layer. Wires the policy, the
  attendance store, the resolver and the engine in a fixed order.

FLOW:
  1. Authorize(identity, nil)      capability gate, no store access yet
  2. ValidateInput                 reject bad figures before any lookup
  3. GetAttendance                 NotFound if the id does not resolve
  4. Authorize(identity, &att)     record rules
  5. Resolve(bank, installments)   bank defaults to the attendance's bank
  6. Engine.Simulate

  Any failure returns immediately with a zero Result. Store calls run under
  the lookup timeout; their errors are propagated, never retried.

SEE ALSO:
  - api/handlers.go: Simulate handler
*/
package simulation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultLookupTimeout bounds each store call made by the service.
const DefaultLookupTimeout = 5 * time.Second

// Request is one simulation call for an attendance.
type Request struct {
	AttendanceID       AttendanceID
	Bank               string // empty means the attendance's bank
	Installments       int
	OutstandingBalance decimal.Decimal
	InsuranceFee       decimal.Decimal
	OverheadPercentage decimal.Decimal
}

func (r Request) input(bank string) Input {
	return Input{
		Bank:               bank,
		Installments:       r.Installments,
		OutstandingBalance: r.OutstandingBalance,
		InsuranceFee:       r.InsuranceFee,
		OverheadPercentage: r.OverheadPercentage,
	}
}

// Service runs authorized simulations.
type Service struct {
	policy        *Policy
	attendances   AttendanceStore
	resolver      *Resolver
	engine        *Engine
	lookupTimeout time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLookupTimeout sets the per-call store timeout. Zero disables it.
func WithLookupTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.lookupTimeout = d }
}

// NewService creates a Service.
func NewService(policy *Policy, attendances AttendanceStore, coefficients CoefficientStore, opts ...ServiceOption) *Service {
	s := &Service{
		policy:        policy,
		attendances:   attendances,
		resolver:      NewResolver(coefficients),
		engine:        NewEngine(),
		lookupTimeout: DefaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate authorizes id for req.AttendanceID and computes the result.
func (s *Service) Simulate(ctx context.Context, id Identity, req Request) (Result, error) {
	log := zerolog.Ctx(ctx).With().
		Str("subject", id.Subject).
		Int64("attendance_id", int64(req.AttendanceID)).
		Logger()

	if err := s.Authorize(id); err != nil {
		log.Debug().Msg("simulation denied: missing capability")
		return Result{}, err
	}
	if err := ValidateInput(req.input(req.Bank)); err != nil {
		return Result{}, err
	}

	att, err := s.getAttendance(ctx, req.AttendanceID)
	if err != nil {
		return Result{}, err
	}
	if err := s.policy.Authorize(id, att).Err(id.Subject); err != nil {
		log.Debug().Msg("simulation denied by record rule")
		return Result{}, err
	}

	bank := strings.TrimSpace(req.Bank)
	if bank == "" {
		bank = att.Bank
	}

	coef, err := s.resolve(ctx, bank, req.Installments)
	if err != nil {
		return Result{}, err
	}

	res, err := s.engine.Simulate(req.input(bank), coef.Value)
	if err != nil {
		return Result{}, err
	}
	log.Debug().
		Str("bank", bank).
		Int("installments", req.Installments).
		Str("installment_total", res.InstallmentTotal.String()).
		Msg("simulation computed")
	return res, nil
}

// Authorize applies the capability gate alone. Boundary code calls it
// before parsing anything that could fail with a different error.
func (s *Service) Authorize(id Identity) error {
	return s.policy.Authorize(id, nil).Err(id.Subject)
}

// Resolve exposes the coefficient lookup under the same capability gate.
func (s *Service) Resolve(ctx context.Context, id Identity, bank string, installments int) (Coefficient, error) {
	if err := s.Authorize(id); err != nil {
		return Coefficient{}, err
	}
	return s.resolve(ctx, bank, installments)
}

func (s *Service) getAttendance(ctx context.Context, attID AttendanceID) (*Attendance, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	att, err := s.attendances.GetAttendance(ctx, attID)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, &NotFoundError{Resource: "attendance", Key: strconv.FormatInt(int64(attID), 10)}
	}
	return att, nil
}

func (s *Service) resolve(ctx context.Context, bank string, installments int) (Coefficient, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.resolver.Resolve(ctx, bank, installments)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.lookupTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.lookupTimeout)
}
