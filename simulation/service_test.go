package simulation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifecaller/simulator/simulation"
	"github.com/lifecaller/simulator/simulation/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// countingStore wraps Memory and counts every store access.
type countingStore struct {
	*store.Memory
	attendanceCalls  int
	coefficientCalls int
}

func (c *countingStore) GetAttendance(ctx context.Context, id simulation.AttendanceID) (*simulation.Attendance, error) {
	c.attendanceCalls++
	return c.Memory.GetAttendance(ctx, id)
}

func (c *countingStore) FindCoefficients(ctx context.Context, bank string, n int) ([]simulation.Coefficient, error) {
	c.coefficientCalls++
	return c.Memory.FindCoefficients(ctx, bank, n)
}

// blockingStore waits for the context to end.
type blockingStore struct{}

func (blockingStore) GetAttendance(ctx context.Context, _ simulation.AttendanceID) (*simulation.Attendance, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStore) FindCoefficients(ctx context.Context, _ string, _ int) ([]simulation.Coefficient, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var (
	calculist  = simulation.NewIdentity("ana", []string{"calculista"}, simulation.CapSimulate)
	supervisor = simulation.NewIdentity("carla", []string{"supervisor"}, simulation.CapSimulate, simulation.CapSupervise)
	outsider   = simulation.NewIdentity("bob", []string{"viewer"})
)

func setupService(t *testing.T, rules ...simulation.RecordRule) (*simulation.Service, *countingStore) {
	t.Helper()
	ctx := context.Background()

	m := store.NewMemory()
	_, err := m.SaveAttendance(ctx, simulation.Attendance{ID: 1, TaxID: "12345678900", Bank: "Banco Teste"})
	require.NoError(t, err)
	_, err = m.SaveAttendance(ctx, simulation.Attendance{ID: 2, Bank: "Banco Teste", AssignedTo: "ana"})
	require.NoError(t, err)
	_, err = m.SaveAttendance(ctx, simulation.Attendance{ID: 3, Bank: "Banco Sem Tabela"})
	require.NoError(t, err)
	require.NoError(t, m.AddCoefficient(ctx, simulation.Coefficient{Bank: "Banco Teste", Installments: 60, Value: dec("0.02")}))
	require.NoError(t, m.AddCoefficient(ctx, simulation.Coefficient{Bank: "Outro Banco", Installments: 60, Value: dec("0.025")}))

	cs := &countingStore{Memory: m}
	policy := simulation.NewPolicy(simulation.CapSimulate, rules...)
	return simulation.NewService(policy, cs, cs), cs
}

func exampleRequest(id simulation.AttendanceID) simulation.Request {
	return simulation.Request{
		AttendanceID:       id,
		Bank:               "Banco Teste",
		Installments:       60,
		OutstandingBalance: dec("10000"),
		InsuranceFee:       dec("500"),
		OverheadPercentage: dec("0.1"),
	}
}

// =============================================================================
// COMPOSED FLOW
// =============================================================================

func TestService_SimulateAuthorized(t *testing.T) {
	// GIVEN
	svc, _ := setupService(t)

	// WHEN
	res, err := svc.Simulate(context.Background(), calculist, exampleRequest(1))

	// THEN
	require.NoError(t, err)
	assert.Equal(t, "Banco Teste", res.Bank)
	assert.Equal(t, "0.02", res.Coefficient.String())
	assert.Equal(t, "231.00", res.Rounded().InstallmentTotal.StringFixed(2))
}

func TestService_ForbiddenBeforeAnyLookup(t *testing.T) {
	svc, cs := setupService(t)

	for _, id := range []simulation.AttendanceID{1, 999} {
		res, err := svc.Simulate(context.Background(), outsider, exampleRequest(id))

		assert.ErrorIs(t, err, simulation.ErrForbidden, "attendance %d", id)
		assert.Equal(t, simulation.Result{}, res)
	}
	assert.Zero(t, cs.attendanceCalls, "existence must not be probed")
	assert.Zero(t, cs.coefficientCalls)
}

func TestService_ForbiddenWinsOverInvalidInput(t *testing.T) {
	svc, _ := setupService(t)
	req := exampleRequest(1)
	req.OverheadPercentage = dec("5")

	_, err := svc.Simulate(context.Background(), outsider, req)
	assert.ErrorIs(t, err, simulation.ErrForbidden)
}

func TestService_AttendanceNotFound(t *testing.T) {
	svc, cs := setupService(t)

	res, err := svc.Simulate(context.Background(), calculist, exampleRequest(404))

	var nf *simulation.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "attendance", nf.Resource)
	assert.Equal(t, "404", nf.Key)
	assert.Equal(t, simulation.Result{}, res)
	assert.Zero(t, cs.coefficientCalls)
}

func TestService_CoefficientNotFoundReturnsZeroResult(t *testing.T) {
	svc, _ := setupService(t)
	req := exampleRequest(1)
	req.Installments = 48

	res, err := svc.Simulate(context.Background(), calculist, req)

	assert.True(t, simulation.IsNotFound(err))
	assert.Equal(t, simulation.Result{}, res)
}

func TestService_InvalidInputSkipsLookups(t *testing.T) {
	svc, cs := setupService(t)
	req := exampleRequest(1)
	req.OutstandingBalance = dec("-1")

	_, err := svc.Simulate(context.Background(), calculist, req)

	var inv *simulation.InvalidInputError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "saldo_devedor", inv.Field)
	assert.Zero(t, cs.attendanceCalls)
	assert.Zero(t, cs.coefficientCalls)
}

func TestService_BankDefaultsToAttendance(t *testing.T) {
	svc, _ := setupService(t)

	req := exampleRequest(1)
	req.Bank = ""
	res, err := svc.Simulate(context.Background(), calculist, req)
	require.NoError(t, err)
	assert.Equal(t, "Banco Teste", res.Bank)
	assert.Equal(t, "231.00", res.Rounded().InstallmentTotal.StringFixed(2))

	// explicit bank overrides the attendance's
	req.Bank = "Outro Banco"
	res, err = svc.Simulate(context.Background(), calculist, req)
	require.NoError(t, err)
	assert.Equal(t, "0.025", res.Coefficient.String())

	// whitespace counts as no bank
	req.Bank = " \t "
	res, err = svc.Simulate(context.Background(), calculist, req)
	require.NoError(t, err)
	assert.Equal(t, "Banco Teste", res.Bank)
	assert.Equal(t, "231.00", res.Rounded().InstallmentTotal.StringFixed(2))

	// attendance bank without a table
	req = exampleRequest(3)
	req.Bank = ""
	_, err = svc.Simulate(context.Background(), calculist, req)
	assert.True(t, simulation.IsNotFound(err))
}

func TestService_AssignmentRule(t *testing.T) {
	svc, cs := setupService(t, simulation.AssignmentRule{Override: simulation.CapSupervise})
	other := simulation.NewIdentity("bruno", nil, simulation.CapSimulate)

	_, err := svc.Simulate(context.Background(), other, exampleRequest(2))
	assert.ErrorIs(t, err, simulation.ErrForbidden)
	assert.Zero(t, cs.coefficientCalls, "record denial stops before resolution")

	_, err = svc.Simulate(context.Background(), calculist, exampleRequest(2))
	assert.NoError(t, err)

	_, err = svc.Simulate(context.Background(), supervisor, exampleRequest(2))
	assert.NoError(t, err)
}

func TestService_LookupTimeout(t *testing.T) {
	policy := simulation.NewPolicy(simulation.CapSimulate)
	svc := simulation.NewService(policy, blockingStore{}, blockingStore{},
		simulation.WithLookupTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := svc.Simulate(context.Background(), calculist, exampleRequest(1))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, simulation.KindInternal, simulation.KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestService_ResolveUsesCapabilityGate(t *testing.T) {
	svc, cs := setupService(t)

	_, err := svc.Resolve(context.Background(), outsider, "Banco Teste", 60)
	assert.ErrorIs(t, err, simulation.ErrForbidden)
	assert.Zero(t, cs.coefficientCalls)

	c, err := svc.Resolve(context.Background(), calculist, "banco teste", 60)
	require.NoError(t, err)
	assert.Equal(t, "0.02", c.Value.String())
}

func TestService_StoreErrorIsNotClientError(t *testing.T) {
	boom := errors.New("disk I/O error")
	policy := simulation.NewPolicy(simulation.CapSimulate)
	m := store.NewMemory()
	_, err := m.SaveAttendance(context.Background(), simulation.Attendance{ID: 1, Bank: "Banco Teste"})
	require.NoError(t, err)

	svc := simulation.NewService(policy, m, &failingStore{err: boom})
	_, err = svc.Simulate(context.Background(), calculist, exampleRequest(1))

	assert.ErrorIs(t, err, boom)
	assert.False(t, simulation.IsClientError(err))
}
