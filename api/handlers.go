/*
handlers.go - HTTP API handlers for the simulation service

PURPOSE:
  Exposes the simulation core and its supporting tables via REST. Handles
  HTTP request/response, JSON serialization, and delegates to the core.

ENDPOINTS:
  Attendances:
    POST   /api/atendimentos                 Create attendance
    GET    /api/atendimentos/{id}            Get attendance
    POST   /api/atendimentos/{id}/simulate   Run a simulation (capability: simulate)

  Coefficients:
    GET    /api/coeficientes?banco=          List coefficient table (capability: simulate)
    GET    /api/coeficientes/lookup          Resolve one (banco, parcelas) (capability: simulate)
    POST   /api/coeficientes/import          Import CSV (capability: manage_coefficients)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Service: authorize → resolve → simulate
  - Attendances / Coefficients: store access for the supporting endpoints
  - Invalidator: optional cache eviction after imports

REQUEST FLOW (simulate):
  1. Capability gate (before parsing, so unauthorized callers always get 403)
  2. Parse id and body
  3. Service.Simulate
  4. Serialize, rounding money at this boundary only

ERROR HANDLING:
  See errors.go. 401 comes from the auth middleware.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lifecaller/simulator/auth"
	"github.com/lifecaller/simulator/importer"
	"github.com/lifecaller/simulator/simulation"
	"github.com/rs/zerolog"
)

// Request body caps: coefficient uploads and JSON bodies.
const (
	maxImportSize = 8 << 20
	maxJSONSize   = 1 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// AttendanceRepository reads and writes attendances.
type AttendanceRepository interface {
	simulation.AttendanceStore
	SaveAttendance(ctx context.Context, att simulation.Attendance) (simulation.AttendanceID, error)
}

// CoefficientCatalog lists and imports the coefficient table.
type CoefficientCatalog interface {
	ListCoefficients(ctx context.Context, bank string) ([]simulation.Coefficient, error)
	UpsertCoefficients(ctx context.Context, cs []simulation.Coefficient) error
}

// Invalidator evicts cached coefficients after they change.
type Invalidator interface {
	Invalidate(ctx context.Context, cs []simulation.Coefficient) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service      *simulation.Service
	Attendances  AttendanceRepository
	Coefficients CoefficientCatalog
	Invalidator  Invalidator // nil when no cache is configured
}

// NewHandler creates a new handler.
func NewHandler(svc *simulation.Service, attendances AttendanceRepository, coefficients CoefficientCatalog) *Handler {
	return &Handler{
		Service:      svc,
		Attendances:  attendances,
		Coefficients: coefficients,
	}
}

// identity returns the caller set by auth.Middleware. Routes are only
// mounted behind it, so a missing identity is a wiring bug.
func identity(r *http.Request) (simulation.Identity, error) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return simulation.Identity{}, errors.New("no identity on request context")
	}
	return id, nil
}

// =============================================================================
// SIMULATION HANDLERS
// =============================================================================

// Simulate runs a simulation for an attendance.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.Service.Authorize(caller); err != nil {
		writeDomainError(w, r, err)
		return
	}

	attID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var body SimulateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONSize)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req, err := body.toDomain(attID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.Service.Simulate(r.Context(), caller, req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSimulationDTO(attID, res))
}

// LookupCoefficient resolves the single coefficient for ?banco=&parcelas=.
func (h *Handler) LookupCoefficient(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.Service.Authorize(caller); err != nil {
		writeDomainError(w, r, err)
		return
	}

	installments, err := strconv.Atoi(r.URL.Query().Get("parcelas"))
	if err != nil {
		writeDomainError(w, r, &simulation.InvalidInputError{Field: simulation.FieldInstallments, Reason: "must be a positive integer"})
		return
	}

	coef, err := h.Service.Resolve(r.Context(), caller, r.URL.Query().Get("banco"), installments)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCoefficientDTO(coef))
}

// =============================================================================
// COEFFICIENT HANDLERS
// =============================================================================

// ListCoefficients returns the coefficient table, optionally for one bank.
func (h *Handler) ListCoefficients(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.Service.Authorize(caller); err != nil {
		writeDomainError(w, r, err)
		return
	}

	rows, err := h.Coefficients.ListCoefficients(r.Context(), r.URL.Query().Get("banco"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dtos := make([]CoefficientDTO, len(rows))
	for i, c := range rows {
		dtos[i] = toCoefficientDTO(c)
	}
	writeJSON(w, http.StatusOK, CoefficientListResponse{Count: len(dtos), Results: dtos})
}

// ImportCoefficients upserts a CSV coefficient table from the "file" form field.
func (h *Handler) ImportCoefficients(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !caller.Has(simulation.CapManageCoefficients) {
		writeDomainError(w, r, &simulation.ForbiddenError{Subject: caller.Subject, Reason: simulation.ReasonForbidden})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body", err)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field", err)
		return
	}
	defer file.Close()

	rows, err := importer.ParseCoefficientsCSV(file)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.Coefficients.UpsertCoefficients(r.Context(), rows); err != nil {
		writeDomainError(w, r, fmt.Errorf("import coefficients: %w", err))
		return
	}

	log := zerolog.Ctx(r.Context())
	if h.Invalidator != nil {
		if err := h.Invalidator.Invalidate(r.Context(), rows); err != nil {
			log.Warn().Err(err).Msg("coefficient cache invalidation failed")
		}
	}
	log.Info().Int("rows", len(rows)).Msg("coefficients imported")

	writeJSON(w, http.StatusOK, ImportResponse{Imported: len(rows)})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// CreateAttendance creates a new attendance.
func (h *Handler) CreateAttendance(w http.ResponseWriter, r *http.Request) {
	var req CreateAttendanceRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONSize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := req.validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}

	att := simulation.Attendance{
		TaxID:        req.CPF,
		Registration: req.Matricula,
		Bank:         req.Banco,
		AssignedTo:   req.AssignedTo,
	}
	id, err := h.Attendances.SaveAttendance(r.Context(), att)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	att.ID = id

	writeJSON(w, http.StatusCreated, toAttendanceDTO(att))
}

// GetAttendance returns a single attendance.
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	att, err := h.Attendances.GetAttendance(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if att == nil {
		writeDomainError(w, r, &simulation.NotFoundError{Resource: "attendance", Key: strconv.FormatInt(int64(id), 10)})
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceDTO(*att))
}
