package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lifecaller/simulator/importer"
	"github.com/lifecaller/simulator/simulation"
	"github.com/rs/zerolog"
)

// statusFor maps an error kind to its response category.
func statusFor(kind simulation.ErrorKind) int {
	switch kind {
	case simulation.KindForbidden:
		return http.StatusForbidden
	case simulation.KindNotFound:
		return http.StatusNotFound
	case simulation.KindInvalidInput:
		return http.StatusBadRequest
	default:
		// ambiguous data is an integrity fault on our side, not the caller's
		return http.StatusInternalServerError
	}
}

// writeDomainError answers with the category of err. Forbidden responses
// carry the reason only; internal errors are logged and not echoed.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := simulation.KindOf(err)
	status := statusFor(kind)
	log := zerolog.Ctx(r.Context())

	switch kind {
	case simulation.KindForbidden:
		writeJSON(w, status, ErrorResponse{Error: simulation.ReasonForbidden})

	case simulation.KindInvalidInput:
		resp := ErrorResponse{Error: "invalid input", Details: err.Error()}
		var inv *simulation.InvalidInputError
		if errors.As(err, &inv) {
			resp.Field = inv.Field
		}
		var imp *importer.ImportError
		if errors.As(err, &imp) {
			resp.Rows = imp.Rows
		}
		writeJSON(w, status, resp)

	case simulation.KindNotFound:
		writeJSON(w, status, ErrorResponse{Error: "not found", Details: err.Error()})

	case simulation.KindAmbiguousData:
		log.Error().Err(err).Msg("coefficient data integrity fault")
		writeJSON(w, status, ErrorResponse{Error: "ambiguous data", Details: err.Error()})

	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, status, ErrorResponse{Error: "internal error"})
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
