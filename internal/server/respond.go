package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/parqhub/parqhub/pkg/core"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses: missing resources
// are 404, malformed input and conflicts are 400, everything else including
// engine failures is 500. Internal detail stays in the log, not the body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case core.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case core.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case core.IsEngineError(err):
		logger.Error("engine failure", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		logger.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.NewValidation("invalid request body: %v", err)
	}
	return nil
}
