package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/gateway"
	"tally/internal/ledger"
)

// userID resolves the owning user for a request. Authentication happens
// upstream; this layer only requires the resolved identity header.
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// parseMonthParam reads the "month" query parameter (YYYY-MM), defaulting to
// the current month when absent.
func parseMonthParam(r *http.Request) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.CurrentMonth(time.Now()), nil
	}
	return core.ParseMonth(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error     string  `json:"error"`
	Message   string  `json:"message"`
	Available float64 `json:"available,omitempty"`
	Retryable bool    `json:"retryable,omitempty"`
}

// writeError maps ledger conditions onto HTTP statuses. Validation and
// insufficient-funds conditions are recoverable 422s; transition and edit
// rejections are 409 conflicts; gateway failures surface as retryable 502s.
func writeError(w http.ResponseWriter, err error) {
	var (
		insufficient *gateway.InsufficientFundsError
		gwErr        *ledger.GatewayError
	)
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:     "insufficient_funds",
			Message:   err.Error(),
			Available: insufficient.Available.Units(),
		})
	case errors.Is(err, core.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorBody{
			Error:   "invalid_transition",
			Message: "only reserved transactions can be completed or reverted",
		})
	case errors.Is(err, core.ErrImmutable):
		writeJSON(w, http.StatusConflict, errorBody{
			Error:   "immutable_transaction",
			Message: "completed and released transactions cannot be edited",
		})
	case errors.Is(err, gateway.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{
			Error:   "not_found",
			Message: "transaction not found",
		})
	case errors.As(err, &gwErr):
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:     "gateway_failure",
			Message:   "the transaction service is unavailable, try again",
			Retryable: true,
		})
	case isValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "validation_error",
			Message: err.Error(),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "internal_error",
			Message: "unexpected error",
		})
	}
}

func isValidation(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidKind) ||
		errors.Is(err, core.ErrInvalidStatus) ||
		errors.Is(err, core.ErrMissingDate) ||
		errors.Is(err, core.ErrFutureDate) ||
		errors.Is(err, core.ErrLongDescription)
}
