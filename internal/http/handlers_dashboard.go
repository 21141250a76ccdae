package http

import (
	"net/http"
)

// handleDashboardSummary serves the month view: totals, reserved balance,
// daily trend and category breakdown, all under the same released-exclusion
// rule so the figures agree with each other.
func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	sum, err := s.svc.Summary(r.Context(), userID(r), month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(sum, s.warnRatio))
}
