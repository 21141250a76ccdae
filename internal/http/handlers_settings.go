package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.svc.Settings(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsPayload(prefs))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	if err := s.svc.SaveSettings(r.Context(), userID(r), payload.toSettings()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleLogout drops the user's session mirror. Credential invalidation
// happens upstream; the ledger only clears its cached reads.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.svc.Logout(userID(r))
	slog.InfoContext(r.Context(), "Session mirror invalidated", "user_id", userID(r))
	w.WriteHeader(http.StatusNoContent)
}
