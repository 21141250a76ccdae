package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tally/internal/core"
	"tally/internal/ledger"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	kind, err := core.ParseKind(req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	cents, err := core.ParseDecimalToCents(string(req.Amount))
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := s.svc.Create(r.Context(), userID(r), ledger.CreateInput{
		Kind:        kind,
		Amount:      core.Money{Cents: cents},
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
		Reserve:     req.Reserved,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Transaction created",
		"user_id", userID(r),
		"transaction_id", t.ID,
		"kind", t.Kind,
		"status", t.Status,
		"amount_cents", t.Amount.Cents)
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return
	}

	txs, err := s.svc.Transactions(r.Context(), userID(r), month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleListReserved(w http.ResponseWriter, r *http.Request) {
	var month *core.Month
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := core.ParseMonth(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
			return
		}
		month = &m
	}

	txs, err := s.svc.Reserved(r.Context(), userID(r), month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	cents, err := core.ParseDecimalToCents(string(req.Amount))
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := s.svc.Edit(r.Context(), userID(r), chi.URLParam(r, "id"), ledger.UpdateInput{
		Amount:      core.Money{Cents: cents},
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Complete(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Reservation completed",
		"user_id", userID(r), "transaction_id", t.ID)
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleRevertTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Revert(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Reservation reverted",
		"user_id", userID(r), "transaction_id", t.ID)
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}
