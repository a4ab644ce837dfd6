package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"ledgerbook/internal/core"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	scope := core.Scope(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("scope"))))
	if scope != "" && !scope.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "scope must be manager or daily")
		return
	}

	txs, err := s.svc.ListTransactions(r.Context(), scope)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	txn, err := req.toDomain()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	saved, err := s.svc.CreateTransaction(r.Context(), txn)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	current, err := s.svc.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	txn, err := req.toDomain()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	txn.ID = id
	txn.Version = current.Version

	saved, err := s.svc.UpdateTransaction(r.Context(), txn)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusOK, toTransactionResponse(saved))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateDashboards()
	writeJSON(w, http.StatusNoContent, nil)
}
