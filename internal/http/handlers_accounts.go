package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"ledgerbook/internal/core"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.ListAccounts(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.svc.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	saved, err := s.svc.CreateAccount(r.Context(), params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusCreated, toAccountResponse(saved))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	current, err := s.svc.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated := current
	if strings.TrimSpace(req.Name) != "" {
		updated.Name = sanitizeInput(req.Name)
	}
	if strings.TrimSpace(req.InitialBalance) != "" {
		initial, err := core.ParseSignedAmount(req.InitialBalance)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		updated.InitialBalance = initial
	}
	if strings.TrimSpace(req.CreditLimit) != "" {
		limit, err := core.ParseAmount(req.CreditLimit)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		updated.CreditLimit = limit
	}
	if req.BillDay != 0 {
		updated.BillDay = req.BillDay
	}
	if req.DueDay != 0 {
		updated.DueDay = req.DueDay
	}

	saved, err := s.svc.UpdateAccount(r.Context(), updated)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusOK, toAccountResponse(saved))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateDashboards()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAvailableCredit(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.AvailableCredit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreditSummaryResponse(summary))
}

func (s *Server) handleCorrectBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetBalance string `json:"targetBalance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	target, err := core.ParseSignedAmount(req.TargetBalance)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	account, err := s.svc.CorrectBalance(r.Context(), r.PathValue("id"), target)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}
