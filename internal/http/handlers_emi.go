package http

import (
	"encoding/json"
	"net/http"

	"ledgerbook/internal/core"
)

func (s *Server) handleAddEMI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string  `json:"name"`
		TotalAmount  string  `json:"totalAmount"`
		TenureMonths int     `json:"tenureMonths"`
		InterestRate float64 `json:"interestRate"`
		GST          float64 `json:"gst"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	total, err := core.ParseAmount(req.TotalAmount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	emi, err := s.svc.AddEMI(r.Context(), r.PathValue("id"), core.EMI{
		Name:         sanitizeInput(req.Name),
		Total:        total,
		TenureMonths: req.TenureMonths,
		InterestRate: req.InterestRate,
		GSTRate:      req.GST,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusCreated, toEMIResponse(emi))
}

func (s *Server) handleSuggestInstallment(w http.ResponseWriter, r *http.Request) {
	suggestion, err := s.svc.SuggestInstallment(r.Context(), r.PathValue("id"), r.PathValue("emiID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"principal": suggestion.Principal.Decimal(),
		"interest":  suggestion.Interest.Decimal(),
		"gst":       suggestion.GST.Decimal(),
		"total":     suggestion.Total().Decimal(),
	})
}

func (s *Server) handleBillInstallment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Principal string `json:"principal"`
		Interest  string `json:"interest"`
		GST       string `json:"gst"`
		Date      string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	principal, err := core.ParseAmount(req.Principal)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	interest, err := parseOptionalAmount(req.Interest)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	gst, err := parseOptionalAmount(req.GST)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	txn, emi, err := s.svc.BillInstallment(r.Context(), r.PathValue("id"), r.PathValue("emiID"), principal, interest, gst, date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": toTransactionResponse(txn),
		"emi":         toEMIResponse(emi),
	})
}

func (s *Server) handleCloseEMI(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CloseEMI(r.Context(), r.PathValue("id"), r.PathValue("emiID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateDashboards()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteEMI(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEMI(r.Context(), r.PathValue("id"), r.PathValue("emiID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateDashboards()
	writeJSON(w, http.StatusNoContent, nil)
}
