package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ledgerbook/internal/core"
	"ledgerbook/internal/services"
)

func parseScope(r *http.Request) (core.Scope, bool) {
	scope := core.Scope(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("scope"))))
	if scope == "" {
		scope = core.ScopeManager
	}
	return scope, scope.Valid()
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	scope, ok := parseScope(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "scope must be manager or daily")
		return
	}

	balances, err := s.svc.Balances(r.Context(), scope)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scope":      string(scope),
		"total":      balances.Total().Decimal(),
		"totalCents": balances.Total().Cents,
		"entries":    toBalanceEntries(balances.Entries()),
	})
}

type dashboardResponse struct {
	Scope     string               `json:"scope"`
	Total     string               `json:"total"`
	GrowthPct int                  `json:"growthPct"`
	Entries   []dashboardEntryWire `json:"entries"`
}

type dashboardEntryWire struct {
	AccountID string `json:"accountId,omitempty"`
	Party     string `json:"party,omitempty"`
	Name      string `json:"name"`
	Balance   string `json:"balance"`
	Formatted string `json:"formatted"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	scope, ok := parseScope(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "scope must be manager or daily")
		return
	}

	d, found := s.dashboardCache.Get(string(scope))
	if found {
		slog.DebugContext(r.Context(), "Dashboard cache hit", "scope", scope)
	} else {
		var err error
		d, err = s.svc.Dashboard(r.Context(), scope, time.Now())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		s.dashboardCache.Set(string(scope), d)
	}

	resp := dashboardResponse{
		Scope:     string(d.Scope),
		Total:     d.TotalFormatted,
		GrowthPct: d.GrowthPct,
		Entries:   make([]dashboardEntryWire, 0, len(d.Entries)),
	}
	for _, e := range d.Entries {
		wire := dashboardEntryWire{
			Name:      e.Name,
			Balance:   e.Balance.Decimal(),
			Formatted: e.Formatted,
		}
		if e.Key.IsParty() {
			wire.Party = e.Key.Party
		} else {
			wire.AccountID = e.Key.AccountID
		}
		resp.Entries = append(resp.Entries, wire)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCashCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID      string `json:"accountId"`
		OpeningBalance string `json:"openingBalance"`
		TotalIn        string `json:"totalIn"`
		TotalOut       string `json:"totalOut"`
		ActualBalance  string `json:"actualBalance"`
		Reason         string `json:"reason"`
		AutoAdjust     bool   `json:"autoAdjust"`
		Date           string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	opening, err := parseOptionalSigned(req.OpeningBalance)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	totalIn, err := parseOptionalAmount(req.TotalIn)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	totalOut, err := parseOptionalAmount(req.TotalOut)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	actual, err := parseOptionalSigned(req.ActualBalance)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := s.svc.CashCheck(r.Context(), services.CashCheckRequest{
		AccountID:      strings.TrimSpace(req.AccountID),
		OpeningBalance: opening,
		TotalIn:        totalIn,
		TotalOut:       totalOut,
		ActualBalance:  actual,
		Reason:         sanitizeInput(req.Reason),
		AutoAdjust:     req.AutoAdjust,
		Date:           date,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if result.Adjusted {
		s.invalidateDashboards()
	}

	resp := map[string]any{
		"expectedBalance": result.ExpectedBalance.Decimal(),
		"actualBalance":   result.ActualBalance.Decimal(),
		"difference":      result.Difference.Decimal(),
		"adjusted":        result.Adjusted,
	}
	if result.Adjustment != nil {
		resp["adjustment"] = toTransactionResponse(*result.Adjustment)
	}
	writeJSON(w, http.StatusOK, resp)
}
