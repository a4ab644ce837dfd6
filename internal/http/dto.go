package http

import (
	"strings"
	"time"

	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/services"
)

// Wire shapes. Amounts cross the boundary as decimal strings and are
// parsed into minor units immediately; cents never leak back out raw
// without the decimal twin.

type transactionRequest struct {
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	Scope           string `json:"scope"`
	AccountID       string `json:"accountId"`
	LinkedAccountID string `json:"linkedAccountId"`
}

func (req transactionRequest) toDomain() (core.Transaction, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Type:            core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Amount:          amount,
		Category:        sanitizeInput(req.Category),
		Description:     sanitizeInput(req.Description),
		Date:            date,
		Scope:           core.Scope(strings.ToLower(strings.TrimSpace(req.Scope))),
		AccountID:       strings.TrimSpace(req.AccountID),
		LinkedAccountID: strings.TrimSpace(req.LinkedAccountID),
	}, nil
}

type transactionResponse struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	AmountCents     int64  `json:"amountCents"`
	Category        string `json:"category,omitempty"`
	Description     string `json:"description,omitempty"`
	Date            string `json:"date"`
	Scope           string `json:"scope"`
	AccountID       string `json:"accountId,omitempty"`
	LinkedAccountID string `json:"linkedAccountId,omitempty"`
	Version         int64  `json:"version"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		Type:            string(t.Type),
		Amount:          t.Amount.Decimal(),
		AmountCents:     t.Amount.Cents,
		Category:        t.Category,
		Description:     t.Description,
		Date:            t.Date.Format(time.RFC3339),
		Scope:           string(t.Scope),
		AccountID:       t.AccountID,
		LinkedAccountID: t.LinkedAccountID,
		Version:         t.Version,
	}
}

type accountRequest struct {
	Type            string `json:"type"`
	Name            string `json:"name"`
	InitialBalance  string `json:"initialBalance"`
	CreditLimit     string `json:"creditLimit"`
	AvailableLimit  string `json:"availableLimit"`
	LinkedAccountID string `json:"linkedAccountId"`
	BillDay         int    `json:"billDay"`
	DueDay          int    `json:"dueDay"`
}

func (req accountRequest) toParams() (services.CreateAccountParams, error) {
	initial, err := parseOptionalSigned(req.InitialBalance)
	if err != nil {
		return services.CreateAccountParams{}, err
	}
	limit, err := parseOptionalAmount(req.CreditLimit)
	if err != nil {
		return services.CreateAccountParams{}, err
	}
	available, err := parseOptionalSigned(req.AvailableLimit)
	if err != nil {
		return services.CreateAccountParams{}, err
	}
	return services.CreateAccountParams{
		Type:            core.AccountType(strings.ToLower(strings.TrimSpace(req.Type))),
		Name:            sanitizeInput(req.Name),
		InitialBalance:  initial,
		CreditLimit:     limit,
		AvailableLimit:  available,
		LinkedAccountID: strings.TrimSpace(req.LinkedAccountID),
		BillDay:         req.BillDay,
		DueDay:          req.DueDay,
	}, nil
}

type emiResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	TotalAmount  string  `json:"totalAmount"`
	Remaining    string  `json:"remainingAmount"`
	TenureMonths int     `json:"tenureMonths"`
	PaidMonths   int     `json:"paidMonths"`
	InterestRate float64 `json:"interestRate"`
	GSTRate      float64 `json:"gst"`
	Status       string  `json:"status"`
}

func toEMIResponse(e core.EMI) emiResponse {
	return emiResponse{
		ID:           e.ID,
		Name:         e.Name,
		TotalAmount:  e.Total.Decimal(),
		Remaining:    e.Remaining.Decimal(),
		TenureMonths: e.TenureMonths,
		PaidMonths:   e.PaidMonths,
		InterestRate: e.InterestRate,
		GSTRate:      e.GSTRate,
		Status:       string(e.Status),
	}
}

type accountResponse struct {
	ID               string        `json:"id"`
	Type             string        `json:"type"`
	Name             string        `json:"name"`
	InitialBalance   string        `json:"initialBalance"`
	CreditLimit      string        `json:"creditLimit,omitempty"`
	LinkedAccountID  string        `json:"linkedAccountId,omitempty"`
	BillDay          int           `json:"billDay,omitempty"`
	DueDay           int           `json:"dueDay,omitempty"`
	EMIs             []emiResponse `json:"emis,omitempty"`
	TransactionCount int           `json:"transactionCount"`
	Version          int64         `json:"version"`
}

func toAccountResponse(a core.Account) accountResponse {
	resp := accountResponse{
		ID:               a.ID,
		Type:             string(a.Type),
		Name:             a.Name,
		InitialBalance:   a.InitialBalance.Decimal(),
		LinkedAccountID:  a.LinkedAccountID,
		BillDay:          a.BillDay,
		DueDay:           a.DueDay,
		TransactionCount: a.TransactionCount,
		Version:          a.Version,
	}
	if a.CreditLimit.Cents != 0 {
		resp.CreditLimit = a.CreditLimit.Decimal()
	}
	for _, e := range a.EMIs {
		resp.EMIs = append(resp.EMIs, toEMIResponse(e))
	}
	return resp
}

type balanceEntryResponse struct {
	AccountID string `json:"accountId,omitempty"`
	Party     string `json:"party,omitempty"`
	Name      string `json:"name"`
	Balance   string `json:"balance"`
	Cents     int64  `json:"balanceCents"`
}

func toBalanceEntries(entries []ledger.Entry) []balanceEntryResponse {
	out := make([]balanceEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := balanceEntryResponse{
			Name:    e.Name,
			Balance: e.Balance.Decimal(),
			Cents:   e.Balance.Cents,
		}
		if e.Key.IsParty() {
			resp.Party = e.Key.Party
		} else {
			resp.AccountID = e.Key.AccountID
		}
		out = append(out, resp)
	}
	return out
}

type creditSummaryResponse struct {
	Limit      string `json:"limit"`
	Used       string `json:"used"`
	EMIBlocked string `json:"emiBlocked"`
	Available  string `json:"available"`
	OverLimit  bool   `json:"overLimit"`
}

func toCreditSummaryResponse(s ledger.CreditSummary) creditSummaryResponse {
	return creditSummaryResponse{
		Limit:      s.Limit.Decimal(),
		Used:       s.Used.Decimal(),
		EMIBlocked: s.EMIBlocked.Decimal(),
		Available:  s.Available.Decimal(),
		OverLimit:  s.OverLimit,
	}
}

// parseDate accepts RFC3339 timestamps or bare dates; empty means now.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, &core.ValidationError{Field: "date", Reason: "must be RFC3339 or YYYY-MM-DD"}
}

func parseOptionalAmount(s string) (core.Money, error) {
	if strings.TrimSpace(s) == "" {
		return core.Money{}, nil
	}
	return core.ParseAmount(s)
}

func parseOptionalSigned(s string) (core.Money, error) {
	if strings.TrimSpace(s) == "" {
		return core.Money{}, nil
	}
	return core.ParseSignedAmount(s)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
