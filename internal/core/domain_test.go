package core

import (
	"testing"
	"time"
)

func validTx() Transaction {
	return Transaction{
		ID:        "t1",
		Type:      Credit,
		Amount:    Money{Cents: 100},
		Date:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		Scope:     ScopeManager,
		AccountID: "a1",
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTx().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"bad type", func(tx *Transaction) { tx.Type = "refund" }},
		{"negative amount", func(tx *Transaction) { tx.Amount.Cents = -1 }},
		{"bad scope", func(tx *Transaction) { tx.Scope = "income" }},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }},
		{"linked without primary", func(tx *Transaction) { tx.AccountID = ""; tx.Description = "x"; tx.LinkedAccountID = "a2" }},
		{"linked to itself", func(tx *Transaction) { tx.LinkedAccountID = tx.AccountID }},
		{"no account no description", func(tx *Transaction) { tx.AccountID = ""; tx.Description = "   " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTx()
			tc.mutate(&tx)
			if err := tx.Validate(); !IsValidation(err) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestAccountValidate(t *testing.T) {
	good := []Account{
		{ID: "a1", Type: AccountBank, Name: "SBI current"},
		{ID: "a2", Type: AccountCreditCard, Name: "HDFC", CreditLimit: Money{Cents: 100000}, BillDay: 5, DueDay: 25},
		{ID: "a3", Type: AccountCreditCard, Name: "HDFC Add-on", LinkedAccountID: "a2"},
		{ID: "a4", Type: AccountOther, Name: "Rafey"},
	}
	for _, a := range good {
		if err := a.Validate(); err != nil {
			t.Fatalf("%s: expected ok, got %v", a.Name, err)
		}
	}

	bads := []Account{
		{ID: "a1", Type: "wallet", Name: "x"},
		{ID: "a1", Type: AccountBank, Name: "  "},
		{ID: "a1", Type: AccountBank, Name: "x", CreditLimit: Money{Cents: 5}},
		{ID: "a1", Type: AccountCash, Name: "x", LinkedAccountID: "a2"},
		{ID: "a1", Type: AccountCreditCard, Name: "x", LinkedAccountID: "a2", CreditLimit: Money{Cents: 5}},
		{ID: "a1", Type: AccountCreditCard, Name: "x", LinkedAccountID: "a1"},
		{ID: "a1", Type: AccountBank, Name: "x", BillDay: 32},
	}
	for i, a := range bads {
		if err := a.Validate(); !IsValidation(err) {
			t.Fatalf("case %d: want validation error, got %v", i, err)
		}
	}
}

func TestEMIValidate(t *testing.T) {
	good := EMI{ID: "e1", Name: "tv", Total: Money{Cents: 1000}, Remaining: Money{Cents: 1000}, TenureMonths: 10, Status: EMIActive}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	nonPositiveTenure := good
	nonPositiveTenure.TenureMonths = 0
	if err := nonPositiveTenure.Validate(); !IsInvariant(err) {
		t.Fatalf("want invariant error for tenure, got %v", err)
	}

	overRemaining := good
	overRemaining.Remaining = Money{Cents: 2000}
	if err := overRemaining.Validate(); !IsInvariant(err) {
		t.Fatalf("want invariant error for remaining, got %v", err)
	}

	zeroTotal := good
	zeroTotal.Total = Money{}
	zeroTotal.Remaining = Money{}
	if err := zeroTotal.Validate(); !IsValidation(err) {
		t.Fatalf("want validation error for total, got %v", err)
	}
}

func TestNormalizeParty(t *testing.T) {
	if got := NormalizeParty("  RaFeY  "); got != "rafey" {
		t.Fatalf("NormalizeParty = %q, want %q", got, "rafey")
	}
}
