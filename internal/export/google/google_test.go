package google

import (
	"context"
	"testing"
	"time"

	"ledgerbook/internal/core"
	"ledgerbook/internal/export"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		name string
		base string
		year int
		want string
	}{
		{"plain base", "Statement", 2026, "2026 Statement"},
		{"already prefixed", "2025 Statement", 2026, "2025 Statement"},
		{"empty base", "", 2026, ""},
		{"short base", "S", 2026, "2026 S"},
		{"numeric-ish base", "12345 rows", 2026, "2026 12345 rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
				t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
			}
		})
	}
}

func TestStatementRow(t *testing.T) {
	e := export.Entry{
		TransactionID: "txn_1",
		Date:          time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Type:          core.Debit,
		Scope:         core.ScopeDaily,
		Account:       "HDFC Savings",
		Category:      "Groceries",
		Description:   "weekly shop",
		Amount:        core.Money{Cents: 123450},
	}

	row := statementRow(e)
	if len(row) != 8 {
		t.Fatalf("statementRow() has %d columns, want 8", len(row))
	}
	if row[0] != "txn_1" {
		t.Errorf("ID column = %v, want txn_1", row[0])
	}
	if row[1] != "2026-03-15" {
		t.Errorf("Date column = %v, want 2026-03-15", row[1])
	}
	if row[2] != "debit" || row[3] != "daily" {
		t.Errorf("Type/Scope columns = %v/%v, want debit/daily", row[2], row[3])
	}
	if row[7] != 1234.50 {
		t.Errorf("Amount column = %v, want 1234.50", row[7])
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), "  ", "Statement"); err == nil {
		t.Error("New() without a spreadsheet id should fail")
	}
}

func TestAppendRequiresService(t *testing.T) {
	c := &Client{spreadsheetID: "sheet", statementSheet: "2026 Statement"}
	if _, err := c.Append(context.Background(), export.Entry{}); err == nil {
		t.Error("Append() with nil service should fail")
	}
}
