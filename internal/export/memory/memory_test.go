package memory

import (
	"context"
	"testing"
	"time"

	"ledgerbook/internal/core"
	"ledgerbook/internal/export"
)

func TestAppendAndEntries(t *testing.T) {
	s := New()
	ctx := context.Background()

	e := export.Entry{
		TransactionID: "txn_1",
		Date:          time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Type:          core.Credit,
		Scope:         core.ScopeManager,
		Account:       "Cash",
		Amount:        core.Money{Cents: 500},
	}

	ref, err := s.Append(ctx, e)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("Append() ref = %s, want mem:1", ref)
	}

	if _, err := s.Append(ctx, e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got := s.Entries()
	if len(got) != 2 {
		t.Fatalf("Entries() len = %d, want 2", len(got))
	}
	if got[0].TransactionID != "txn_1" {
		t.Errorf("Entries()[0].TransactionID = %s, want txn_1", got[0].TransactionID)
	}

	// Mutating the returned slice must not affect the store.
	got[0].TransactionID = "mutated"
	if s.Entries()[0].TransactionID != "txn_1" {
		t.Error("Entries() should return a copy")
	}
}
