package ledger

import (
	"testing"

	"ledgerbook/internal/core"
)

func TestSolveInitialBalanceScenario(t *testing.T) {
	// Aggregation without correction gives 600 with initialBalance 0; a
	// declared target of 750 back-solves to initial 150.
	acct := bank("a1", "Cash drawer", 0)
	txs := []core.Transaction{
		tx(core.Credit, 1000, "a1"),
		tx(core.Debit, 400, "a1"),
	}

	newInit, err := SolveInitialBalance("a1", []core.Account{acct}, txs, core.Money{Cents: 750})
	if err != nil {
		t.Fatalf("SolveInitialBalance: %v", err)
	}
	if newInit.Cents != 150 {
		t.Fatalf("new initial balance = %d, want 150", newInit.Cents)
	}

	acct.InitialBalance = newInit
	if got := Aggregate([]core.Account{acct}, txs, core.ScopeManager).Account("a1"); got.Cents != 750 {
		t.Fatalf("re-aggregated balance = %d, want 750", got.Cents)
	}
}

func TestCorrectionIdempotence(t *testing.T) {
	for _, priorInit := range []int64{-5000, 0, 120, 999999} {
		acct := bank("a1", "Bank", priorInit)
		txs := []core.Transaction{tx(core.Credit, 300, "a1"), tx(core.Debit, 120, "a1")}

		target := core.Money{Cents: 4242}
		newInit, err := SolveInitialBalance("a1", []core.Account{acct}, txs, target)
		if err != nil {
			t.Fatalf("SolveInitialBalance: %v", err)
		}
		acct.InitialBalance = newInit
		if got := Aggregate([]core.Account{acct}, txs, core.ScopeManager).Account("a1"); got.Cents != target.Cents {
			t.Fatalf("prior init %d: balance = %d, want %d", priorInit, got.Cents, target.Cents)
		}
	}
}

func TestCorrectionReplaySafety(t *testing.T) {
	acct := bank("a1", "Bank", 777)
	txs := []core.Transaction{tx(core.Debit, 100, "a1")}

	target := core.Money{Cents: 5000}
	newInit, err := SolveInitialBalance("a1", []core.Account{acct}, txs, target)
	if err != nil {
		t.Fatalf("SolveInitialBalance: %v", err)
	}
	acct.InitialBalance = newInit

	// A later credit applies on top of the corrected balance.
	txs = append(txs, core.Transaction{
		ID: "later", Type: core.Credit, Amount: core.Money{Cents: 5000},
		Date: mustDate("2026-07-01"), Scope: core.ScopeManager, AccountID: "a1",
	})
	if got := Aggregate([]core.Account{acct}, txs, core.ScopeManager).Account("a1"); got.Cents != 10000 {
		t.Fatalf("balance after new credit = %d, want 10000", got.Cents)
	}
}

func TestTransactionsSumCoversLinkedAndLegacyLegs(t *testing.T) {
	acct := party("p1", "Rafey", 5000)
	other := bank("b1", "Bank", 0)
	txs := []core.Transaction{
		// Primary leg on the party.
		{ID: "t1", Type: core.Credit, Amount: core.Money{Cents: 100}, Date: mustDate("2026-01-01"), Scope: core.ScopeManager, AccountID: "p1"},
		// Linked leg, inverted sign.
		{ID: "t2", Type: core.Credit, Amount: core.Money{Cents: 40}, Date: mustDate("2026-01-02"), Scope: core.ScopeManager, AccountID: "b1", LinkedAccountID: "p1"},
		// Claimed legacy transaction routed by name.
		{ID: "t3", Type: core.Credit, Amount: core.Money{Cents: 7}, Description: "rafey", Date: mustDate("2026-01-03"), Scope: core.ScopeManager},
	}

	sum, err := TransactionsSum("p1", []core.Account{acct, other}, txs)
	if err != nil {
		t.Fatalf("TransactionsSum: %v", err)
	}
	// +100 - 40 + 7, with the 5000 seed excluded.
	if sum.Cents != 67 {
		t.Fatalf("transactions sum = %d, want 67", sum.Cents)
	}
}

func TestSolveInitialBalanceUnknownAccount(t *testing.T) {
	_, err := SolveInitialBalance("nope", []core.Account{bank("a1", "Bank", 0)}, nil, core.Money{})
	if !core.IsNotFound(err) {
		t.Fatalf("want not-found error, got %v", err)
	}
}
