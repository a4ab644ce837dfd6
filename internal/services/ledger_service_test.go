package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ledgerbook/internal/core"
	"ledgerbook/internal/storage"
)

func newTestService(t *testing.T) *LedgerService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewLedgerService(repo, nil, "INR")
}

func mustCreateAccount(t *testing.T, s *LedgerService, p CreateAccountParams) core.Account {
	t.Helper()
	a, err := s.CreateAccount(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", p.Name, err)
	}
	return a
}

func mustCreateTransaction(t *testing.T, s *LedgerService, txn core.Transaction) core.Transaction {
	t.Helper()
	saved, err := s.CreateTransaction(context.Background(), txn)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return saved
}

func TestCreateTransactionRejectsUnknownAccount(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateTransaction(context.Background(), core.Transaction{
		Type:      core.Credit,
		Amount:    core.Money{Cents: 100},
		Date:      time.Now(),
		Scope:     core.ScopeManager,
		AccountID: "missing",
	})
	if !core.IsNotFound(err) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestBalancesScenario(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	bank := mustCreateAccount(t, s, CreateAccountParams{
		Type:           core.AccountBank,
		Name:           "Bank1",
		InitialBalance: core.Money{Cents: 1000},
	})
	mustCreateTransaction(t, s, core.Transaction{
		Type: core.Credit, Amount: core.Money{Cents: 500},
		Date: time.Now(), Scope: core.ScopeManager, AccountID: bank.ID,
	})
	mustCreateTransaction(t, s, core.Transaction{
		Type: core.Debit, Amount: core.Money{Cents: 200},
		Date: time.Now(), Scope: core.ScopeManager, AccountID: bank.ID,
	})

	balances, err := s.Balances(ctx, core.ScopeManager)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if got := balances.Account(bank.ID).Cents; got != 1300 {
		t.Fatalf("balance = %d, want 1300", got)
	}
}

func TestCreateCreditCardDerivesInitialBalance(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	head := mustCreateAccount(t, s, CreateAccountParams{
		Type:           core.AccountCreditCard,
		Name:           "Head Card",
		CreditLimit:    core.Money{Cents: 3000000},
		AvailableLimit: core.Money{Cents: 1000000},
	})
	if head.InitialBalance.Cents != -2000000 {
		t.Fatalf("head InitialBalance = %d, want -2000000", head.InitialBalance.Cents)
	}

	addon := mustCreateAccount(t, s, CreateAccountParams{
		Type:            core.AccountCreditCard,
		Name:            "Add-on Card",
		AvailableLimit:  core.Money{Cents: 2500000},
		LinkedAccountID: head.ID,
	})
	if addon.InitialBalance.Cents != -500000 {
		t.Fatalf("add-on InitialBalance = %d, want -500000 (against parent limit)", addon.InitialBalance.Cents)
	}
	if addon.CreditLimit.Cents != 0 {
		t.Fatalf("add-on CreditLimit = %d, want 0", addon.CreditLimit.Cents)
	}

	// Linking to an add-on is rejected; families are one level deep.
	_, err := s.CreateAccount(ctx, CreateAccountParams{
		Type:            core.AccountCreditCard,
		Name:            "Nested",
		AvailableLimit:  core.Money{Cents: 100},
		LinkedAccountID: addon.ID,
	})
	if !core.IsValidation(err) {
		t.Fatalf("want ValidationError for nested add-on, got %v", err)
	}
}

func TestAvailableCreditScenario(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// Head: limit 30000, available 10000 => initial -20000.
	head := mustCreateAccount(t, s, CreateAccountParams{
		Type:           core.AccountCreditCard,
		Name:           "Head",
		CreditLimit:    core.Money{Cents: 30000},
		AvailableLimit: core.Money{Cents: 10000},
	})
	// Add-on carrying 5000 of debt: available = 30000 - 5000.
	addon := mustCreateAccount(t, s, CreateAccountParams{
		Type:            core.AccountCreditCard,
		Name:            "Add-on",
		AvailableLimit:  core.Money{Cents: 25000},
		LinkedAccountID: head.ID,
	})

	if _, err := s.AddEMI(ctx, head.ID, core.EMI{
		Name:         "fridge",
		Total:        core.Money{Cents: 3000},
		TenureMonths: 6,
	}); err != nil {
		t.Fatalf("AddEMI: %v", err)
	}

	summary, err := s.AvailableCredit(ctx, head.ID)
	if err != nil {
		t.Fatalf("AvailableCredit: %v", err)
	}
	if summary.Available.Cents != 2000 {
		t.Fatalf("Available = %d, want 2000", summary.Available.Cents)
	}

	// Resolving via the add-on lands on the same family.
	viaAddon, err := s.AvailableCredit(ctx, addon.ID)
	if err != nil {
		t.Fatalf("AvailableCredit(addon): %v", err)
	}
	if viaAddon.Available.Cents != summary.Available.Cents {
		t.Fatalf("add-on resolution mismatch: %d vs %d", viaAddon.Available.Cents, summary.Available.Cents)
	}
}

func TestCorrectBalanceIdempotence(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	bank := mustCreateAccount(t, s, CreateAccountParams{
		Type: core.AccountBank,
		Name: "Bank",
	})
	mustCreateTransaction(t, s, core.Transaction{
		Type: core.Credit, Amount: core.Money{Cents: 600},
		Date: time.Now(), Scope: core.ScopeManager, AccountID: bank.ID,
	})

	corrected, err := s.CorrectBalance(ctx, bank.ID, core.Money{Cents: 750})
	if err != nil {
		t.Fatalf("CorrectBalance: %v", err)
	}
	if corrected.InitialBalance.Cents != 150 {
		t.Fatalf("new initial = %d, want 150", corrected.InitialBalance.Cents)
	}

	balances, err := s.Balances(ctx, core.ScopeManager)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if got := balances.Account(bank.ID).Cents; got != 750 {
		t.Fatalf("balance after correction = %d, want 750", got)
	}

	// Replay safety: later postings apply on top of the corrected seed.
	mustCreateTransaction(t, s, core.Transaction{
		Type: core.Credit, Amount: core.Money{Cents: 50},
		Date: time.Now(), Scope: core.ScopeManager, AccountID: bank.ID,
	})
	balances, err = s.Balances(ctx, core.ScopeManager)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if got := balances.Account(bank.ID).Cents; got != 800 {
		t.Fatalf("balance after replay = %d, want 800", got)
	}
}

func TestUpdateAccountLocksInitialBalance(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	bank := mustCreateAccount(t, s, CreateAccountParams{
		Type:           core.AccountBank,
		Name:           "Bank",
		InitialBalance: core.Money{Cents: 100},
	})

	// No transactions yet: direct edits allowed.
	bank.InitialBalance = core.Money{Cents: 200}
	bank, err := s.UpdateAccount(ctx, bank)
	if err != nil {
		t.Fatalf("UpdateAccount before postings: %v", err)
	}

	mustCreateTransaction(t, s, core.Transaction{
		Type: core.Credit, Amount: core.Money{Cents: 10},
		Date: time.Now(), Scope: core.ScopeManager, AccountID: bank.ID,
	})

	locked, err := s.GetAccount(ctx, bank.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	locked.InitialBalance = core.Money{Cents: 999}
	if _, err := s.UpdateAccount(ctx, locked); !core.IsInvariant(err) {
		t.Fatalf("want InvariantError for locked initial balance, got %v", err)
	}

	// Renaming with the same initial balance stays allowed.
	renamed, err := s.GetAccount(ctx, bank.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	renamed.Name = "Bank renamed"
	if _, err := s.UpdateAccount(ctx, renamed); err != nil {
		t.Fatalf("UpdateAccount rename: %v", err)
	}
}

func TestBillInstallmentLifecycle(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	card := mustCreateAccount(t, s, CreateAccountParams{
		Type:           core.AccountCreditCard,
		Name:           "Card",
		CreditLimit:    core.Money{Cents: 100000},
		AvailableLimit: core.Money{Cents: 100000},
	})
	emi, err := s.AddEMI(ctx, card.ID, core.EMI{
		Name:         "phone",
		Total:        core.Money{Cents: 3000},
		TenureMonths: 3,
	})
	if err != nil {
		t.Fatalf("AddEMI: %v", err)
	}

	txn, updated, err := s.BillInstallment(ctx, card.ID, emi.ID,
		core.Money{Cents: 1000}, core.Money{Cents: 90}, core.Money{Cents: 16}, time.Now())
	if err != nil {
		t.Fatalf("BillInstallment: %v", err)
	}
	if txn.Amount.Cents != 1106 || txn.Type != core.Debit || txn.Category != "EMI" {
		t.Fatalf("unexpected billing transaction: %+v", txn)
	}
	if updated.Remaining.Cents != 2000 || updated.PaidMonths != 1 {
		t.Fatalf("unexpected EMI after billing: %+v", updated)
	}

	// Billing the full remaining principal closes the EMI.
	_, closed, err := s.BillInstallment(ctx, card.ID, emi.ID,
		core.Money{Cents: 2000}, core.Money{}, core.Money{}, time.Now())
	if err != nil {
		t.Fatalf("BillInstallment(final): %v", err)
	}
	if closed.Status != core.EMIClosed || closed.Remaining.Cents != 0 {
		t.Fatalf("EMI should close at zero remaining: %+v", closed)
	}

	// Closed EMIs cannot be billed again.
	_, _, err = s.BillInstallment(ctx, card.ID, emi.ID,
		core.Money{Cents: 100}, core.Money{}, core.Money{}, time.Now())
	if !core.IsInvariant(err) {
		t.Fatalf("want InvariantError billing closed EMI, got %v", err)
	}
}

func TestAddEMIRejectsNonCard(t *testing.T) {
	s := newTestService(t)

	bank := mustCreateAccount(t, s, CreateAccountParams{
		Type: core.AccountBank,
		Name: "Bank",
	})
	_, err := s.AddEMI(context.Background(), bank.ID, core.EMI{
		Name:         "tv",
		Total:        core.Money{Cents: 100},
		TenureMonths: 2,
	})
	if !core.IsValidation(err) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestCashCheck(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	cash := mustCreateAccount(t, s, CreateAccountParams{
		Type: core.AccountCash,
		Name: "Till",
	})

	t.Run("no adjustment when balanced", func(t *testing.T) {
		result, err := s.CashCheck(ctx, CashCheckRequest{
			AccountID:      cash.ID,
			OpeningBalance: core.Money{Cents: 10000},
			TotalIn:        core.Money{Cents: 5000},
			TotalOut:       core.Money{Cents: 2000},
			ActualBalance:  core.Money{Cents: 13000},
			AutoAdjust:     true,
		})
		if err != nil {
			t.Fatalf("CashCheck: %v", err)
		}
		if result.Adjusted || result.Difference.Cents != 0 {
			t.Fatalf("balanced check should not adjust: %+v", result)
		}
	})

	t.Run("shortfall books a debit", func(t *testing.T) {
		result, err := s.CashCheck(ctx, CashCheckRequest{
			AccountID:      cash.ID,
			OpeningBalance: core.Money{Cents: 10000},
			TotalIn:        core.Money{Cents: 5000},
			TotalOut:       core.Money{Cents: 2000},
			ActualBalance:  core.Money{Cents: 12400},
			Reason:         "till miscount",
			AutoAdjust:     true,
		})
		if err != nil {
			t.Fatalf("CashCheck: %v", err)
		}
		if !result.Adjusted || result.Adjustment == nil {
			t.Fatalf("shortfall should adjust: %+v", result)
		}
		if result.Adjustment.Type != core.Debit || result.Adjustment.Amount.Cents != 600 {
			t.Fatalf("unexpected adjustment: %+v", result.Adjustment)
		}
		if result.Adjustment.Scope != core.ScopeDaily {
			t.Fatalf("adjustment scope = %s, want daily", result.Adjustment.Scope)
		}
	})

	t.Run("without autoAdjust only reports", func(t *testing.T) {
		result, err := s.CashCheck(ctx, CashCheckRequest{
			AccountID:      cash.ID,
			OpeningBalance: core.Money{Cents: 100},
			ActualBalance:  core.Money{Cents: 150},
		})
		if err != nil {
			t.Fatalf("CashCheck: %v", err)
		}
		if result.Adjusted || result.Difference.Cents != 50 {
			t.Fatalf("report-only check mismatch: %+v", result)
		}
	})
}

func TestDashboardGrowth(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	bank := mustCreateAccount(t, s, CreateAccountParams{
		Type:           core.AccountBank,
		Name:           "Bank",
		InitialBalance: core.Money{Cents: 1000},
	})
	now := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)

	mustCreateTransaction(t, s, core.Transaction{
		Type: core.Credit, Amount: core.Money{Cents: 1000},
		Date: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		Scope: core.ScopeManager, AccountID: bank.ID,
	})
	mustCreateTransaction(t, s, core.Transaction{
		Type: core.Credit, Amount: core.Money{Cents: 1000},
		Date: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		Scope: core.ScopeManager, AccountID: bank.ID,
	})

	d, err := s.Dashboard(ctx, core.ScopeManager, now)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Total.Cents != 3000 {
		t.Fatalf("Total = %d, want 3000", d.Total.Cents)
	}
	// Previous month total is 2000; (3000-2000)/2000 = 50%.
	if d.GrowthPct != 50 {
		t.Fatalf("GrowthPct = %d, want 50", d.GrowthPct)
	}
	if len(d.Entries) != 1 || d.Entries[0].Name != "Bank" {
		t.Fatalf("unexpected entries: %+v", d.Entries)
	}
	if d.TotalFormatted == "" {
		t.Fatal("TotalFormatted should not be empty")
	}
}
