package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/storage"
)

// LedgerService orchestrates ledger writes across SQLite and AMQP and
// serves the derived reads. Balances are never read from a persisted
// column; every read folds the transaction log.
type LedgerService struct {
	storage      *storage.SQLiteRepository
	amqpClient   *amqp.Client
	currencyCode string
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, currencyCode string) *LedgerService {
	return &LedgerService{
		storage:      storage,
		amqpClient:   amqpClient,
		currencyCode: currencyCode,
	}
}

// CreateTransaction validates, saves the transaction and publishes an
// export message. Export failure never fails the write.
func (s *LedgerService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkAccountRefs(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishSyncMessage(ctx, saved.ID, saved.Version)
	return saved, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkAccountRefs(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.storage.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publishSyncMessage(ctx, saved.ID, saved.Version)
	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	return s.storage.DeleteTransaction(ctx, id)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id)
}

// ListTransactions lists transactions, newest first. Empty scope means all.
func (s *LedgerService) ListTransactions(ctx context.Context, scope core.Scope) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, scope)
}

// checkAccountRefs rejects transactions pointing at accounts that do not
// exist, before anything touches aggregation state.
func (s *LedgerService) checkAccountRefs(ctx context.Context, t core.Transaction) error {
	for _, id := range []string{t.AccountID, t.LinkedAccountID} {
		if id == "" {
			continue
		}
		if _, err := s.storage.GetAccount(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// CreateAccountParams carries the caller-facing account creation shape.
// Credit cards do not take an initial balance directly: the caller supplies
// the currently available limit and the stored seed is derived from it.
type CreateAccountParams struct {
	Type            core.AccountType
	Name            string
	InitialBalance  core.Money // ignored for credit cards
	CreditLimit     core.Money // head cards only
	AvailableLimit  core.Money // credit cards: available credit right now
	LinkedAccountID string     // add-on cards: the head card
	BillDay         int
	DueDay          int
}

func (s *LedgerService) CreateAccount(ctx context.Context, p CreateAccountParams) (core.Account, error) {
	a := core.Account{
		Type:            p.Type,
		Name:            strings.TrimSpace(p.Name),
		InitialBalance:  p.InitialBalance,
		CreditLimit:     p.CreditLimit,
		LinkedAccountID: p.LinkedAccountID,
		BillDay:         p.BillDay,
		DueDay:          p.DueDay,
	}

	if p.Type == core.AccountCreditCard {
		limit := p.CreditLimit
		if p.LinkedAccountID != "" {
			parent, err := s.storage.GetAccount(ctx, p.LinkedAccountID)
			if err != nil {
				return core.Account{}, err
			}
			if parent.Type != core.AccountCreditCard || parent.LinkedAccountID != "" {
				return core.Account{}, &core.ValidationError{Field: "linkedAccountId", Reason: "must reference a head credit card"}
			}
			// Add-ons share the head card's limit, measured against it.
			limit = parent.CreditLimit
			a.CreditLimit = core.Money{}
		}
		a.InitialBalance = ledger.InitialBalanceForCard(p.AvailableLimit, limit)
	}

	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	saved, err := s.storage.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	return saved, nil
}

// UpdateAccount applies caller edits. Direct initial balance edits are
// rejected once transactions reference the account; the correction flow is
// the only path then.
func (s *LedgerService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	current, err := s.storage.GetAccount(ctx, a.ID)
	if err != nil {
		return core.Account{}, err
	}
	if current.TransactionCount > 0 && a.InitialBalance != current.InitialBalance {
		return core.Account{}, &core.InvariantError{
			Reason: "initial balance is locked once transactions reference the account; use a balance correction",
		}
	}

	saved, err := s.storage.UpdateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return saved, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id string) (core.Account, error) {
	return s.storage.GetAccount(ctx, id)
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.storage.ListAccounts(ctx)
}

func (s *LedgerService) DeleteAccount(ctx context.Context, id string) error {
	return s.storage.DeleteAccount(ctx, id)
}

// Balances folds the full transaction log into per-entity balances for
// the scope.
func (s *LedgerService) Balances(ctx context.Context, scope core.Scope) (*ledger.BalanceSet, error) {
	accounts, txs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Aggregate(accounts, txs, scope), nil
}

// DashboardEntry is one row of the dashboard: an account or a legacy
// ledger party with its derived balance.
type DashboardEntry struct {
	Key       ledger.EntityKey
	Name      string
	Balance   core.Money
	Formatted string
}

type Dashboard struct {
	Scope          core.Scope
	Total          core.Money
	TotalFormatted string
	// GrowthPct compares the current total with the total as of the end
	// of the previous month.
	GrowthPct int
	Entries   []DashboardEntry
}

// Dashboard builds the scoped dashboard with month-over-month growth.
func (s *LedgerService) Dashboard(ctx context.Context, scope core.Scope, now time.Time) (Dashboard, error) {
	accounts, txs, err := s.snapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	current := ledger.Aggregate(accounts, txs, scope)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	previous := ledger.AggregateAsOf(accounts, txs, scope, monthStart.Add(-time.Nanosecond))

	d := Dashboard{
		Scope:          scope,
		Total:          current.Total(),
		TotalFormatted: current.Total().Format(s.currencyCode),
		GrowthPct:      ledger.Growth(current.Total(), previous.Total()),
	}
	for _, e := range current.Entries() {
		d.Entries = append(d.Entries, DashboardEntry{
			Key:       e.Key,
			Name:      e.Name,
			Balance:   e.Balance,
			Formatted: e.Balance.Format(s.currencyCode),
		})
	}
	return d, nil
}

// AvailableCredit resolves the card family of the given card and computes
// its credit summary. Over-limit is reported in the summary, not as an
// error.
func (s *LedgerService) AvailableCredit(ctx context.Context, cardID string) (ledger.CreditSummary, error) {
	accounts, txs, err := s.snapshot(ctx)
	if err != nil {
		return ledger.CreditSummary{}, err
	}

	family, err := ledger.BuildCardFamily(accounts, cardID)
	if err != nil {
		return ledger.CreditSummary{}, err
	}

	balances := ledger.Aggregate(accounts, txs, core.ScopeManager)
	summary := ledger.AvailableCredit(family, balances)
	if summary.OverLimit {
		slog.WarnContext(ctx, "Card family over limit",
			"card_id", family.Head.ID,
			"available_cents", summary.Available.Cents)
	}
	return summary, nil
}

// CorrectBalance back-solves the initial balance that makes the aggregator
// reproduce target, and persists it under a version check. History is
// never rewritten.
func (s *LedgerService) CorrectBalance(ctx context.Context, accountID string, target core.Money) (core.Account, error) {
	account, err := s.storage.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}

	accounts, txs, err := s.snapshot(ctx)
	if err != nil {
		return core.Account{}, err
	}

	newInitial, err := ledger.SolveInitialBalance(accountID, accounts, txs, target)
	if err != nil {
		return core.Account{}, err
	}

	if err := s.storage.SetInitialBalance(ctx, accountID, newInitial.Cents, account.Version); err != nil {
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Balance corrected",
		"account_id", accountID,
		"target_cents", target.Cents,
		"new_initial_cents", newInitial.Cents)

	return s.storage.GetAccount(ctx, accountID)
}

// AddEMI registers an installment plan on a credit card. Remaining starts
// at the full principal.
func (s *LedgerService) AddEMI(ctx context.Context, accountID string, e core.EMI) (core.EMI, error) {
	account, err := s.storage.GetAccount(ctx, accountID)
	if err != nil {
		return core.EMI{}, err
	}
	if account.Type != core.AccountCreditCard {
		return core.EMI{}, &core.ValidationError{Field: "accountId", Reason: "EMIs belong to credit cards"}
	}

	e.Remaining = e.Total
	e.PaidMonths = 0
	e.Status = core.EMIActive
	if err := e.Validate(); err != nil {
		return core.EMI{}, err
	}

	return s.storage.AddEMI(ctx, accountID, e)
}

// SuggestInstallment computes the suggested principal/interest/GST split
// for the next installment of an EMI.
func (s *LedgerService) SuggestInstallment(ctx context.Context, accountID, emiID string) (ledger.InstallmentSuggestion, error) {
	_, emi, err := s.findEMI(ctx, accountID, emiID)
	if err != nil {
		return ledger.InstallmentSuggestion{}, err
	}
	return ledger.SuggestInstallment(emi), nil
}

// BillInstallment books one installment: a DEBIT transaction against the
// owning card and the EMI mutation, applied atomically under the account
// version. A stale version surfaces as a conflict; the caller retries from
// a fresh read.
func (s *LedgerService) BillInstallment(ctx context.Context, accountID, emiID string, principal, interest, gst core.Money, date time.Time) (core.Transaction, core.EMI, error) {
	account, emi, err := s.findEMI(ctx, accountID, emiID)
	if err != nil {
		return core.Transaction{}, core.EMI{}, err
	}
	if !emi.Active() {
		return core.Transaction{}, core.EMI{}, &core.InvariantError{Reason: "emi is closed"}
	}
	if principal.IsNegative() || interest.IsNegative() || gst.IsNegative() {
		return core.Transaction{}, core.EMI{}, &core.ValidationError{Field: "amount", Reason: "installment components must not be negative"}
	}

	txn := core.Transaction{
		Type:        core.Debit,
		Amount:      principal.Add(interest).Add(gst),
		Category:    "EMI",
		Description: fmt.Sprintf("EMI installment: %s", emi.Name),
		Date:        date,
		Scope:       core.ScopeManager,
		AccountID:   account.ID,
	}
	if err := txn.Validate(); err != nil {
		return core.Transaction{}, core.EMI{}, err
	}

	// Principal above remaining is tolerated; the clamp closes the EMI.
	updated := ledger.ApplyInstallment(emi, principal)

	savedTxn, savedEMI, err := s.storage.ApplyEMIBilling(ctx, txn, updated, account.ID, account.Version)
	if err != nil {
		return core.Transaction{}, core.EMI{}, err
	}

	s.publishSyncMessage(ctx, savedTxn.ID, savedTxn.Version)
	return savedTxn, savedEMI, nil
}

func (s *LedgerService) CloseEMI(ctx context.Context, accountID, emiID string) error {
	if _, _, err := s.findEMI(ctx, accountID, emiID); err != nil {
		return err
	}
	return s.storage.SetEMIStatus(ctx, accountID, emiID, core.EMIClosed)
}

func (s *LedgerService) DeleteEMI(ctx context.Context, accountID, emiID string) error {
	return s.storage.DeleteEMI(ctx, accountID, emiID)
}

func (s *LedgerService) findEMI(ctx context.Context, accountID, emiID string) (core.Account, core.EMI, error) {
	account, err := s.storage.GetAccount(ctx, accountID)
	if err != nil {
		return core.Account{}, core.EMI{}, err
	}
	for _, e := range account.EMIs {
		if e.ID == emiID {
			return account, e, nil
		}
	}
	return core.Account{}, core.EMI{}, &core.NotFoundError{Entity: "emi", ID: emiID}
}

// CashCheckRequest is the daily cash check submission.
type CashCheckRequest struct {
	AccountID      string // cash account the adjustment is booked against
	OpeningBalance core.Money
	TotalIn        core.Money
	TotalOut       core.Money
	ActualBalance  core.Money
	Reason         string
	AutoAdjust     bool
	Date           time.Time
}

type CashCheckResult struct {
	ExpectedBalance core.Money
	ActualBalance   core.Money
	Difference      core.Money
	Adjusted        bool
	Adjustment      *core.Transaction
}

// CashCheck compares the counted cash against the expected balance and,
// when AutoAdjust is set, books the difference as an adjustment
// transaction in the daily scope.
func (s *LedgerService) CashCheck(ctx context.Context, req CashCheckRequest) (CashCheckResult, error) {
	expected := req.OpeningBalance.Add(req.TotalIn).Sub(req.TotalOut)
	diff := req.ActualBalance.Sub(expected)

	result := CashCheckResult{
		ExpectedBalance: expected,
		ActualBalance:   req.ActualBalance,
		Difference:      diff,
	}

	if !req.AutoAdjust || diff.IsZero() {
		return result, nil
	}

	txnType := core.Credit
	if diff.IsNegative() {
		txnType = core.Debit
	}
	description := strings.TrimSpace(req.Reason)
	if description == "" {
		description = "cash check adjustment"
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	adjustment, err := s.CreateTransaction(ctx, core.Transaction{
		Type:        txnType,
		Amount:      diff.Abs(),
		Category:    "Adjustment",
		Description: description,
		Date:        date,
		Scope:       core.ScopeDaily,
		AccountID:   req.AccountID,
	})
	if err != nil {
		return CashCheckResult{}, fmt.Errorf("book adjustment: %w", err)
	}

	result.Adjusted = true
	result.Adjustment = &adjustment
	return result, nil
}

func (s *LedgerService) snapshot(ctx context.Context) ([]core.Account, []core.Transaction, error) {
	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := s.storage.ListTransactions(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	return accounts, txs, nil
}

func (s *LedgerService) publishSyncMessage(ctx context.Context, id string, version int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.amqpClient.PublishLedgerSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
