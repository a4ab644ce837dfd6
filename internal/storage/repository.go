// Package storage persists accounts, transactions and EMI records in
// SQLite. Balances are never stored here; they are derived by the ledger
// package from what this repository returns.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ledgerbook/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- transactions ---

const transactionColumns = "id, type, amount_cents, category, description, occurred_at, scope, account_id, linked_account_id, version"

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t         core.Transaction
		accountID sql.NullString
		linkedID  sql.NullString
	)
	err := row.Scan(&t.ID, &t.Type, &t.Amount.Cents, &t.Category, &t.Description,
		&t.Date, &t.Scope, &accountID, &linkedID, &t.Version)
	if err != nil {
		return core.Transaction{}, err
	}
	t.AccountID = accountID.String
	t.LinkedAccountID = linkedID.String
	return t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Version = 1

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount_cents, category, description, occurred_at, scope, account_id, linked_account_id, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Type, t.Amount.Cents, t.Category, t.Description, t.Date.UTC(),
		t.Scope, nullable(t.AccountID), nullable(t.LinkedAccountID), t.Version)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID, "type", t.Type, "amount_cents", t.Amount.Cents, "scope", t.Scope)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, amount_cents = ?, category = ?, description = ?, occurred_at = ?,
		    scope = ?, account_id = ?, linked_account_id = ?, version = version + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		t.Type, t.Amount.Cents, t.Category, t.Description, t.Date.UTC(),
		t.Scope, nullable(t.AccountID), nullable(t.LinkedAccountID), t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: t.ID}
	}
	return r.GetTransaction(ctx, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return nil
}

// ListTransactions returns transactions newest-first (date descending with
// an id tie-break). An empty scope lists every scope.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, scope core.Scope) ([]core.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions"
	args := []any{}
	if scope != "" {
		query += " WHERE scope = ?"
		args = append(args, scope)
	}
	query += " ORDER BY occurred_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// --- accounts ---

const accountColumns = "id, type, name, initial_balance_cents, credit_limit_cents, linked_account_id, bill_day, due_day, version"

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a        core.Account
		linkedID sql.NullString
	)
	err := row.Scan(&a.ID, &a.Type, &a.Name, &a.InitialBalance.Cents, &a.CreditLimit.Cents,
		&linkedID, &a.BillDay, &a.DueDay, &a.Version)
	if err != nil {
		return core.Account{}, err
	}
	a.LinkedAccountID = linkedID.String
	return a, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Version = 1

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, type, name, initial_balance_cents, credit_limit_cents, linked_account_id, bill_day, due_day, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Type, a.Name, a.InitialBalance.Cents, a.CreditLimit.Cents,
		nullable(a.LinkedAccountID), a.BillDay, a.DueDay, a.Version)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"id", a.ID, "type", a.Type, "name", a.Name)
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: id}
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}

	if a.EMIs, err = r.listEMIs(ctx, id); err != nil {
		return core.Account{}, err
	}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE account_id = ?1 OR linked_account_id = ?1", id).
		Scan(&a.TransactionCount); err != nil {
		return core.Account{}, fmt.Errorf("count account transactions: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	index := make(map[string]int)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		index[a.ID] = len(out)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	if err := r.attachEMIs(ctx, out, index); err != nil {
		return nil, err
	}
	if err := r.attachTransactionCounts(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) attachEMIs(ctx context.Context, accounts []core.Account, index map[string]int) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT account_id, "+emiColumns+" FROM emis ORDER BY created_at, id")
	if err != nil {
		return fmt.Errorf("list emis: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID string
		e, err := scanEMIWith(rows, &accountID)
		if err != nil {
			return fmt.Errorf("scan emi: %w", err)
		}
		if i, ok := index[accountID]; ok {
			accounts[i].EMIs = append(accounts[i].EMIs, e)
		}
	}
	return rows.Err()
}

func (r *SQLiteRepository) attachTransactionCounts(ctx context.Context, accounts []core.Account, index map[string]int) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ref, COUNT(*) FROM (
			SELECT account_id AS ref FROM transactions WHERE account_id IS NOT NULL
			UNION ALL
			SELECT linked_account_id AS ref FROM transactions WHERE linked_account_id IS NOT NULL
		) GROUP BY ref`)
	if err != nil {
		return fmt.Errorf("count transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref string
		var n int
		if err := rows.Scan(&ref, &n); err != nil {
			return fmt.Errorf("scan transaction count: %w", err)
		}
		if i, ok := index[ref]; ok {
			accounts[i].TransactionCount = n
		}
	}
	return rows.Err()
}

// UpdateAccount rewrites the account row under an optimistic-concurrency
// check on a.Version. EMIs and derived fields are not written here.
func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET type = ?, name = ?, initial_balance_cents = ?, credit_limit_cents = ?,
		    linked_account_id = ?, bill_day = ?, due_day = ?, version = version + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`,
		a.Type, a.Name, a.InitialBalance.Cents, a.CreditLimit.Cents,
		nullable(a.LinkedAccountID), a.BillDay, a.DueDay, a.ID, a.Version)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Account{}, r.accountWriteConflict(ctx, a.ID)
	}
	return r.GetAccount(ctx, a.ID)
}

// SetInitialBalance persists a corrected initial balance under the same
// optimistic-concurrency check used by UpdateAccount.
func (r *SQLiteRepository) SetInitialBalance(ctx context.Context, id string, cents int64, expectedVersion int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET initial_balance_cents = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`,
		cents, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("set initial balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.accountWriteConflict(ctx, id)
	}
	slog.InfoContext(ctx, "Initial balance corrected", "account_id", id, "initial_balance_cents", cents)
	return nil
}

// accountWriteConflict distinguishes a vanished account from a stale
// version after a zero-row CAS update.
func (r *SQLiteRepository) accountWriteConflict(ctx context.Context, id string) error {
	var exists int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM accounts WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Entity: "account", ID: id}
	}
	if err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	return &core.ConflictError{Entity: "account", ID: id}
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "account", ID: id}
	}
	return nil
}

// --- EMIs ---

const emiColumns = "id, name, total_cents, remaining_cents, tenure_months, paid_months, interest_rate, gst_rate, status"

func scanEMIWith(row interface{ Scan(...any) error }, extra ...any) (core.EMI, error) {
	var e core.EMI
	dest := append(extra, &e.ID, &e.Name, &e.Total.Cents, &e.Remaining.Cents,
		&e.TenureMonths, &e.PaidMonths, &e.InterestRate, &e.GSTRate, &e.Status)
	if err := row.Scan(dest...); err != nil {
		return core.EMI{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) listEMIs(ctx context.Context, accountID string) ([]core.EMI, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+emiColumns+" FROM emis WHERE account_id = ? ORDER BY created_at, id", accountID)
	if err != nil {
		return nil, fmt.Errorf("list emis: %w", err)
	}
	defer rows.Close()

	var out []core.EMI
	for rows.Next() {
		e, err := scanEMIWith(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emi: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddEMI(ctx context.Context, accountID string, e core.EMI) (core.EMI, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emis (id, account_id, name, total_cents, remaining_cents, tenure_months, paid_months, interest_rate, gst_rate, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, accountID, e.Name, e.Total.Cents, e.Remaining.Cents,
		e.TenureMonths, e.PaidMonths, e.InterestRate, e.GSTRate, e.Status)
	if err != nil {
		return core.EMI{}, fmt.Errorf("insert emi: %w", err)
	}

	slog.InfoContext(ctx, "EMI added",
		"account_id", accountID, "emi_id", e.ID, "total_cents", e.Total.Cents, "tenure_months", e.TenureMonths)
	return e, nil
}

func (r *SQLiteRepository) DeleteEMI(ctx context.Context, accountID, emiID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM emis WHERE id = ? AND account_id = ?", emiID, accountID)
	if err != nil {
		return fmt.Errorf("delete emi: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "emi", ID: emiID}
	}
	return nil
}

func (r *SQLiteRepository) SetEMIStatus(ctx context.Context, accountID, emiID string, status core.EMIStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE emis SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND account_id = ?`, status, emiID, accountID)
	if err != nil {
		return fmt.Errorf("set emi status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "emi", ID: emiID}
	}
	return nil
}

// ApplyEMIBilling writes one billed installment atomically: the debit
// transaction, the mutated EMI and the account version bump commit or roll
// back together, so a crash can never leave the installment half-applied.
// The version check turns a concurrent billing into a ConflictError.
func (r *SQLiteRepository) ApplyEMIBilling(ctx context.Context, t core.Transaction, e core.EMI, accountID string, expectedVersion int64) (core.Transaction, core.EMI, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Version = 1

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, core.EMI{}, fmt.Errorf("begin billing transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount_cents, category, description, occurred_at, scope, account_id, linked_account_id, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Type, t.Amount.Cents, t.Category, t.Description, t.Date.UTC(),
		t.Scope, nullable(t.AccountID), nullable(t.LinkedAccountID), t.Version)
	if err != nil {
		return core.Transaction{}, core.EMI{}, fmt.Errorf("insert billing transaction: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, `
		UPDATE emis SET remaining_cents = ?, paid_months = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND account_id = ?`,
		e.Remaining.Cents, e.PaidMonths, e.Status, e.ID, accountID)
	if err != nil {
		return core.Transaction{}, core.EMI{}, fmt.Errorf("update emi: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.EMI{}, &core.NotFoundError{Entity: "emi", ID: e.ID}
	}

	res, err = dbTx.ExecContext(ctx, `
		UPDATE accounts SET version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`, accountID, expectedVersion)
	if err != nil {
		return core.Transaction{}, core.EMI{}, fmt.Errorf("bump account version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.EMI{}, &core.ConflictError{Entity: "account", ID: accountID}
	}

	if err := dbTx.Commit(); err != nil {
		return core.Transaction{}, core.EMI{}, fmt.Errorf("commit billing: %w", err)
	}

	slog.InfoContext(ctx, "EMI installment billed",
		"account_id", accountID, "emi_id", e.ID,
		"amount_cents", t.Amount.Cents, "remaining_cents", e.Remaining.Cents, "status", e.Status)
	return t, e, nil
}
