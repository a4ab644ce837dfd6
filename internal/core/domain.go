package core

import (
	"strings"
	"time"
)

const (
	Credit TransactionType = "credit"
	Debit  TransactionType = "debit"
)

const (
	ScopeManager Scope = "manager"
	ScopeDaily   Scope = "daily"
)

const (
	AccountBank       AccountType = "bank"
	AccountCash       AccountType = "cash"
	AccountCreditCard AccountType = "credit_card"
	AccountOther      AccountType = "other"
)

const (
	EMIActive EMIStatus = "active"
	EMIClosed EMIStatus = "closed"
)

type (
	TransactionType string
	Scope           string
	AccountType     string
	EMIStatus       string

	// Transaction is one signed monetary event in the flat log. A credit
	// increases the balance of its account, a debit decreases it. When
	// LinkedAccountID is set the transaction is also the linked leg of a
	// transfer, applied to the second account with the sign inverted.
	Transaction struct {
		ID              string
		Type            TransactionType
		Amount          Money // non-negative
		Category        string
		Description     string
		Date            time.Time
		Scope           Scope
		AccountID       string // optional, empty when unlinked
		LinkedAccountID string // optional second leg
		Version         int64
	}

	// EMI is an installment plan blocking part of a credit limit until paid.
	EMI struct {
		ID           string
		Name         string
		Total        Money // original principal, fixed at creation
		Remaining    Money // principal still blocking the limit
		TenureMonths int
		PaidMonths   int
		InterestRate float64 // yearly percent, used for suggested installments only
		GSTRate      float64 // percent applied on the interest component
		Status       EMIStatus
	}

	// Account is a Bank/Cash/CreditCard instrument or an Other-type ledger
	// party. Persisted balances are caches; InitialBalance plus the signed
	// sum of transactions referencing the account is the source of truth.
	Account struct {
		ID              string
		Type            AccountType
		Name            string
		InitialBalance  Money  // signed
		CreditLimit     Money  // head credit cards only, forced to 0 on add-ons
		LinkedAccountID string // add-on card pointing at its head card
		BillDay         int    // day of month, 0 when unset
		DueDay          int    // day of month, 0 when unset
		EMIs            []EMI
		// TransactionCount counts transactions referencing the account as
		// primary or linked leg. Gates direct InitialBalance edits.
		TransactionCount int
		Version          int64
	}
)

// NormalizeParty lower-cases and trims a ledger party name. Legacy
// transactions carry the party only in their description; this is the
// matching key for both legacy buckets and claimed Other-account names.
func NormalizeParty(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (t TransactionType) Valid() bool {
	return t == Credit || t == Debit
}

func (s Scope) Valid() bool {
	return s == ScopeManager || s == ScopeDaily
}

func (a AccountType) Valid() bool {
	switch a {
	case AccountBank, AccountCash, AccountCreditCard, AccountOther:
		return true
	}
	return false
}

// IsInstrument reports whether balances of this account type are
// scope-agnostic running totals (everything except ledger parties).
func (a AccountType) IsInstrument() bool {
	return a == AccountBank || a == AccountCash || a == AccountCreditCard
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "must be credit or debit"}
	}
	if t.Amount.Cents < 0 {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if !t.Scope.Valid() {
		return &ValidationError{Field: "scope", Reason: "must be manager or daily"}
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "missing"}
	}
	if t.AccountID == "" && t.LinkedAccountID != "" {
		return &ValidationError{Field: "linkedAccountId", Reason: "requires a primary account"}
	}
	if t.AccountID != "" && t.AccountID == t.LinkedAccountID {
		return &ValidationError{Field: "linkedAccountId", Reason: "must differ from the primary account"}
	}
	if t.AccountID == "" && strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Field: "description", Reason: "required when no account is linked"}
	}
	if len(t.Description) > 200 {
		return &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	return nil
}

func (a Account) Validate() error {
	if !a.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown account type"}
	}
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Field: "name", Reason: "empty"}
	}
	if len(a.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "too long (max 100 characters)"}
	}
	if a.CreditLimit.Cents < 0 {
		return &ValidationError{Field: "creditLimit", Reason: "must not be negative"}
	}
	if a.Type != AccountCreditCard {
		if a.CreditLimit.Cents != 0 {
			return &ValidationError{Field: "creditLimit", Reason: "only credit cards carry a limit"}
		}
		if a.LinkedAccountID != "" {
			return &ValidationError{Field: "linkedAccountId", Reason: "only credit cards link to a head card"}
		}
	}
	// Add-on cards share the head card's limit.
	if a.LinkedAccountID != "" && a.CreditLimit.Cents != 0 {
		return &ValidationError{Field: "creditLimit", Reason: "add-on cards must not carry their own limit"}
	}
	if a.ID != "" && a.LinkedAccountID == a.ID {
		return &ValidationError{Field: "linkedAccountId", Reason: "account cannot link to itself"}
	}
	if err := validateDayOfMonth("billDay", a.BillDay); err != nil {
		return err
	}
	if err := validateDayOfMonth("dueDay", a.DueDay); err != nil {
		return err
	}
	return nil
}

func validateDayOfMonth(field string, day int) error {
	if day < 0 || day > 31 {
		return &ValidationError{Field: field, Reason: "must be a day of month (1-31)"}
	}
	return nil
}

func (e EMI) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &ValidationError{Field: "name", Reason: "empty"}
	}
	if e.Total.Cents <= 0 {
		return &ValidationError{Field: "totalAmount", Reason: "must be positive"}
	}
	if e.Remaining.Cents < 0 || e.Remaining.Cents > e.Total.Cents {
		return &InvariantError{Reason: "emi remaining amount outside [0, total]"}
	}
	if e.TenureMonths <= 0 {
		return &InvariantError{Reason: "emi tenure must be positive"}
	}
	if e.PaidMonths < 0 {
		return &InvariantError{Reason: "emi paid months must not be negative"}
	}
	if e.InterestRate < 0 || e.GSTRate < 0 {
		return &ValidationError{Field: "interestRate", Reason: "rates must not be negative"}
	}
	if e.Status != EMIActive && e.Status != EMIClosed {
		return &ValidationError{Field: "status", Reason: "must be active or closed"}
	}
	return nil
}

// Active reports whether the EMI still blocks credit limit.
func (e EMI) Active() bool {
	return e.Status == EMIActive
}
