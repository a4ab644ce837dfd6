package ledger

import (
	"ledgerbook/internal/core"
)

// TransactionsSum returns the signed effect sum accrued by one account,
// that is its aggregated balance minus the initial-balance seed. The same
// resolution rules as Aggregate apply (primary leg, inverted linked leg,
// claimed legacy names), so back-solving from this sum is equivalent to
// replaying history from a different starting point.
func TransactionsSum(accountID string, accounts []core.Account, txs []core.Transaction) (core.Money, error) {
	var target *core.Account
	zeroed := make([]core.Account, len(accounts))
	for i, a := range accounts {
		if a.ID == accountID {
			a.InitialBalance = core.Money{}
			target = &accounts[i]
		}
		zeroed[i] = a
	}
	if target == nil {
		return core.Money{}, &core.NotFoundError{Entity: "account", ID: accountID}
	}
	// Manager-scope aggregation covers every account kind: instruments fold
	// all scopes and Other-type parties fold their own.
	return Aggregate(zeroed, txs, core.ScopeManager).Account(accountID), nil
}

// SolveInitialBalance back-solves the initial balance that makes the
// aggregator reproduce target as the account's current balance, without
// touching any historical transaction.
func SolveInitialBalance(accountID string, accounts []core.Account, txs []core.Transaction, target core.Money) (core.Money, error) {
	sum, err := TransactionsSum(accountID, accounts, txs)
	if err != nil {
		return core.Money{}, err
	}
	return target.Sub(sum), nil
}
