package ledger

import (
	"ledgerbook/internal/core"
)

// CardFamily is a head credit card together with the add-on cards sharing
// its limit. The head is the card without a LinkedAccountID.
type CardFamily struct {
	Head   core.Account
	AddOns []core.Account
}

// BuildCardFamily resolves the family of a head card from the registry.
// Passing an add-on card id walks up to its head first.
func BuildCardFamily(accounts []core.Account, cardID string) (CardFamily, error) {
	byID := make(map[string]core.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	head, ok := byID[cardID]
	if !ok {
		return CardFamily{}, &core.NotFoundError{Entity: "account", ID: cardID}
	}
	if head.Type != core.AccountCreditCard {
		return CardFamily{}, &core.ValidationError{Field: "accountId", Reason: "not a credit card"}
	}
	if head.LinkedAccountID != "" {
		parent, ok := byID[head.LinkedAccountID]
		if !ok {
			return CardFamily{}, &core.NotFoundError{Entity: "account", ID: head.LinkedAccountID}
		}
		head = parent
	}

	fam := CardFamily{Head: head}
	for _, a := range accounts {
		if a.Type == core.AccountCreditCard && a.LinkedAccountID == head.ID {
			fam.AddOns = append(fam.AddOns, a)
		}
	}
	return fam, nil
}

// Members returns head plus add-ons.
func (f CardFamily) Members() []core.Account {
	return append([]core.Account{f.Head}, f.AddOns...)
}

// EMIBlocked sums the remaining principal of every Active EMI across the
// family. Closed EMIs contribute nothing.
func (f CardFamily) EMIBlocked() core.Money {
	var sum int64
	for _, a := range f.Members() {
		for _, e := range a.EMIs {
			if e.Active() {
				sum += e.Remaining.Cents
			}
		}
	}
	return core.Money{Cents: sum}
}

// Usage sums the balance magnitudes of every family member. Card balances
// are negative-for-debt by convention, so the magnitude is what consumes
// the shared limit.
func (f CardFamily) Usage(balances *BalanceSet) core.Money {
	var sum int64
	for _, a := range f.Members() {
		sum += balances.Account(a.ID).Abs().Cents
	}
	return core.Money{Cents: sum}
}

// CreditSummary is the derived credit state of a card family.
type CreditSummary struct {
	Limit      core.Money
	Used       core.Money
	EMIBlocked core.Money
	Available  core.Money
	// OverLimit flags a negative Available. Callers surface it as a
	// warning, not an error.
	OverLimit bool
}

// AvailableCredit computes the available credit of a card family from the
// shared limit, aggregate usage and active EMI blocks.
func AvailableCredit(f CardFamily, balances *BalanceSet) CreditSummary {
	used := f.Usage(balances)
	blocked := f.EMIBlocked()
	available := f.Head.CreditLimit.Sub(used).Sub(blocked)
	return CreditSummary{
		Limit:      f.Head.CreditLimit,
		Used:       used,
		EMIBlocked: blocked,
		Available:  available,
		OverLimit:  available.IsNegative(),
	}
}

// InitialBalanceForCard derives the stored initial balance of a new credit
// card from the user-supplied "current available limit" and the limit it is
// measured against (the card's own limit for a head, the parent's for an
// add-on). The result is negative when the card is already utilized.
func InitialBalanceForCard(available, limit core.Money) core.Money {
	return available.Sub(limit)
}
