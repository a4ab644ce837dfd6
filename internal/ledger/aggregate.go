// Package ledger implements the balance aggregation and reconciliation
// engine: pure folds over the transaction log that derive per-account and
// per-party balances, credit-limit availability across card families, and
// back-solved initial balances for manual corrections.
//
// Nothing in this package mutates state or talks to storage. Callers fetch
// a snapshot of accounts and transactions, fold it, and are themselves
// responsible for re-running the fold after any write.
package ledger

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"ledgerbook/internal/core"
)

// EntityKey identifies one balance row: either a registered account or a
// legacy ledger party matched by normalized description.
type EntityKey struct {
	AccountID string
	Party     string
}

func AccountKey(id string) EntityKey { return EntityKey{AccountID: id} }

func PartyKey(name string) EntityKey {
	return EntityKey{Party: core.NormalizeParty(name)}
}

func (k EntityKey) IsParty() bool { return k.AccountID == "" }

// Entry is one aggregated balance row.
type Entry struct {
	Key     EntityKey
	Name    string
	Balance core.Money
}

// BalanceSet holds the result of one aggregation pass.
type BalanceSet struct {
	balances map[EntityKey]int64
	names    map[EntityKey]string
}

func newBalanceSet() *BalanceSet {
	return &BalanceSet{
		balances: make(map[EntityKey]int64),
		names:    make(map[EntityKey]string),
	}
}

// Account returns the derived balance of a registered account.
func (s *BalanceSet) Account(id string) core.Money {
	return core.Money{Cents: s.balances[AccountKey(id)]}
}

// Party returns the derived balance of a legacy ledger party.
func (s *BalanceSet) Party(name string) core.Money {
	return core.Money{Cents: s.balances[PartyKey(name)]}
}

// Has reports whether the key received a seed or at least one effect.
func (s *BalanceSet) Has(key EntityKey) bool {
	_, ok := s.balances[key]
	return ok
}

// Total sums every entry in the set.
func (s *BalanceSet) Total() core.Money {
	var sum int64
	for _, v := range s.balances {
		sum += v
	}
	return core.Money{Cents: sum}
}

// Entries returns all rows sorted by name for stable presentation.
// Aggregation itself is order-independent; this ordering is cosmetic.
func (s *BalanceSet) Entries() []Entry {
	out := make([]Entry, 0, len(s.balances))
	for k, v := range s.balances {
		out = append(out, Entry{Key: k, Name: s.names[k], Balance: core.Money{Cents: v}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Key.AccountID < out[j].Key.AccountID
	})
	return out
}

func (s *BalanceSet) add(key EntityKey, name string, cents int64) {
	s.balances[key] += cents
	if name != "" {
		s.names[key] = name
	}
}

// signedEffect returns the cent effect of a transaction leg. Credits add,
// debits subtract; the linked leg of a transfer inverts the sign.
func signedEffect(t core.Transaction, inverted bool) int64 {
	eff := t.Amount.Cents
	if t.Type == core.Debit {
		eff = -eff
	}
	if inverted {
		eff = -eff
	}
	return eff
}

// Aggregate folds the transaction log into a balance per account and per
// distinct legacy ledger party, seeded from initial balances.
//
// Bank/Cash/CreditCard accounts are scope-agnostic running totals and fold
// their legs regardless of transaction scope. Other-type accounts belong to
// the manager ledger and, like legacy party buckets, fold only transactions
// in the target scope. A legacy transaction whose description matches the
// name of an Other-type account is routed into that account, never into a
// separate bucket, so the same party is counted exactly once.
func Aggregate(accounts []core.Account, txs []core.Transaction, scope core.Scope) *BalanceSet {
	return AggregateAsOf(accounts, txs, scope, time.Time{})
}

// AggregateAsOf is Aggregate with a cutoff: only transactions dated at or
// before the cutoff are folded. A zero cutoff means "now" and keeps
// future-dated transactions included, matching current-balance semantics.
func AggregateAsOf(accounts []core.Account, txs []core.Transaction, scope core.Scope, cutoff time.Time) *BalanceSet {
	set := newBalanceSet()

	// Other-type accounts live in the manager ledger; they are seeded and
	// folded only when aggregating that scope. They still claim their name
	// in every scope so a matching legacy transaction is never double
	// counted into a separate bucket.
	participates := func(a core.Account) bool {
		return a.Type.IsInstrument() || scope == core.ScopeManager
	}

	byID := make(map[string]core.Account, len(accounts))
	claimed := make(map[string]core.Account) // normalized Other-account name -> account
	for _, a := range accounts {
		byID[a.ID] = a
		if a.Type == core.AccountOther {
			claimed[core.NormalizeParty(a.Name)] = a
		}
		if participates(a) {
			set.add(AccountKey(a.ID), a.Name, a.InitialBalance.Cents)
		}
	}

	for _, t := range txs {
		if !cutoff.IsZero() && t.Date.After(cutoff) {
			continue
		}
		if t.Amount.Cents < 0 {
			// A malformed amount must not corrupt the sum; skip with zero
			// effect and leave the rest of the fold intact.
			slog.Warn("Skipping transaction with malformed amount",
				"transaction_id", t.ID, "amount_cents", t.Amount.Cents)
			continue
		}

		resolved := false
		if a, ok := byID[t.AccountID]; t.AccountID != "" && ok {
			if participates(a) && (a.Type.IsInstrument() || t.Scope == scope) {
				set.add(AccountKey(a.ID), a.Name, signedEffect(t, false))
			}
			resolved = true
		}
		if a, ok := byID[t.LinkedAccountID]; t.LinkedAccountID != "" && ok {
			if participates(a) && (a.Type.IsInstrument() || t.Scope == scope) {
				set.add(AccountKey(a.ID), a.Name, signedEffect(t, true))
			}
			resolved = true
		}
		if resolved || t.Scope != scope {
			continue
		}

		// Legacy path: neither leg resolved to a registered account. Route
		// claimed names into their account, everything else into a party
		// bucket keyed by normalized description.
		party := core.NormalizeParty(t.Description)
		if party == "" {
			continue
		}
		if a, ok := claimed[party]; ok {
			if participates(a) {
				set.add(AccountKey(a.ID), a.Name, signedEffect(t, false))
			}
			continue
		}
		set.add(PartyKey(t.Description), party, signedEffect(t, false))
	}

	return set
}

// Growth returns the month-over-month trend percent between two balances,
// rounded to the nearest integer.
func Growth(current, previous core.Money) int {
	if previous.Cents == 0 {
		if current.Cents == 0 {
			return 0
		}
		return 100
	}
	diff := float64(current.Cents-previous.Cents) / float64(previous.Cents) * 100
	return int(math.Round(diff))
}
