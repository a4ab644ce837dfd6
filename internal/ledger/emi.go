package ledger

import (
	"math"

	"ledgerbook/internal/core"
)

// InstallmentSuggestion is the pre-filled breakdown offered when billing an
// EMI installment. The caller may override any component; the rates are not
// re-verified afterwards.
type InstallmentSuggestion struct {
	Principal core.Money
	Interest  core.Money
	GST       core.Money
}

// Total is the debit amount a billing with this breakdown would post.
func (s InstallmentSuggestion) Total() core.Money {
	return s.Principal.Add(s.Interest).Add(s.GST)
}

// SuggestInstallment computes the suggested next installment for an EMI:
// remaining principal spread over the months left, one month of interest on
// the outstanding principal, and GST on that interest.
func SuggestInstallment(e core.EMI) InstallmentSuggestion {
	monthsLeft := e.TenureMonths - e.PaidMonths
	if monthsLeft < 1 {
		monthsLeft = 1
	}
	principal := e.Remaining.Cents / int64(monthsLeft)
	interest := int64(math.Round(float64(e.Remaining.Cents) * e.InterestRate / 100 / 12))
	gst := int64(math.Round(float64(interest) * e.GSTRate / 100))
	return InstallmentSuggestion{
		Principal: core.Money{Cents: principal},
		Interest:  core.Money{Cents: interest},
		GST:       core.Money{Cents: gst},
	}
}

// ApplyInstallment mutates a copy of the EMI with one billed installment:
// the paid-month counter advances and the principal component is released
// from the blocked amount, clamped at zero. Billing more principal than
// remains is deliberately tolerated for manual corrections. The EMI closes
// when the remaining amount falls under one currency unit or the tenure is
// exhausted.
func ApplyInstallment(e core.EMI, principal core.Money) core.EMI {
	e.PaidMonths++
	e.Remaining.Cents -= principal.Cents
	if e.Remaining.Cents < 0 {
		e.Remaining.Cents = 0
	}
	if e.Remaining.Cents < 100 || e.PaidMonths >= e.TenureMonths {
		e.Status = core.EMIClosed
		e.Remaining = core.Money{}
	}
	return e
}
