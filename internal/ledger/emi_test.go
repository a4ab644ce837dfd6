package ledger

import (
	"testing"

	"ledgerbook/internal/core"
)

func emi(remainingCents int64, tenure, paid int) core.EMI {
	return core.EMI{
		ID:           "e1",
		Name:         "fridge",
		Total:        core.Money{Cents: 1200000},
		Remaining:    core.Money{Cents: remainingCents},
		TenureMonths: tenure,
		PaidMonths:   paid,
		Status:       core.EMIActive,
	}
}

func TestApplyInstallment(t *testing.T) {
	cases := []struct {
		name          string
		emi           core.EMI
		principal     int64
		wantRemaining int64
		wantPaid      int
		wantStatus    core.EMIStatus
	}{
		{"normal billing", emi(1200000, 12, 0), 100000, 1100000, 1, core.EMIActive},
		{"principal equals remaining closes", emi(100000, 12, 3), 100000, 0, 4, core.EMIClosed},
		{"overpaid principal clamps to zero", emi(50000, 12, 3), 80000, 0, 4, core.EMIClosed},
		{"sub-unit residue closes", emi(100050, 12, 3), 100000, 0, 4, core.EMIClosed},
		{"tenure exhausted closes", emi(400000, 4, 3), 100000, 0, 4, core.EMIClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplyInstallment(tc.emi, core.Money{Cents: tc.principal})
			if got.Remaining.Cents != tc.wantRemaining {
				t.Fatalf("remaining = %d, want %d", got.Remaining.Cents, tc.wantRemaining)
			}
			if got.PaidMonths != tc.wantPaid {
				t.Fatalf("paid months = %d, want %d", got.PaidMonths, tc.wantPaid)
			}
			if got.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", got.Status, tc.wantStatus)
			}
		})
	}
}

func TestSuggestInstallment(t *testing.T) {
	e := emi(1200000, 12, 0)
	e.InterestRate = 12 // 1% per month
	e.GSTRate = 18

	s := SuggestInstallment(e)
	if s.Principal.Cents != 100000 {
		t.Fatalf("principal = %d, want 100000", s.Principal.Cents)
	}
	if s.Interest.Cents != 12000 {
		t.Fatalf("interest = %d, want 12000", s.Interest.Cents)
	}
	if s.GST.Cents != 2160 {
		t.Fatalf("gst = %d, want 2160", s.GST.Cents)
	}
	if s.Total().Cents != 114160 {
		t.Fatalf("total = %d, want 114160", s.Total().Cents)
	}
}

func TestSuggestInstallmentLastMonthTakesRemainder(t *testing.T) {
	e := emi(70000, 7, 6)
	s := SuggestInstallment(e)
	if s.Principal.Cents != 70000 {
		t.Fatalf("principal = %d, want full remaining 70000", s.Principal.Cents)
	}
}
