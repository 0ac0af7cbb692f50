package core

import (
	"testing"
	"time"
)

func codes(tiers []Tier) []string {
	out := make([]string, len(tiers))
	for i, t := range tiers {
		out[i] = t.Code
	}
	return out
}

func equalCodes(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTiersSatisfied(t *testing.T) {
	tests := []struct {
		name   string
		spend  int64
		budget int64
		want   []string
	}{
		{"zero spend", 0, 100000, nil},
		{"below fifty", 40000, 100000, nil},
		{"just under fifty", 49999, 100000, nil},
		{"exactly fifty", 50000, 100000, []string{"BUDGET_50_REACHED"}},
		{"eighty satisfies fifty too", 80000, 100000, []string{"BUDGET_50_REACHED", "BUDGET_80_REACHED"}},
		{"just under hundred", 99999, 100000, []string{"BUDGET_50_REACHED", "BUDGET_80_REACHED"}},
		{"spend equals budget", 100000, 100000, []string{"BUDGET_50_REACHED", "BUDGET_80_REACHED", "BUDGET_100_REACHED"}},
		{"over budget", 120000, 100000, []string{"BUDGET_50_REACHED", "BUDGET_80_REACHED", "BUDGET_100_REACHED"}},
		{"no budget set", 120000, 0, nil},
		{"negative budget", 120000, -1, nil},
		{"tiny budget exact boundary", 1, 2, []string{"BUDGET_50_REACHED"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TiersSatisfied(Money{Cents: tt.spend}, Money{Cents: tt.budget})
			if !equalCodes(codes(got), tt.want) {
				t.Errorf("TiersSatisfied(%d, %d) = %v, want %v",
					tt.spend, tt.budget, codes(got), tt.want)
			}
		})
	}
}

func TestTiersSatisfiedIsAscending(t *testing.T) {
	got := TiersSatisfied(Money{Cents: 100}, Money{Cents: 100})
	for i := 1; i < len(got); i++ {
		if got[i-1].Cutoff >= got[i].Cutoff {
			t.Fatalf("tiers not in ascending cutoff order: %v", codes(got))
		}
	}
}

func TestYearMonth(t *testing.T) {
	ym := YearMonthOf(time.Date(2026, time.February, 17, 13, 45, 0, 0, time.UTC))
	if ym != "2026-02" {
		t.Fatalf("YearMonthOf = %q, want 2026-02", ym)
	}
	if err := ym.Validate(); err != nil {
		t.Fatalf("Validate(%q): %v", ym, err)
	}
	if err := YearMonth("2026-2").Validate(); err == nil {
		t.Error("Validate should reject non-padded month")
	}

	start, end := ym.Bounds()
	if start != time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Bounds start = %v", start)
	}
	if end != time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Bounds end = %v", end)
	}
}
