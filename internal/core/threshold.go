package core

import "fmt"

// Tier is one of the fixed budget alert thresholds. Tiers are totally
// ordered by Cutoff.
type Tier struct {
	Code   string
	Cutoff int64 // percent of budget
	Title  string
}

var (
	TierFifty   = Tier{Code: "BUDGET_50_REACHED", Cutoff: 50, Title: "Budget 50% reached"}
	TierEighty  = Tier{Code: "BUDGET_80_REACHED", Cutoff: 80, Title: "Budget 80% reached"}
	TierHundred = Tier{Code: "BUDGET_100_REACHED", Cutoff: 100, Title: "Budget exceeded"}

	// Tiers lists all thresholds in ascending cutoff order.
	Tiers = []Tier{TierFifty, TierEighty, TierHundred}
)

// Message renders the notification body for this tier.
func (t Tier) Message(spend, budget Money) string {
	pct := spend.Cents * 100 / budget.Cents
	switch t.Code {
	case TierHundred.Code:
		return fmt.Sprintf("The monthly budget has been exceeded: %s spent of %s (%d%%).",
			spend.Format(), budget.Format(), pct)
	default:
		return fmt.Sprintf("Spending has reached %d%% of the monthly budget: %s spent of %s (%d%%).",
			t.Cutoff, spend.Format(), budget.Format(), pct)
	}
}

// TiersSatisfied returns every tier whose cutoff the current spend has
// reached, in ascending order. With no budget (zero or negative cents)
// no tier can be satisfied.
//
// The comparison is exact and non-strict: spend*100 >= budget*cutoff on
// integer cents, so a spend equal to the budget satisfies the 100% tier.
// Callers filter out tiers already alerted; this function stays pure.
func TiersSatisfied(spend, budget Money) []Tier {
	if budget.Cents <= 0 {
		return nil
	}
	var satisfied []Tier
	for _, t := range Tiers {
		if spend.Cents*100 >= budget.Cents*t.Cutoff {
			satisfied = append(satisfied, t)
		}
	}
	return satisfied
}
