// Package alert evaluates budget thresholds after committed expense
// mutations and emits at most one notification per family, tier and month.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

// BudgetSource exposes a family's monthly budget. ok is false when the
// family is unknown or inactive.
type BudgetSource interface {
	MonthlyBudget(ctx context.Context, familyID core.FamilyID) (budget core.Money, ok bool, err error)
}

// SpendAggregator sums the expenses booked within one calendar month.
// The total is computed fresh per evaluation; it is never cached because
// concurrent mutations keep changing it.
type SpendAggregator interface {
	MonthToDateExpense(ctx context.Context, familyID core.FamilyID, month core.YearMonth) (core.Money, error)
}

// AlertLedger records that a tier has been alerted for a family and month.
// TryCreate must be atomic create-if-absent: created is false when an
// entry already exists for the key, which is a normal outcome, not an
// error. This single guarantee carries all concurrency correctness; the
// engine takes no locks of its own.
type AlertLedger interface {
	TryCreate(ctx context.Context, familyID core.FamilyID, tierCode string, month core.YearMonth) (created bool, err error)
}

// NotificationSink is the durable store polled by the notification API.
type NotificationSink interface {
	InsertNotification(ctx context.Context, n core.Notification) error
}

// Engine runs one threshold evaluation per delivered expense event. It is
// stateless between evaluations and safe for concurrent use.
type Engine struct {
	budgets BudgetSource
	spend   SpendAggregator
	ledger  AlertLedger
	sink    NotificationSink
	now     func() time.Time
}

func NewEngine(budgets BudgetSource, spend SpendAggregator, ledger AlertLedger, sink NotificationSink) *Engine {
	return &Engine{
		budgets: budgets,
		spend:   spend,
		ledger:  ledger,
		sink:    sink,
		now:     time.Now,
	}
}

// HandleExpenseMutation is the engine boundary called once per committed
// expense create or update. It never propagates failure: a missed alert
// is an acceptable degradation, while blocking or failing the originating
// expense write is not. Duplicate deliveries are harmless because the
// ledger absorbs them.
func (e *Engine) HandleExpenseMutation(ctx context.Context, familyID core.FamilyID, expenseDate time.Time) {
	e.CheckMonth(ctx, familyID, core.YearMonthOf(expenseDate))
}

// CheckMonth evaluates one family/month pair directly. The periodic
// backstop uses it to re-check months with recent activity; idempotency
// makes re-evaluation free.
func (e *Engine) CheckMonth(ctx context.Context, familyID core.FamilyID, month core.YearMonth) {
	created, err := e.evaluate(ctx, familyID, month)
	if err != nil {
		slog.ErrorContext(ctx, "Budget alert evaluation failed",
			log.FieldFamilyID, familyID,
			log.FieldAlertMonth, month,
			log.FieldError, err)
		return
	}
	if created > 0 {
		slog.InfoContext(ctx, "Budget alerts emitted",
			log.FieldFamilyID, familyID,
			log.FieldAlertMonth, month,
			"count", created)
	}
}

// evaluate performs one pass: fetch budget, aggregate spend, compute the
// satisfied tiers and emit a notification for each tier whose ledger
// entry this evaluation created. Returns how many notifications were
// emitted.
func (e *Engine) evaluate(ctx context.Context, familyID core.FamilyID, month core.YearMonth) (int, error) {
	budget, ok, err := e.budgets.MonthlyBudget(ctx, familyID)
	if err != nil {
		return 0, fmt.Errorf("fetch budget: %w", err)
	}
	if !ok || budget.Cents <= 0 {
		// No family or no budget set: nothing to alert on.
		return 0, nil
	}

	spend, err := e.spend.MonthToDateExpense(ctx, familyID, month)
	if err != nil {
		return 0, fmt.Errorf("aggregate month-to-date spend: %w", err)
	}

	created := 0
	for _, tier := range core.TiersSatisfied(spend, budget) {
		isNew, err := e.ledger.TryCreate(ctx, familyID, tier.Code, month)
		if err != nil {
			return created, fmt.Errorf("ledger create %s: %w", tier.Code, err)
		}
		if !isNew {
			// Already alerted this month, possibly by a concurrent
			// evaluation that won the insert race.
			continue
		}

		n := core.Notification{
			ID:         uuid.NewString(),
			FamilyID:   familyID,
			Type:       tier.Code,
			Title:      tier.Title,
			Message:    tier.Message(spend, budget),
			AlertMonth: month,
			IsRead:     false,
			CreatedAt:  e.now().UTC(),
		}
		if err := e.sink.InsertNotification(ctx, n); err != nil {
			return created, fmt.Errorf("insert notification %s: %w", tier.Code, err)
		}
		created++

		slog.InfoContext(ctx, "Budget alert created",
			log.FieldFamilyID, familyID,
			log.FieldTier, tier.Code,
			log.FieldAlertMonth, month,
			log.FieldSpendCents, spend.Cents,
			log.FieldBudgetCents, budget.Cents)
	}

	return created, nil
}
