// Package worker hosts the alert engine inside the consumer process: it
// feeds delivered expense events to the engine and periodically re-checks
// months with recent activity in case a message was lost.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/alert"
	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

type AlertWorker struct {
	engine         *alert.Engine
	storage        *storage.Repository
	backstopWindow time.Duration
	batchSize      int
}

func NewAlertWorker(engine *alert.Engine, repo *storage.Repository, backstopWindow time.Duration, batchSize int) *AlertWorker {
	return &AlertWorker{
		engine:         engine,
		storage:        repo,
		backstopWindow: backstopWindow,
		batchSize:      batchSize,
	}
}

// HandleExpenseChanged processes one delivered event. It always returns
// nil so the delivery acks: a payload that can never be evaluated is
// logged and dropped, because a handler error would requeue the identical
// message and the broker would redeliver it unboundedly. Engine failures
// are swallowed inside the engine for the same reason.
func (w *AlertWorker) HandleExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	if msg.FamilyID == "" || msg.ExpenseDate.IsZero() {
		slog.WarnContext(ctx, "Dropping expense event with missing fields",
			log.FieldFamilyID, msg.FamilyID,
			"expense_date", msg.ExpenseDate)
		return nil
	}

	w.engine.HandleExpenseMutation(ctx, core.FamilyID(msg.FamilyID), msg.ExpenseDate)
	return nil
}

// ProcessRecentMonths re-evaluates every family/month pair touched by an
// expense write inside the backstop window. Re-evaluation is free by
// idempotency, so running this on a timer only recovers alerts whose
// event never reached the queue.
func (w *AlertWorker) ProcessRecentMonths(ctx context.Context) error {
	since := time.Now().Add(-w.backstopWindow)
	keys, err := w.storage.RecentExpenseMonths(ctx, since, w.batchSize)
	if err != nil {
		return fmt.Errorf("list recent expense months: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Backstop re-evaluating recent months", "count", len(keys))
	for _, key := range keys {
		w.engine.CheckMonth(ctx, key.FamilyID, key.Month)
	}
	return nil
}
