package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/alert"
	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// The repository implements all four engine dependencies, so these tests
// run the full evaluation pipeline against real SQLite.
func newTestWorker(t *testing.T) (*AlertWorker, *storage.Repository) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "bilancio.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	engine := alert.NewEngine(repo, repo, repo, repo)
	return NewAlertWorker(engine, repo, time.Hour, 100), repo
}

func seedFamily(t *testing.T, repo *storage.Repository, budgetCents int64) (core.FamilyID, core.UserID) {
	t.Helper()
	familyID := core.FamilyID(uuid.NewString())
	owner := core.UserID(uuid.NewString())
	err := repo.CreateFamily(context.Background(), core.Family{
		ID:            familyID,
		Name:          "casa",
		MonthlyBudget: core.Money{Cents: budgetCents},
		CreatedAt:     time.Now(),
	}, owner)
	if err != nil {
		t.Fatalf("CreateFamily: %v", err)
	}
	return familyID, owner
}

func addExpense(t *testing.T, repo *storage.Repository, familyID core.FamilyID, owner core.UserID, cents int64, date time.Time) {
	t.Helper()
	err := repo.CreateExpense(context.Background(), core.Expense{
		ID:          uuid.NewString(),
		FamilyID:    familyID,
		UserID:      owner,
		Description: "spesa",
		Amount:      core.Money{Cents: cents},
		Date:        date,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
}

func notificationTypes(t *testing.T, repo *storage.Repository, familyID core.FamilyID) []string {
	t.Helper()
	list, err := repo.ListNotifications(context.Background(), familyID)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	types := make([]string, len(list))
	for i, n := range list {
		types[i] = n.Type
	}
	return types
}

func TestWorkerEndToEndScenario(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()
	familyID, owner := seedFamily(t, repo, 100000)

	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	deliver := func() {
		t.Helper()
		if err := w.HandleExpenseChanged(ctx, amqp.NewExpenseChangedMessage(string(familyID), date)); err != nil {
			t.Fatalf("HandleExpenseChanged: %v", err)
		}
	}

	// Spend walks 400 -> 800 -> 1000 -> 1200 against a 1000 budget.
	steps := []struct {
		cents int64
		want  int
	}{
		{40000, 0},
		{40000, 2}, // 800: FIFTY and EIGHTY
		{20000, 3}, // 1000: HUNDRED
		{20000, 3}, // 1200: nothing new
	}
	for _, step := range steps {
		addExpense(t, repo, familyID, owner, step.cents, date)
		deliver()
		if got := notificationTypes(t, repo, familyID); len(got) != step.want {
			t.Fatalf("after +%d cents: notifications = %v, want %d", step.cents, got, step.want)
		}
	}
}

func TestWorkerConcurrentDeliveries(t *testing.T) {
	w, repo := newTestWorker(t)
	familyID, owner := seedFamily(t, repo, 100000)
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	addExpense(t, repo, familyID, owner, 150000, date)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			return w.HandleExpenseChanged(context.Background(),
				amqp.NewExpenseChangedMessage(string(familyID), date))
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent deliveries: %v", err)
	}

	types := notificationTypes(t, repo, familyID)
	if len(types) != 3 {
		t.Fatalf("notifications = %v, want exactly one per tier", types)
	}
}

func TestWorkerBackstopRecoversLostEvent(t *testing.T) {
	w, repo := newTestWorker(t)
	familyID, owner := seedFamily(t, repo, 100000)
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	// Expense written but its event never delivered.
	addExpense(t, repo, familyID, owner, 90000, date)

	if err := w.ProcessRecentMonths(context.Background()); err != nil {
		t.Fatalf("ProcessRecentMonths: %v", err)
	}

	types := notificationTypes(t, repo, familyID)
	if len(types) != 2 {
		t.Fatalf("backstop notifications = %v, want FIFTY and EIGHTY", types)
	}
}

// An event with missing fields will fail validation identically on every
// redelivery, so the handler must ack it (nil) instead of erroring: the
// consumer requeues on handler errors and would spin on the same message
// forever.
func TestWorkerDropsInvalidEventsWithoutError(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()
	familyID, owner := seedFamily(t, repo, 100000)
	addExpense(t, repo, familyID, owner, 150000, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))

	if err := w.HandleExpenseChanged(ctx, &amqp.ExpenseChangedMessage{ExpenseDate: time.Now()}); err != nil {
		t.Fatalf("missing family id must be dropped, not requeued: %v", err)
	}
	if err := w.HandleExpenseChanged(ctx, &amqp.ExpenseChangedMessage{FamilyID: uuid.NewString()}); err != nil {
		t.Fatalf("missing expense date must be dropped, not requeued: %v", err)
	}

	// Dropped events trigger no evaluation even with alertable spend on file.
	if types := notificationTypes(t, repo, familyID); len(types) != 0 {
		t.Fatalf("notifications = %v, want none for dropped events", types)
	}
}

func TestWorkerIgnoresFamiliesWithoutBudget(t *testing.T) {
	w, repo := newTestWorker(t)
	familyID, owner := seedFamily(t, repo, 0)
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	addExpense(t, repo, familyID, owner, 500000, date)

	if err := w.HandleExpenseChanged(context.Background(), amqp.NewExpenseChangedMessage(string(familyID), date)); err != nil {
		t.Fatalf("HandleExpenseChanged: %v", err)
	}
	if types := notificationTypes(t, repo, familyID); len(types) != 0 {
		t.Fatalf("notifications = %v, want none without a budget", types)
	}
}
