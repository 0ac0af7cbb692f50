// Package services holds the application operations behind the access
// guard: every family-scoped entry point is wired through access.Guarded
// with an explicit binding from its request to (actor, family).
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/access"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// EventPublisher emits one event per committed expense mutation. The
// publish happens strictly after the database write returns, so the
// alert worker never sees spend that could still roll back.
type EventPublisher interface {
	PublishExpenseChanged(ctx context.Context, familyID string, expenseDate time.Time) error
}

type (
	CreateExpenseRequest struct {
		Actor       core.UserID
		FamilyID    core.FamilyID
		Description string
		Amount      core.Money
		Date        time.Time
	}

	UpdateExpenseRequest struct {
		Actor       core.UserID
		FamilyID    core.FamilyID
		ExpenseID   string
		Description string
		Amount      core.Money
		Date        time.Time
	}
)

// ExpenseService records expense mutations and triggers the asynchronous
// budget evaluation for each one.
type ExpenseService struct {
	storage   *storage.Repository
	publisher EventPublisher

	create func(context.Context, CreateExpenseRequest) (core.Expense, error)
	update func(context.Context, UpdateExpenseRequest) (core.Expense, error)
}

func NewExpenseService(repo *storage.Repository, guard *access.Guard, publisher EventPublisher) *ExpenseService {
	s := &ExpenseService{
		storage:   repo,
		publisher: publisher,
	}
	s.create = access.Guarded(guard,
		func(r CreateExpenseRequest) (core.UserID, core.FamilyID) { return r.Actor, r.FamilyID },
		s.createExpense)
	s.update = access.Guarded(guard,
		func(r UpdateExpenseRequest) (core.UserID, core.FamilyID) { return r.Actor, r.FamilyID },
		s.updateExpense)
	return s
}

// CreateExpense books a new expense for the family. Guarded.
func (s *ExpenseService) CreateExpense(ctx context.Context, req CreateExpenseRequest) (core.Expense, error) {
	return s.create(ctx, req)
}

// UpdateExpense rewrites an existing expense. Guarded.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req UpdateExpenseRequest) (core.Expense, error) {
	return s.update(ctx, req)
}

func (s *ExpenseService) createExpense(ctx context.Context, req CreateExpenseRequest) (core.Expense, error) {
	e := core.Expense{
		ID:          uuid.NewString(),
		FamilyID:    req.FamilyID,
		UserID:      req.Actor,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.storage.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishChanged(ctx, e)
	return e, nil
}

func (s *ExpenseService) updateExpense(ctx context.Context, req UpdateExpenseRequest) (core.Expense, error) {
	if req.ExpenseID == "" {
		return core.Expense{}, core.ErrInvalidInput
	}
	e := core.Expense{
		ID:          req.ExpenseID,
		FamilyID:    req.FamilyID,
		UserID:      req.Actor,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publishChanged(ctx, e)
	return e, nil
}

// publishChanged runs after the write committed. A publish failure is
// logged and dropped: the worker's periodic backstop re-evaluates months
// with recent activity, and the expense itself is already durable.
func (s *ExpenseService) publishChanged(ctx context.Context, e core.Expense) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping expense event",
			log.FieldExpenseID, e.ID)
		return
	}
	if err := s.publisher.PublishExpenseChanged(ctx, string(e.FamilyID), e.Date); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldExpenseID, e.ID,
			log.FieldFamilyID, e.FamilyID,
			log.FieldError, err)
	}
}
