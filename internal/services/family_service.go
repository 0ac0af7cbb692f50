package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/access"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type (
	CreateFamilyRequest struct {
		Actor  core.UserID
		Name   string
		Budget core.Money // zero cents leaves the budget unset
	}

	UpdateBudgetRequest struct {
		Actor    core.UserID
		FamilyID core.FamilyID
		Budget   core.Money
	}

	GetFamilyRequest struct {
		Actor    core.UserID
		FamilyID core.FamilyID
	}
)

// FamilyService manages families and their budgets. Creation is open to
// any authenticated user, who becomes the owner; everything else is
// guarded.
type FamilyService struct {
	storage *storage.Repository

	updateBudget func(context.Context, UpdateBudgetRequest) (core.Family, error)
	get          func(context.Context, GetFamilyRequest) (core.Family, error)
}

func NewFamilyService(repo *storage.Repository, guard *access.Guard) *FamilyService {
	s := &FamilyService{storage: repo}
	s.updateBudget = access.Guarded(guard,
		func(r UpdateBudgetRequest) (core.UserID, core.FamilyID) { return r.Actor, r.FamilyID },
		s.setBudget)
	s.get = access.Guarded(guard,
		func(r GetFamilyRequest) (core.UserID, core.FamilyID) { return r.Actor, r.FamilyID },
		s.getFamily)
	return s
}

// CreateFamily creates a family with the actor as its owner.
func (s *FamilyService) CreateFamily(ctx context.Context, req CreateFamilyRequest) (core.Family, error) {
	if req.Actor == "" {
		return core.Family{}, core.ErrInvalidInput
	}
	if req.Name == "" {
		return core.Family{}, core.ErrEmptyName
	}
	if req.Budget.Cents < 0 {
		return core.Family{}, core.ErrInvalidBudget
	}

	f := core.Family{
		ID:            core.FamilyID(uuid.NewString()),
		Name:          req.Name,
		MonthlyBudget: req.Budget,
		Status:        core.FamilyActive,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.storage.CreateFamily(ctx, f, req.Actor); err != nil {
		return core.Family{}, fmt.Errorf("create family: %w", err)
	}
	return f, nil
}

// UpdateBudget sets or clears the family's monthly budget. Guarded.
func (s *FamilyService) UpdateBudget(ctx context.Context, req UpdateBudgetRequest) (core.Family, error) {
	return s.updateBudget(ctx, req)
}

// GetFamily returns the family visible to one of its members. Guarded.
func (s *FamilyService) GetFamily(ctx context.Context, req GetFamilyRequest) (core.Family, error) {
	return s.get(ctx, req)
}

func (s *FamilyService) setBudget(ctx context.Context, req UpdateBudgetRequest) (core.Family, error) {
	if req.Budget.Cents < 0 {
		return core.Family{}, core.ErrInvalidBudget
	}
	if err := s.storage.UpdateFamilyBudget(ctx, req.FamilyID, req.Budget); err != nil {
		return core.Family{}, fmt.Errorf("update budget: %w", err)
	}
	return s.storage.GetFamily(ctx, req.FamilyID)
}

func (s *FamilyService) getFamily(ctx context.Context, req GetFamilyRequest) (core.Family, error) {
	return s.storage.GetFamily(ctx, req.FamilyID)
}
