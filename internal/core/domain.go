package core

import (
	"errors"
	"time"
)

const (
	FamilyActive  FamilyStatus = "active"
	FamilyDeleted FamilyStatus = "deleted"

	MemberActive MembershipStatus = "active"
	MemberLeft   MembershipStatus = "left"

	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

type (
	FamilyID string
	UserID   string

	FamilyStatus     string
	MembershipStatus string
	MemberRole       string

	// Family is the tenant: a group of users sharing one monthly budget.
	// A MonthlyBudget of zero cents means no budget is set.
	Family struct {
		ID            FamilyID
		Name          string
		MonthlyBudget Money
		Status        FamilyStatus
		CreatedAt     time.Time
	}

	// Membership ties one user to one family. A user has at most one
	// active membership per family.
	Membership struct {
		FamilyID FamilyID
		UserID   UserID
		Role     MemberRole
		Status   MembershipStatus
	}

	Expense struct {
		ID          string
		FamilyID    FamilyID
		UserID      UserID
		Description string
		Amount      Money
		Date        time.Time
	}

	// Notification is a budget alert persisted for polling by the API.
	Notification struct {
		ID         string
		FamilyID   FamilyID
		Type       string
		Title      string
		Message    string
		AlertMonth YearMonth
		IsRead     bool
		CreatedAt  time.Time
	}
)

var (
	// ErrNotAMember is the guard rejection: the actor has no active
	// membership in the target family. The only core error that must
	// reach the end user as an authorization failure.
	ErrNotAMember = errors.New("not a family member")

	// ErrInvalidInput covers malformed identifiers handed to the guard
	// or to an operation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGuardBinding signals that a guarded operation's request did not
	// yield both an actor and a family id. A configuration error, never
	// an authorization outcome.
	ErrGuardBinding = errors.New("guard binding: actor or family id not bound")

	ErrFamilyNotFound       = errors.New("family not found")
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrNotificationNotFound = errors.New("notification not found")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidBudget    = errors.New("invalid budget")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
)

func (e Expense) Validate() error {
	if e.FamilyID == "" {
		return ErrInvalidInput
	}
	if e.Description == "" {
		return ErrEmptyDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
