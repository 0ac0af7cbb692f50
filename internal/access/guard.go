// Package access enforces tenant isolation: every family-scoped operation
// runs behind a membership check on the (actor, family) pair.
package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// MembershipStore is the read-only view of family memberships the guard
// consults. Implemented by storage.Repository.
type MembershipStore interface {
	IsActiveMember(ctx context.Context, userID core.UserID, familyID core.FamilyID) (bool, error)
}

// Guard verifies that an actor holds an active membership in the target
// family. It is read-only and safe for concurrent use.
type Guard struct {
	members MembershipStore
}

func NewGuard(members MembershipStore) *Guard {
	return &Guard{members: members}
}

// Check allows the call when the actor has an active membership in the
// family. It fails with core.ErrInvalidInput on a malformed or empty
// family id and with core.ErrNotAMember when the membership is absent,
// left, or the family is unknown.
func (g *Guard) Check(ctx context.Context, actor core.UserID, family core.FamilyID) error {
	if family == "" {
		return fmt.Errorf("%w: empty family id", core.ErrInvalidInput)
	}
	if _, err := uuid.Parse(string(family)); err != nil {
		return fmt.Errorf("%w: malformed family id %q", core.ErrInvalidInput, family)
	}
	if actor == "" {
		return fmt.Errorf("%w: empty actor id", core.ErrInvalidInput)
	}

	ok, err := g.members.IsActiveMember(ctx, actor, family)
	if err != nil {
		return fmt.Errorf("membership lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: user %s, family %s", core.ErrNotAMember, actor, family)
	}
	return nil
}

// Binding extracts the actor and target family from a request value. It
// replaces the original annotation-driven parameter discovery with an
// explicit, statically-checked function: the compiler ties each guarded
// operation to exactly one actor field and one family field.
type Binding[Req any] func(Req) (core.UserID, core.FamilyID)

// Guarded wraps op so the membership check runs before it. A nil binding
// means the operation was wired without a way to locate its actor and
// family parameters; that is a configuration error and every call fails
// with core.ErrGuardBinding rather than silently skipping the check.
func Guarded[Req any, Resp any](g *Guard, bind Binding[Req], op func(context.Context, Req) (Resp, error)) func(context.Context, Req) (Resp, error) {
	return func(ctx context.Context, req Req) (Resp, error) {
		var zero Resp
		if bind == nil {
			return zero, core.ErrGuardBinding
		}
		actor, family := bind(req)
		if err := g.Check(ctx, actor, family); err != nil {
			return zero, err
		}
		return op(ctx, req)
	}
}
