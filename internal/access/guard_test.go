package access

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
)

const (
	familyA = core.FamilyID("0b81a7a9-2b2f-4f5f-9d3a-9a5d7c1e4b10")
	familyB = core.FamilyID("4f3a2c1d-8e9b-4a6c-b5d2-7f8e9a0b1c2d")
	userAnn = core.UserID("c1d2e3f4-a5b6-47c8-89d0-e1f2a3b4c5d6")
	userBob = core.UserID("a9b8c7d6-e5f4-43a2-b1c0-d9e8f7a6b5c4")
)

type fakeMembers struct {
	active map[core.FamilyID][]core.UserID
	err    error
}

func (f *fakeMembers) IsActiveMember(_ context.Context, userID core.UserID, familyID core.FamilyID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, u := range f.active[familyID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func TestGuardCheck(t *testing.T) {
	members := &fakeMembers{active: map[core.FamilyID][]core.UserID{
		familyA: {userAnn},
	}}
	guard := NewGuard(members)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   core.UserID
		family  core.FamilyID
		wantErr error
	}{
		{"active member passes", userAnn, familyA, nil},
		{"no membership row", userBob, familyA, core.ErrNotAMember},
		{"member of another family", userAnn, familyB, core.ErrNotAMember},
		{"empty family id", userAnn, "", core.ErrInvalidInput},
		{"malformed family id", userAnn, "not-a-uuid", core.ErrInvalidInput},
		{"empty actor id", "", familyA, core.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Check(ctx, tt.actor, tt.family)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Check returned %v, want success", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Check returned %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGuardCheckLeftMemberRejected(t *testing.T) {
	// A membership with status left is indistinguishable from no
	// membership at the store interface: IsActiveMember returns false.
	guard := NewGuard(&fakeMembers{active: map[core.FamilyID][]core.UserID{}})
	if err := guard.Check(context.Background(), userAnn, familyA); !errors.Is(err, core.ErrNotAMember) {
		t.Fatalf("Check = %v, want ErrNotAMember", err)
	}
}

func TestGuardCheckStoreError(t *testing.T) {
	lookupErr := errors.New("store down")
	guard := NewGuard(&fakeMembers{err: lookupErr})
	err := guard.Check(context.Background(), userAnn, familyA)
	if !errors.Is(err, lookupErr) {
		t.Fatalf("Check = %v, want wrapped store error", err)
	}
	if errors.Is(err, core.ErrNotAMember) {
		t.Fatal("store failure must not be reported as a membership rejection")
	}
}

type listRequest struct {
	Actor  core.UserID
	Family core.FamilyID
}

func TestGuardedWrapper(t *testing.T) {
	guard := NewGuard(&fakeMembers{active: map[core.FamilyID][]core.UserID{
		familyA: {userAnn},
	}})

	called := 0
	op := func(_ context.Context, req listRequest) (string, error) {
		called++
		return "ok:" + string(req.Family), nil
	}
	bind := func(req listRequest) (core.UserID, core.FamilyID) {
		return req.Actor, req.Family
	}

	guarded := Guarded(guard, bind, op)

	got, err := guarded(context.Background(), listRequest{Actor: userAnn, Family: familyA})
	if err != nil || got != "ok:"+string(familyA) {
		t.Fatalf("guarded call = %q, %v", got, err)
	}
	if called != 1 {
		t.Fatalf("op called %d times, want 1", called)
	}

	_, err = guarded(context.Background(), listRequest{Actor: userBob, Family: familyA})
	if !errors.Is(err, core.ErrNotAMember) {
		t.Fatalf("guarded call = %v, want ErrNotAMember", err)
	}
	if called != 1 {
		t.Fatal("op must not run when the guard rejects")
	}
}

func TestGuardedNilBinding(t *testing.T) {
	guard := NewGuard(&fakeMembers{active: map[core.FamilyID][]core.UserID{
		familyA: {userAnn},
	}})
	op := func(_ context.Context, _ listRequest) (string, error) {
		t.Fatal("op must never run without a binding")
		return "", nil
	}

	guarded := Guarded[listRequest, string](guard, nil, op)

	_, err := guarded(context.Background(), listRequest{Actor: userAnn, Family: familyA})
	if !errors.Is(err, core.ErrGuardBinding) {
		t.Fatalf("guarded call = %v, want ErrGuardBinding", err)
	}
	if errors.Is(err, core.ErrNotAMember) {
		t.Fatal("binding misconfiguration must stay distinct from membership rejection")
	}
}
