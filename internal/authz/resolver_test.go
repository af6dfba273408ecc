package authz

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu      sync.Mutex
	fetches int
	mapping Mapping
	err     error
	delay   time.Duration
}

func (s *fakeStore) FetchMapping(ctx context.Context) (Mapping, error) {
	s.mu.Lock()
	s.fetches++
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.mapping, nil
}

func (s *fakeStore) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func grantFor(actions ...Action) Grant {
	g := Grant{Actions: make(map[Action]bool), Delegated: make(map[Action]bool), Sub: make(map[string]bool)}
	for _, a := range actions {
		g.Actions[a] = true
	}
	return g
}

func newResolver(store Store) *Resolver {
	return NewResolver(NewCache(store, testLogger(), 0), testLogger(), nil)
}

func TestSuperAdminBypassesMapping(t *testing.T) {
	store := &fakeStore{err: errors.New("store down")}
	resolver := newResolver(store)
	admin := NewProfile(1, "root@revium.local", "Root", []string{RoleSuperAdmin})

	for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove} {
		ok, err := resolver.Can(context.Background(), admin, "tasks", action)
		if err != nil {
			t.Fatalf("Can(%s) returned error: %v", action, err)
		}
		if !ok {
			t.Fatalf("expected super admin to be allowed for %s", action)
		}
	}
	if store.fetchCount() != 0 {
		t.Fatalf("super admin check must not hit the store, got %d fetches", store.fetchCount())
	}
}

func TestAnonymousIsDenied(t *testing.T) {
	resolver := newResolver(&fakeStore{mapping: Mapping{}})
	ok, err := resolver.Can(context.Background(), Profile{}, "tasks", ActionRead)
	if ok {
		t.Fatal("expected denial for anonymous profile")
	}
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated got %v", err)
	}
}

func TestRolelessUserIsDenied(t *testing.T) {
	mapping := Mapping{"editor": {"tasks": grantFor(ActionCreate, ActionRead, ActionUpdate, ActionDelete)}}
	resolver := newResolver(&fakeStore{mapping: mapping})
	user := NewProfile(7, "nobody@revium.local", "Nobody", nil)

	for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
		ok, err := resolver.Can(context.Background(), user, "tasks", action)
		if err != nil {
			t.Fatalf("Can(%s) returned error: %v", action, err)
		}
		if ok {
			t.Fatalf("expected denial for roleless user on %s", action)
		}
	}
}

func TestAnyHeldRoleGrants(t *testing.T) {
	mapping := Mapping{
		"viewer": {"tasks": grantFor(ActionRead)},
		"editor": {"tasks": grantFor(ActionRead, ActionUpdate)},
	}
	resolver := newResolver(&fakeStore{mapping: mapping})
	user := NewProfile(3, "a@revium.local", "A", []string{"viewer", "editor"})

	ok, err := resolver.Can(context.Background(), user, "tasks", ActionUpdate)
	if err != nil {
		t.Fatalf("Can returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected update to be allowed through the editor role")
	}

	ok, err = resolver.Can(context.Background(), user, "tasks", ActionDelete)
	if err != nil {
		t.Fatalf("Can returned error: %v", err)
	}
	if ok {
		t.Fatal("expected delete to be denied, no held role grants it")
	}
}

func TestFailClosedWhenStoreUnavailable(t *testing.T) {
	resolver := newResolver(&fakeStore{err: errors.New("connection refused")})
	user := NewProfile(3, "a@revium.local", "A", []string{"editor"})

	ok, err := resolver.Can(context.Background(), user, "tasks", ActionRead)
	if ok {
		t.Fatal("store failure must deny, never allow")
	}
	if !errors.Is(err, ErrCheckUnavailable) {
		t.Fatalf("expected ErrCheckUnavailable got %v", err)
	}
}

func TestFailClosedOnFetchTimeout(t *testing.T) {
	store := &fakeStore{mapping: Mapping{}, delay: 500 * time.Millisecond}
	cache := NewCache(store, testLogger(), 20*time.Millisecond)
	resolver := NewResolver(cache, testLogger(), nil)
	user := NewProfile(3, "a@revium.local", "A", []string{"editor"})

	ok, err := resolver.Can(context.Background(), user, "tasks", ActionRead)
	if ok {
		t.Fatal("fetch timeout must deny")
	}
	if !errors.Is(err, ErrCheckUnavailable) {
		t.Fatalf("expected ErrCheckUnavailable got %v", err)
	}
}

func TestDelegatedApproveRequiresDepartment(t *testing.T) {
	grant := grantFor(ActionApprove)
	grant.Delegated[ActionApprove] = true
	mapping := Mapping{"team_leader": {"tasks": grant}}
	resolver := newResolver(&fakeStore{mapping: mapping})
	leader := NewProfile(9, "lead@revium.local", "Lead", []string{"team_leader"})

	managed := Department{ID: 1, Name: "Production", ManagerID: 9}
	foreign := Department{ID: 2, Name: "Sales", ManagerID: 4, MemberIDs: []int64{4, 5}}

	ok, err := resolver.Can(context.Background(), leader, "tasks", ActionApprove, foreign)
	if err != nil {
		t.Fatalf("Can returned error: %v", err)
	}
	if ok {
		t.Fatal("expected denial outside the leader's department")
	}

	ok, err = resolver.Can(context.Background(), leader, "tasks", ActionApprove, managed)
	if err != nil {
		t.Fatalf("Can returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected approval inside the managed department")
	}

	// Membership is enough for a delegated grant.
	member := NewProfile(5, "m@revium.local", "M", []string{"team_leader"})
	ok, err = resolver.Can(context.Background(), member, "tasks", ActionApprove, foreign)
	if err != nil {
		t.Fatalf("Can returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected approval for a delegated member")
	}

	// No department context at all denies a delegated grant.
	ok, err = resolver.Can(context.Background(), leader, "tasks", ActionApprove)
	if err != nil {
		t.Fatalf("Can returned error: %v", err)
	}
	if ok {
		t.Fatal("expected denial without department context")
	}
}

func TestSubPermission(t *testing.T) {
	grant := grantFor(ActionUpdate)
	grant.Sub["reassign"] = true
	mapping := Mapping{"editor": {"tasks": grant}}
	resolver := newResolver(&fakeStore{mapping: mapping})
	user := NewProfile(3, "a@revium.local", "A", []string{"editor"})

	ok, err := resolver.CanSub(context.Background(), user, "tasks", "reassign")
	if err != nil {
		t.Fatalf("CanSub returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected reassign sub-permission to be granted")
	}

	ok, err = resolver.CanSub(context.Background(), user, "tasks", "escalate")
	if err != nil {
		t.Fatalf("CanSub returned error: %v", err)
	}
	if ok {
		t.Fatal("expected unknown sub-permission to be denied")
	}
}

func TestProfileDeduplicatesRoles(t *testing.T) {
	p := NewProfile(1, "a@revium.local", "A", []string{"editor", " editor ", "viewer", "editor"})
	if len(p.Roles) != 2 {
		t.Fatalf("expected 2 roles got %v", p.Roles)
	}
	if p.Roles[0] != "editor" || p.Roles[1] != "viewer" {
		t.Fatalf("expected order preserved, got %v", p.Roles)
	}
}
