package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"socialvibe/internal/adapters/gateway/gatewaytest"
	"socialvibe/internal/domain"
	"socialvibe/internal/infra/storage"
)

type resetCounter struct{ n int }

func (r *resetCounter) Reset() { r.n++ }

func newStore(t *testing.T) (*Store, *gatewaytest.Backend, *storage.Memory) {
	t.Helper()
	backend := gatewaytest.NewBackend()
	mem := storage.NewMemory()
	return NewStore(backend.Client(), mem, zerolog.Nop()), backend, mem
}

func TestSetUserLogin(t *testing.T) {
	store, backend, mem := newStore(t)
	alice := backend.AddAccount("alice", "pw", domain.RoleCelebrity)

	got, err := store.SetUser(context.Background(), domain.Credentials{UserName: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	want := domain.Session{UserID: alice.ID, UserName: "alice", Role: domain.RoleCelebrity}
	if got != want || store.GetUser() != want {
		t.Fatalf("got %+v / %+v, want %+v", got, store.GetUser(), want)
	}
	if backend.Calls("verify") != 1 {
		t.Fatalf("expected one verify call, got %d", backend.Calls("verify"))
	}

	var saved domain.Session
	if ok, _ := mem.Load(context.Background(), domain.NamespaceSession, &saved); !ok || saved != want {
		t.Fatalf("expected persisted session %+v, got %+v", want, saved)
	}
}

func TestSetUserSignup(t *testing.T) {
	store, backend, _ := newStore(t)
	role := domain.RoleUser
	got, err := store.SetUser(context.Background(), domain.Credentials{UserName: "bob", Password: "pw", Role: &role})
	if err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if got.UserName != "bob" || got.Role != domain.RoleUser || got.UserID == "" {
		t.Fatalf("unexpected session %+v", got)
	}
	if backend.Calls("signup") != 1 || backend.Calls("login") != 0 {
		t.Fatalf("expected signup only, got signup=%d login=%d", backend.Calls("signup"), backend.Calls("login"))
	}
}

func TestSetUserFailureLeavesSessionUnchanged(t *testing.T) {
	store, backend, _ := newStore(t)
	backend.AddAccount("alice", "pw", domain.RoleCelebrity)
	backend.AddAccount("bob", "pw", domain.RoleUser)
	ctx := context.Background()

	before, err := store.SetUser(ctx, domain.Credentials{UserName: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	_, err = store.SetUser(ctx, domain.Credentials{UserName: "alice", Password: "wrong"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if store.GetUser() != before {
		t.Fatalf("session changed after failed login: %+v", store.GetUser())
	}

	role := domain.RoleUser
	_, err = store.SetUser(ctx, domain.Credentials{UserName: "bob", Password: "pw", Role: &role})
	if !errors.Is(err, domain.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
	if store.GetUser() != before {
		t.Fatalf("session changed after duplicate signup: %+v", store.GetUser())
	}

	backend.FailOn("verify", nil)
	_, err = store.SetUser(ctx, domain.Credentials{UserName: "bob", Password: "pw"})
	if !errors.Is(err, domain.ErrRemoteCall) {
		t.Fatalf("expected ErrRemoteCall, got %v", err)
	}
	if store.GetUser() != before {
		t.Fatalf("session changed after failed verify: %+v", store.GetUser())
	}
}

func TestSetUserRejectsUnknownRole(t *testing.T) {
	store, backend, _ := newStore(t)
	role := domain.Role("ADMIN")
	_, err := store.SetUser(context.Background(), domain.Credentials{UserName: "x", Password: "y", Role: &role})
	if !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if backend.Calls("signup") != 0 {
		t.Fatal("did not expect a signup call")
	}
}

func TestVerifyUser(t *testing.T) {
	store, backend, _ := newStore(t)
	ctx := context.Background()

	if _, err := store.VerifyUser(ctx); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if store.GetUser().Authenticated() {
		t.Fatal("expected anonymous session")
	}

	backend.AddAccount("alice", "pw", domain.RoleCelebrity)
	if _, err := store.SetUser(ctx, domain.Credentials{UserName: "alice", Password: "pw"}); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	store.Reset()
	user, err := store.VerifyUser(ctx)
	if err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	if store.GetUser() != domain.SessionFromUser(user) {
		t.Fatalf("session %+v does not mirror %+v", store.GetUser(), user)
	}
}

func TestClearUser(t *testing.T) {
	store, backend, mem := newStore(t)
	backend.AddAccount("alice", "pw", domain.RoleCelebrity)
	ctx := context.Background()
	counter := &resetCounter{}
	store.Register(counter)

	if _, err := store.SetUser(ctx, domain.Credentials{UserName: "alice", Password: "pw"}); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if err := mem.Save(ctx, domain.NamespaceNotifications, []string{"x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.ClearUser(ctx); err != nil {
		t.Fatalf("ClearUser: %v", err)
	}
	if store.GetUser() != domain.Anonymous() {
		t.Fatalf("expected anonymous session, got %+v", store.GetUser())
	}
	if mem.Len() != 0 {
		t.Fatalf("expected all namespaces wiped, %d left", mem.Len())
	}
	if counter.n != 1 {
		t.Fatalf("expected registered store reset once, got %d", counter.n)
	}
}

func TestClearUserLogoutFailure(t *testing.T) {
	store, backend, mem := newStore(t)
	backend.AddAccount("alice", "pw", domain.RoleCelebrity)
	ctx := context.Background()
	counter := &resetCounter{}
	store.Register(counter)

	before, err := store.SetUser(ctx, domain.Credentials{UserName: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	backend.FailOn("logout", nil)
	if err := store.ClearUser(ctx); !errors.Is(err, domain.ErrRemoteCall) {
		t.Fatalf("expected ErrRemoteCall, got %v", err)
	}
	if store.GetUser() != before || mem.Len() == 0 || counter.n != 0 {
		t.Fatalf("state changed after failed logout: session=%+v stored=%d resets=%d", store.GetUser(), mem.Len(), counter.n)
	}
}

func TestRestore(t *testing.T) {
	backend := gatewaytest.NewBackend()
	mem := storage.NewMemory()
	ctx := context.Background()
	saved := domain.Session{UserID: "u7", UserName: "carol", Role: domain.RoleUser}
	if err := mem.Save(ctx, domain.NamespaceSession, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	store := NewStore(backend.Client(), mem, zerolog.Nop())
	if err := store.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if store.GetUser() != saved {
		t.Fatalf("got %+v, want %+v", store.GetUser(), saved)
	}

	partial := NewStore(backend.Client(), storage.NewMemory(), zerolog.Nop())
	if err := partial.storage.Save(ctx, domain.NamespaceSession, domain.Session{UserID: "u8"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := partial.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if partial.GetUser().Authenticated() {
		t.Fatal("partial session must not be restored")
	}
}

func TestVerifyFailureForgetsRestoredSession(t *testing.T) {
	backend := gatewaytest.NewBackend()
	mem := storage.NewMemory()
	ctx := context.Background()
	saved := domain.Session{UserID: "u2", UserName: "bob", Role: domain.RoleUser}
	if err := mem.Save(ctx, domain.NamespaceSession, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	store := NewStore(backend.Client(), mem, zerolog.Nop())
	if err := store.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := store.VerifyUser(ctx); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if store.GetUser() != domain.Anonymous() {
		t.Fatalf("expected anonymous session, got %+v", store.GetUser())
	}

	var persisted domain.Session
	if ok, _ := mem.Load(ctx, domain.NamespaceSession, &persisted); !ok || persisted.Authenticated() {
		t.Fatalf("expected anonymous session persisted, got %+v", persisted)
	}
}

func TestSetUserAnotherAccountResetsState(t *testing.T) {
	store, backend, mem := newStore(t)
	backend.AddAccount("alice", "pw", domain.RoleCelebrity)
	backend.AddAccount("bob", "pw", domain.RoleUser)
	ctx := context.Background()
	counter := &resetCounter{}
	store.Register(counter)

	if _, err := store.SetUser(ctx, domain.Credentials{UserName: "alice", Password: "pw"}); err != nil {
		t.Fatalf("SetUser alice: %v", err)
	}
	if _, err := store.SetUser(ctx, domain.Credentials{UserName: "alice", Password: "pw"}); err != nil {
		t.Fatalf("SetUser alice again: %v", err)
	}
	if counter.n != 0 {
		t.Fatalf("same account must keep state, got %d resets", counter.n)
	}

	if err := mem.Save(ctx, domain.NamespaceNotifications, []string{"x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.SetUser(ctx, domain.Credentials{UserName: "bob", Password: "pw"})
	if err != nil {
		t.Fatalf("SetUser bob: %v", err)
	}
	if got.UserName != "bob" || counter.n != 1 {
		t.Fatalf("expected switch to bob with one reset, got %+v resets=%d", got, counter.n)
	}
	var leftover []string
	if ok, _ := mem.Load(ctx, domain.NamespaceNotifications, &leftover); ok {
		t.Fatalf("previous user's notifications survived: %v", leftover)
	}
}
