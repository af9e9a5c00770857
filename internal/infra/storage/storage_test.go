package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"

	"socialvibe/internal/domain"
	"socialvibe/internal/infra/storage"
)

type sample struct {
	Posts   []domain.Post `json:"posts"`
	Fetched bool          `json:"fetched"`
}

func exerciseStorage(t *testing.T, s domain.StateStorage) {
	t.Helper()
	ctx := context.Background()

	var got sample
	ok, err := s.Load(ctx, domain.NamespaceOwnPosts, &got)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if ok {
		t.Fatal("expected no data before Save")
	}

	want := sample{Posts: []domain.Post{{ID: "p1", AuthorID: "a1", Content: "hi"}}, Fetched: true}
	if err := s.Save(ctx, domain.NamespaceOwnPosts, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, domain.NamespaceSession, domain.Session{UserID: "u1", UserName: "bob", Role: domain.RoleUser}); err != nil {
		t.Fatalf("Save session: %v", err)
	}

	ok, err = s.Load(ctx, domain.NamespaceOwnPosts, &got)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if !got.Fetched || len(got.Posts) != 1 || got.Posts[0].ID != "p1" {
		t.Fatalf("unexpected loaded value %+v", got)
	}

	// Повторная запись перезаписывает значение.
	if err := s.Save(ctx, domain.NamespaceOwnPosts, sample{}); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got = sample{}
	if _, err := s.Load(ctx, domain.NamespaceOwnPosts, &got); err != nil {
		t.Fatalf("Load overwrite: %v", err)
	}
	if got.Fetched || len(got.Posts) != 0 {
		t.Fatalf("expected overwritten value, got %+v", got)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	for _, ns := range domain.Namespaces() {
		var v map[string]any
		ok, err := s.Load(ctx, ns, &v)
		if err != nil {
			t.Fatalf("Load %s after Clear: %v", ns, err)
		}
		if ok {
			t.Fatalf("namespace %s survived Clear", ns)
		}
	}
}

func TestMemory(t *testing.T) {
	m := storage.NewMemory()
	exerciseStorage(t, m)
	if m.Len() != 0 {
		t.Fatalf("expected empty memory storage, got %d", m.Len())
	}
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := storage.NewSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	exerciseStorage(t, s)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := storage.NewSQLite(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	session := domain.Session{UserID: "u1", UserName: "bob", Role: domain.RoleUser}
	if err := s.Save(ctx, domain.NamespaceSession, session); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := storage.NewSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })
	var got domain.Session
	ok, err := reopened.Load(ctx, domain.NamespaceSession, &got)
	if err != nil || !ok {
		t.Fatalf("Load after reopen: ok=%v err=%v", ok, err)
	}
	if got != session {
		t.Fatalf("got %+v, want %+v", got, session)
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	exerciseStorage(t, storage.NewRedis(client, "socialvibe-test-"+t.Name()))
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, _, err := storage.Open(context.Background(), storage.Options{Backend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenMemory(t *testing.T) {
	s, closeFn, err := storage.Open(context.Background(), storage.Options{Backend: "memory"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	exerciseStorage(t, s)
}
