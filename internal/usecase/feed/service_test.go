package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"socialvibe/internal/adapters/gateway/gatewaytest"
	"socialvibe/internal/domain"
)

func TestNextPageUntilEmpty(t *testing.T) {
	backend := gatewaytest.NewBackend()
	star := backend.AddAccount("star", "pw", domain.RoleCelebrity)
	for i := 0; i < 7; i++ {
		backend.AddPost(star, fmt.Sprintf("post %d", i))
	}
	svc := NewService(backend.Client(), 5)
	ctx := context.Background()

	first, err := svc.NextPage(ctx)
	if err != nil || len(first) != 5 {
		t.Fatalf("first page: %d %v", len(first), err)
	}
	second, err := svc.NextPage(ctx)
	if err != nil || len(second) != 2 {
		t.Fatalf("second page: %d %v", len(second), err)
	}
	if !svc.HasMore() {
		t.Fatal("hasMore flips only on an empty page")
	}
	third, err := svc.NextPage(ctx)
	if err != nil || len(third) != 0 {
		t.Fatalf("third page: %d %v", len(third), err)
	}
	if svc.HasMore() {
		t.Fatal("expected end of feed")
	}
	calls := backend.Calls("list_posts")
	if _, err := svc.NextPage(ctx); err != nil {
		t.Fatalf("NextPage after end: %v", err)
	}
	if backend.Calls("list_posts") != calls {
		t.Fatal("no request expected after the end of feed")
	}
	if len(svc.Posts()) != 7 {
		t.Fatalf("expected 7 loaded posts, got %d", len(svc.Posts()))
	}

	svc.Reset()
	if !svc.HasMore() || len(svc.Posts()) != 0 {
		t.Fatal("expected reset feed")
	}
}

func TestNextPageFailureKeepsOffset(t *testing.T) {
	backend := gatewaytest.NewBackend()
	star := backend.AddAccount("star", "pw", domain.RoleCelebrity)
	backend.AddPost(star, "only")
	svc := NewService(backend.Client(), 0)
	ctx := context.Background()

	backend.FailOn("list_posts", nil)
	if _, err := svc.NextPage(ctx); !errors.Is(err, domain.ErrRemoteCall) {
		t.Fatalf("expected ErrRemoteCall, got %v", err)
	}
	backend.Recover("list_posts")
	page, err := svc.NextPage(ctx)
	if err != nil || len(page) != 1 {
		t.Fatalf("expected retry from offset 0, got %d %v", len(page), err)
	}
}

func TestPrependAndRemove(t *testing.T) {
	svc := NewService(gatewaytest.NewBackend().Client(), 5)
	svc.Prepend(domain.Post{ID: "a"})
	svc.Prepend(domain.Post{ID: "b"})
	if got := svc.Posts(); got[0].ID != "b" {
		t.Fatalf("expected newest first, got %v", got)
	}
	svc.Remove("b")
	if got := svc.Posts(); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected posts %v", got)
	}
}

func TestFollowed(t *testing.T) {
	backend := gatewaytest.NewBackend()
	fan := backend.AddAccount("fan", "pw", domain.RoleUser)
	star := backend.AddAccount("star", "pw", domain.RoleCelebrity)
	other := backend.AddAccount("other", "pw", domain.RoleCelebrity)
	backend.AddPost(star, "followed")
	backend.AddPost(other, "not followed")
	backend.SetFollow(fan.ID, star.ID)

	client := backend.Client()
	if err := client.Login(context.Background(), "fan", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	posts, err := NewService(client, 5).Followed(context.Background())
	if err != nil {
		t.Fatalf("Followed: %v", err)
	}
	if len(posts) != 1 || posts[0].AuthorID != star.ID {
		t.Fatalf("unexpected followed posts %v", posts)
	}
}

func TestConcurrentNextPageFetchesDistinctPages(t *testing.T) {
	backend := gatewaytest.NewBackend()
	star := backend.AddAccount("star", "pw", domain.RoleCelebrity)
	for i := 0; i < 10; i++ {
		backend.AddPost(star, fmt.Sprintf("post %d", i))
	}
	svc := NewService(backend.Client(), 5)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.NextPage(context.Background()); err != nil {
				t.Errorf("NextPage: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range svc.Posts() {
		if seen[p.ID] {
			t.Fatalf("post %s loaded twice", p.ID)
		}
		seen[p.ID] = true
	}
	if len(seen) != 10 {
		t.Fatalf("expected both pages loaded, got %d posts", len(seen))
	}
}
