package render

import (
	"strings"
	"testing"

	"socialvibe/internal/domain"
)

func TestFormatNotificationsGroupsByAuthor(t *testing.T) {
	posts := []domain.Post{
		{ID: "a2", AuthorID: "A", AuthorName: "alice", Content: "второй"},
		{ID: "b1", AuthorID: "B", AuthorName: "bella", Content: "привет"},
		{ID: "a1", AuthorID: "A", AuthorName: "alice", Content: "первый"},
	}

	formatted := FormatNotifications(posts)

	mustContain(t, formatted, "Новые посты (3)")
	mustContain(t, formatted, "alice [A] — 2\n  • второй\n  • первый")
	mustContain(t, formatted, "bella [B] — 1\n  • привет")
	if strings.Index(formatted, "alice") > strings.Index(formatted, "bella") {
		t.Fatalf("авторы должны идти в порядке появления: %q", formatted)
	}
	if got := FormatNotifications(nil); got != "Новых постов нет" {
		t.Fatalf("unexpected empty output %q", got)
	}
}

func TestFormatPosts(t *testing.T) {
	formatted := FormatPosts("Лента", []domain.Post{
		{ID: "p1", AuthorID: "c1", AuthorName: "star", AuthorRole: domain.RoleCelebrity, Content: " hi ", ImageURL: "https://img/1.png"},
		{ID: "p2", AuthorID: "c2", Content: "no name"},
	})
	mustContain(t, formatted, "Лента\n• [p1] star ★: hi\n  https://img/1.png")
	mustContain(t, formatted, "• [p2] c2: no name")
	mustContain(t, FormatPosts("Пусто", nil), "(пусто)")
}

func TestFormatUsersAndSession(t *testing.T) {
	users := []domain.User{{ID: "c1", UserName: "star", Role: domain.RoleCelebrity}, {ID: "c2", UserName: "moon", Role: domain.RoleCelebrity}}
	formatted := FormatUsers("Поиск", users, func(id string) bool { return id == "c1" })
	mustContain(t, formatted, "• star [c1] CELEBRITY ✓")
	if strings.Contains(formatted, "moon [c2] CELEBRITY ✓") {
		t.Fatalf("moon is not followed: %q", formatted)
	}

	if got := FormatSession(domain.Anonymous()); got != "Не выполнен вход" {
		t.Fatalf("unexpected anonymous session %q", got)
	}
	if got := FormatSession(domain.Session{UserID: "u1", UserName: "bob", Role: domain.RoleUser}); got != "bob [u1] USER" {
		t.Fatalf("unexpected session %q", got)
	}
}

func mustContain(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("ожидали найти подстроку %q в %q", substr, s)
	}
}
