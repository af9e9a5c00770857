// Package render форматирует состояние хранилищ для вывода в терминал.
package render

import (
	"fmt"
	"strings"
	"time"

	"socialvibe/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

// FormatPosts выводит посты списком под заголовком.
func FormatPosts(title string, posts []domain.Post) string {
	var builder strings.Builder
	builder.WriteString(title)
	if len(posts) == 0 {
		builder.WriteString("\n  (пусто)")
		return builder.String()
	}
	for _, p := range posts {
		builder.WriteString("\n" + formatPost(p))
	}
	return builder.String()
}

func formatPost(p domain.Post) string {
	author := strings.TrimSpace(p.AuthorName)
	if author == "" {
		author = p.AuthorID
	}
	if p.AuthorRole == domain.RoleCelebrity {
		author += " ★"
	}
	line := fmt.Sprintf("• [%s] %s: %s", p.ID, author, strings.TrimSpace(p.Content))
	if !p.CreatedAt.IsZero() {
		line += " (" + p.CreatedAt.In(time.Local).Format(timeLayout) + ")"
	}
	if url := strings.TrimSpace(p.ImageURL); url != "" {
		line += "\n  " + url
	}
	return line
}

// FormatNotifications группирует уведомления по автору в порядке появления.
func FormatNotifications(posts []domain.Post) string {
	if len(posts) == 0 {
		return "Новых постов нет"
	}

	type authorGroup struct {
		Name  string
		Posts []string
	}

	order := make([]string, 0)
	groups := make(map[string]*authorGroup)
	for _, p := range posts {
		group, ok := groups[p.AuthorID]
		if !ok {
			name := strings.TrimSpace(p.AuthorName)
			if name == "" {
				name = p.AuthorID
			}
			order = append(order, p.AuthorID)
			group = &authorGroup{Name: name}
			groups[p.AuthorID] = group
		}
		group.Posts = append(group.Posts, strings.TrimSpace(p.Content))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Новые посты (%d)", len(posts)))
	for _, id := range order {
		group := groups[id]
		builder.WriteString(fmt.Sprintf("\n\n%s [%s] — %d", group.Name, id, len(group.Posts)))
		for _, content := range group.Posts {
			builder.WriteString("\n  • " + content)
		}
	}
	return builder.String()
}

// FormatUsers выводит аккаунты, отмечая тех, на кого подписан пользователь.
func FormatUsers(title string, users []domain.User, following func(id string) bool) string {
	var builder strings.Builder
	builder.WriteString(title)
	if len(users) == 0 {
		builder.WriteString("\n  (пусто)")
		return builder.String()
	}
	for _, u := range users {
		line := fmt.Sprintf("\n• %s [%s] %s", u.UserName, u.ID, u.Role)
		if following != nil && following(u.ID) {
			line += " ✓"
		}
		builder.WriteString(line)
	}
	return builder.String()
}

// FormatSession выводит текущую сессию.
func FormatSession(s domain.Session) string {
	if !s.Authenticated() {
		return "Не выполнен вход"
	}
	return fmt.Sprintf("%s [%s] %s", s.UserName, s.UserID, s.Role)
}
