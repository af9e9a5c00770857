// Package notifications хранит очередь непросмотренных постов из push-канала.
package notifications

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"socialvibe/internal/domain"
	"socialvibe/internal/infra/metrics"
	"socialvibe/internal/usecase/persist"
)

const storeName = "notifications"

type snapshot struct {
	Posts []domain.Post `json:"posts"`
}

// Store — клиентская очередь уведомлений, от новых к старым.
// Снятие уведомлений всегда идёт по автору целиком.
type Store struct {
	mu    sync.Mutex
	state snapshot
	ns    persist.Namespace
	log   zerolog.Logger
}

// NewStore создаёт хранилище. storage может быть nil.
func NewStore(storage domain.StateStorage, logger zerolog.Logger) *Store {
	logger = logger.With().Str("component", storeName).Logger()
	return &Store{
		ns:  persist.New(storage, domain.NamespaceNotifications, logger),
		log: logger,
	}
}

// Restore загружает сохранённую очередь.
func (s *Store) Restore(ctx context.Context) error {
	var saved snapshot
	ok, err := s.ns.Load(ctx, &saved)
	if err != nil {
		return fmt.Errorf("restore notifications: %w", err)
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.state = saved
	s.mu.Unlock()
	return nil
}

// AddPost ставит пост в начало очереди.
func (s *Store) AddPost(post domain.Post) {
	s.mutate("add", func(st *snapshot) {
		st.Posts = append([]domain.Post{post}, st.Posts...)
	})
}

// RemovePost снимает все уведомления автора поста, а не только сам пост.
func (s *Store) RemovePost(post domain.Post) {
	s.FilterPost(post.AuthorID)
}

// FilterPost снимает все уведомления автора.
func (s *Store) FilterPost(authorID string) {
	s.mutate("dismiss_author", func(st *snapshot) {
		out := make([]domain.Post, 0, len(st.Posts))
		for _, p := range st.Posts {
			if p.AuthorID != authorID {
				out = append(out, p)
			}
		}
		st.Posts = out
	})
}

func (s *Store) GetPosts() []domain.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Post(nil), s.state.Posts...)
}

// ClearPosts очищает очередь.
func (s *Store) ClearPosts() {
	s.mutate("clear", func(st *snapshot) { st.Posts = nil })
}

// Reset очищает очередь в памяти без записи на диск.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = snapshot{}
	s.mu.Unlock()
}

// Apply применяет команду push-канала.
func (s *Store) Apply(cmd domain.NotificationCommand) {
	switch cmd.Kind {
	case domain.CommandEnqueue:
		s.AddPost(cmd.Post)
	case domain.CommandDismissAuthor:
		s.FilterPost(cmd.AuthorID)
	default:
		s.log.Warn().Int("kind", int(cmd.Kind)).Msg("notifications: unknown command")
	}
}

// Consume применяет команды из канала по одной, пока канал не закрыт или ctx не завершён.
func (s *Store) Consume(ctx context.Context, commands <-chan domain.NotificationCommand) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			s.Apply(cmd)
		}
	}
}

func (s *Store) mutate(op string, fn func(*snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.ns.Save(s.state)
	s.mu.Unlock()
	metrics.IncStoreMutation(storeName, op)
}
