// Package ownposts кэширует посты текущей знаменитости.
package ownposts

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"socialvibe/internal/domain"
	"socialvibe/internal/infra/metrics"
	"socialvibe/internal/usecase/confirm"
	"socialvibe/internal/usecase/persist"
)

const storeName = "ownposts"

type snapshot struct {
	Posts   []domain.Post `json:"posts"`
	Fetched bool          `json:"fetched"`
}

// Store — авторитетный кэш собственных постов, от новых к старым.
type Store struct {
	mu    sync.Mutex
	state snapshot
	posts domain.PostGateway
	ns    persist.Namespace
	log   zerolog.Logger
}

// NewStore создаёт хранилище. storage может быть nil.
func NewStore(posts domain.PostGateway, storage domain.StateStorage, logger zerolog.Logger) *Store {
	logger = logger.With().Str("component", storeName).Logger()
	return &Store{
		posts: posts,
		ns:    persist.New(storage, domain.NamespaceOwnPosts, logger),
		log:   logger,
	}
}

// Restore загружает сохранённые посты.
func (s *Store) Restore(ctx context.Context) error {
	var saved snapshot
	ok, err := s.ns.Load(ctx, &saved)
	if err != nil {
		return fmt.Errorf("restore own posts: %w", err)
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.state = saved
	s.mu.Unlock()
	return nil
}

// SetPosts загружает посты знаменитости с сервера и заменяет кэш.
func (s *Store) SetPosts(ctx context.Context) error {
	_, err := confirm.Fetch(ctx, s.posts.CelebrityPosts, func(posts []domain.Post) {
		if posts == nil {
			posts = []domain.Post{}
		}
		s.mutate("set", func(st *snapshot) {
			st.Posts = posts
			st.Fetched = true
		})
	})
	if err != nil {
		return fmt.Errorf("set posts: %w", err)
	}
	return nil
}

// AddPost добавляет уже созданный на сервере пост в начало кэша.
func (s *Store) AddPost(post domain.Post) {
	s.mutate("add", func(st *snapshot) {
		st.Posts = append([]domain.Post{post}, st.Posts...)
	})
}

// RemovePost убирает пост из кэша без обращения к серверу.
func (s *Store) RemovePost(post domain.Post) {
	s.mutate("remove", func(st *snapshot) {
		st.Posts = withoutID(st.Posts, post.ID)
	})
}

// RemovePostFromProfile удаляет пост на сервере и после подтверждения убирает его из кэша.
func (s *Store) RemovePostFromProfile(ctx context.Context, postID string) error {
	err := confirm.Do(ctx,
		func(ctx context.Context) error { return s.posts.DeletePost(ctx, postID) },
		func() {
			s.mutate("delete", func(st *snapshot) {
				st.Posts = withoutID(st.Posts, postID)
			})
		})
	if err != nil {
		return fmt.Errorf("remove post from profile: %w", err)
	}
	s.log.Debug().Str("post_id", postID).Msg("ownposts: deleted")
	return nil
}

func (s *Store) GetPosts() []domain.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Post(nil), s.state.Posts...)
}

func (s *Store) Fetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Fetched
}

// ClearPosts сбрасывает посты и флаг загрузки.
func (s *Store) ClearPosts() {
	s.mutate("clear", func(st *snapshot) { *st = snapshot{} })
}

// Reset сбрасывает состояние в памяти без записи на диск.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = snapshot{}
	s.mu.Unlock()
}

func (s *Store) mutate(op string, fn func(*snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.ns.Save(s.state)
	s.mu.Unlock()
	metrics.IncStoreMutation(storeName, op)
}

func withoutID(posts []domain.Post, id string) []domain.Post {
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
