// Package feed ведёт ленту постов: общую постраничную и ленту подписок.
package feed

import (
	"context"
	"fmt"
	"sync"

	"socialvibe/internal/domain"
)

const defaultPageSize = 5

// Service хранит загруженные страницы общей ленты.
// Лента не сохраняется между запусками.
type Service struct {
	posts    domain.PostGateway
	pageSize int

	// paging упорядочивает NextPage: каждый вызов получает следующий offset.
	paging sync.Mutex

	mu      sync.Mutex
	loaded  []domain.Post
	offset  int
	hasMore bool
}

// NewService создаёт ленту с размером страницы pageSize.
func NewService(posts domain.PostGateway, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Service{posts: posts, pageSize: pageSize, hasMore: true}
}

// NextPage загружает следующую страницу и возвращает только её.
// Пустая страница означает конец ленты; дальнейшие вызовы не ходят на сервер.
// Параллельные вызовы выполняются по очереди.
func (s *Service) NextPage(ctx context.Context) ([]domain.Post, error) {
	s.paging.Lock()
	defer s.paging.Unlock()

	s.mu.Lock()
	if !s.hasMore {
		s.mu.Unlock()
		return nil, nil
	}
	offset := s.offset
	s.mu.Unlock()

	page, err := s.posts.ListPosts(ctx, s.pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("feed page offset=%d: %w", offset, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(page) == 0 {
		s.hasMore = false
		return nil, nil
	}
	s.loaded = append(s.loaded, page...)
	s.offset = offset + s.pageSize
	return page, nil
}

// Prepend показывает только что созданный пост первым.
func (s *Service) Prepend(post domain.Post) {
	s.mu.Lock()
	s.loaded = append([]domain.Post{post}, s.loaded...)
	s.mu.Unlock()
}

// Remove убирает пост из загруженной ленты.
func (s *Service) Remove(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.loaded[:0:0]
	for _, p := range s.loaded {
		if p.ID != postID {
			out = append(out, p)
		}
	}
	s.loaded = out
}

// Posts возвращает все загруженные посты.
func (s *Service) Posts() []domain.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Post(nil), s.loaded...)
}

func (s *Service) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Followed возвращает посты знаменитостей, на которых подписан пользователь.
func (s *Service) Followed(ctx context.Context) ([]domain.Post, error) {
	posts, err := s.posts.FollowedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("followed feed: %w", err)
	}
	return posts, nil
}

// Reset забывает загруженные страницы.
func (s *Service) Reset() {
	s.mu.Lock()
	s.loaded = nil
	s.offset = 0
	s.hasMore = true
	s.mu.Unlock()
}
