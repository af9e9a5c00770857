// Package follow хранит подписки текущего пользователя и его подписчиков.
package follow

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

const storeName = "follow"

// snapshot сохраняется в пространстве имён followFollower.
type snapshot struct {
	Following        []domain.User `json:"following"`
	Follower         []domain.User `json:"follower"`
	FollowingFetched bool          `json:"followingFetched"`
	FollowerFetched  bool          `json:"followerFetched"`
}

// Store хранит списки following и follower.
// Подписка и отписка меняют локальный список только после ответа сервера.
type Store struct {
	mu    sync.Mutex
	state snapshot
	users domain.UserGateway
	ns    persist.Namespace
	log   zerolog.Logger
}

// NewStore создаёт хранилище. storage может быть nil.
func NewStore(users domain.UserGateway, storage domain.StateStorage, logger zerolog.Logger) *Store {
	logger = logger.With().Str("component", storeName).Logger()
	return &Store{
		users: users,
		ns:    persist.New(storage, domain.NamespaceRelationships, logger),
		log:   logger,
	}
}

// Restore загружает сохранённые списки.
func (s *Store) Restore(ctx context.Context) error {
	var saved snapshot
	ok, err := s.ns.Load(ctx, &saved)
	if err != nil {
		return fmt.Errorf("restore relationships: %w", err)
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.state = saved
	s.mu.Unlock()
	return nil
}

// SetFollowing загружает подписки с сервера и заменяет локальный список.
// Повторный вызов снова обращается к серверу; проверять FollowingFetched должен вызывающий.
func (s *Store) SetFollowing(ctx context.Context) error {
	_, err := confirm.Fetch(ctx, s.users.Followings, func(users []domain.User) {
		s.mutate("set_following", func(st *snapshot) {
			st.Following = nonNil(users)
			st.FollowingFetched = true
		})
	})
	if err != nil {
		return fmt.Errorf("set following: %w", err)
	}
	return nil
}

// SetFollower загружает подписчиков с сервера и заменяет локальный список.
func (s *Store) SetFollower(ctx context.Context) error {
	_, err := confirm.Fetch(ctx, s.users.Followers, func(users []domain.User) {
		s.mutate("set_follower", func(st *snapshot) {
			st.Follower = nonNil(users)
			st.FollowerFetched = true
		})
	})
	if err != nil {
		return fmt.Errorf("set follower: %w", err)
	}
	return nil
}

// AddFollowing подписывается на user и после подтверждения добавляет его в начало списка.
// Повторная подписка на тот же id даёт повторную запись.
func (s *Store) AddFollowing(ctx context.Context, user domain.User) error {
	err := confirm.Do(ctx,
		func(ctx context.Context) error { return s.users.Follow(ctx, user.ID) },
		func() {
			s.mutate("add_following", func(st *snapshot) {
				st.Following = prepend(st.Following, user)
			})
		})
	if err != nil {
		return fmt.Errorf("add following: %w", err)
	}
	s.log.Debug().Str("celebrity_id", user.ID).Msg("follow: added")
	return nil
}

// RemoveFollowing отписывается от user и после подтверждения убирает все записи с его id.
func (s *Store) RemoveFollowing(ctx context.Context, user domain.User) error {
	err := confirm.Do(ctx,
		func(ctx context.Context) error { return s.users.Unfollow(ctx, user.ID) },
		func() {
			s.mutate("remove_following", func(st *snapshot) {
				st.Following = without(st.Following, user.ID)
			})
		})
	if err != nil {
		return fmt.Errorf("remove following: %w", err)
	}
	s.log.Debug().Str("celebrity_id", user.ID).Msg("follow: removed")
	return nil
}

// AddFollower добавляет подписчика локально.
func (s *Store) AddFollower(user domain.User) {
	s.mutate("add_follower", func(st *snapshot) {
		st.Follower = prepend(st.Follower, user)
	})
}

// RemoveFollower убирает подписчика локально.
func (s *Store) RemoveFollower(user domain.User) {
	s.mutate("remove_follower", func(st *snapshot) {
		st.Follower = without(st.Follower, user.ID)
	})
}

func (s *Store) GetFollowing() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.User(nil), s.state.Following...)
}

func (s *Store) GetFollower() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.User(nil), s.state.Follower...)
}

func (s *Store) FollowingFetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FollowingFetched
}

func (s *Store) FollowerFetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FollowerFetched
}

// IsFollowing сообщает, есть ли id среди подписок.
func (s *Store) IsFollowing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.state.Following {
		if u.ID == id {
			return true
		}
	}
	return false
}

// ClearFollowing очищает подписки, не трогая флаг загрузки.
func (s *Store) ClearFollowing() {
	s.mutate("clear_following", func(st *snapshot) { st.Following = nil })
}

// ClearFollower очищает подписчиков, не трогая флаг загрузки.
func (s *Store) ClearFollower() {
	s.mutate("clear_follower", func(st *snapshot) { st.Follower = nil })
}

// Reset возвращает хранилище в начальное состояние без записи на диск.
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

func prepend(list []domain.User, user domain.User) []domain.User {
	out := make([]domain.User, 0, len(list)+1)
	out = append(out, user)
	return append(out, list...)
}

func without(list []domain.User, id string) []domain.User {
	out := make([]domain.User, 0, len(list))
	for _, u := range list {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}

func nonNil(users []domain.User) []domain.User {
	if users == nil {
		return []domain.User{}
	}
	return users
}
