// Package app собирает хранилища клиента в один объект, которым пользуется слой представления.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"socialvibe/internal/domain"
	"socialvibe/internal/usecase/feed"
	"socialvibe/internal/usecase/follow"
	"socialvibe/internal/usecase/notifications"
	"socialvibe/internal/usecase/ownposts"
	"socialvibe/internal/usecase/session"
)

// PushSource — источник команд уведомлений, например pushws.Channel.
type PushSource interface {
	Run(ctx context.Context, userID string) error
	Commands() <-chan domain.NotificationCommand
}

// Client владеет всеми хранилищами одного пользователя устройства.
type Client struct {
	gateway domain.Gateway

	Session       *session.Store
	Relationships *follow.Store
	OwnPosts      *ownposts.Store
	Notifications *notifications.Store
	Feed          *feed.Service

	log zerolog.Logger
}

// New создаёт клиента. storage может быть nil, тогда состояние живёт только в памяти.
func New(gateway domain.Gateway, storage domain.StateStorage, pageSize int, logger zerolog.Logger) *Client {
	c := &Client{
		gateway:       gateway,
		Session:       session.NewStore(gateway, storage, logger),
		Relationships: follow.NewStore(gateway, storage, logger),
		OwnPosts:      ownposts.NewStore(gateway, storage, logger),
		Notifications: notifications.NewStore(storage, logger),
		Feed:          feed.NewService(gateway, pageSize),
		log:           logger.With().Str("component", "app").Logger(),
	}
	c.Session.Register(c.Relationships, c.OwnPosts, c.Notifications, c.Feed)
	return c
}

// Start восстанавливает сохранённое состояние и проверяет сессию на сервере.
// ErrUnauthenticated означает, что нужно войти.
func (c *Client) Start(ctx context.Context) (domain.Session, error) {
	restorers := []func(context.Context) error{
		c.Session.Restore,
		c.Relationships.Restore,
		c.OwnPosts.Restore,
		c.Notifications.Restore,
	}
	for _, restore := range restorers {
		if err := restore(ctx); err != nil {
			c.log.Warn().Err(err).Msg("app: restore failed, starting clean")
		}
	}
	if _, err := c.Session.VerifyUser(ctx); err != nil {
		return domain.Anonymous(), err
	}
	return c.Session.GetUser(), nil
}

// Login входит существующим аккаунтом.
func (c *Client) Login(ctx context.Context, userName, password string) (domain.Session, error) {
	return c.Session.SetUser(ctx, domain.Credentials{UserName: userName, Password: password})
}

// Signup создаёт аккаунт с ролью role и входит в него.
func (c *Client) Signup(ctx context.Context, userName, password string, role domain.Role) (domain.Session, error) {
	return c.Session.SetUser(ctx, domain.Credentials{UserName: userName, Password: password, Role: &role})
}

// DemoLogin входит случайным демо-аккаунтом указанной роли.
func (c *Client) DemoLogin(ctx context.Context, role domain.Role) (domain.Session, error) {
	account, err := c.gateway.RandomAccount(ctx, role)
	if err != nil {
		return domain.Session{}, fmt.Errorf("demo login: %w", err)
	}
	return c.Session.SetUser(ctx, account.Credentials())
}

// Logout завершает сессию и сбрасывает все хранилища.
func (c *Client) Logout(ctx context.Context) error {
	return c.Session.ClearUser(ctx)
}

// CreatePost публикует пост и сразу показывает его в ленте и в профиле.
func (c *Client) CreatePost(ctx context.Context, content string, image []byte) (domain.Post, error) {
	if err := domain.RequireAuthor(c.Session.GetUser().Role); err != nil {
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return domain.Post{}, fmt.Errorf("create post: %w", domain.ErrEmptyContent)
	}
	created, err := c.gateway.CreatePost(ctx, domain.NewPost{Content: content, Image: image})
	if err != nil {
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}
	c.OwnPosts.AddPost(created)
	c.Feed.Prepend(created)
	return created, nil
}

// DeletePost удаляет собственный пост.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	if err := domain.RequireAuthor(c.Session.GetUser().Role); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if postID == "" {
		return fmt.Errorf("delete post: %w", domain.ErrMissingID)
	}
	if err := c.OwnPosts.RemovePostFromProfile(ctx, postID); err != nil {
		return err
	}
	c.Feed.Remove(postID)
	return nil
}

// Follow подписывает пользователя на знаменитость.
func (c *Client) Follow(ctx context.Context, celebrity domain.User) error {
	if err := c.checkFollow(celebrity); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return c.Relationships.AddFollowing(ctx, celebrity)
}

// Unfollow отписывает пользователя от знаменитости.
func (c *Client) Unfollow(ctx context.Context, celebrity domain.User) error {
	if err := c.checkFollow(celebrity); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return c.Relationships.RemoveFollowing(ctx, celebrity)
}

func (c *Client) checkFollow(celebrity domain.User) error {
	if err := domain.RequireFollower(c.Session.GetUser().Role); err != nil {
		return err
	}
	if celebrity.ID == "" {
		return domain.ErrMissingID
	}
	return nil
}

// Profile описывает страницу профиля текущего пользователя.
type Profile struct {
	Session   domain.Session `json:"session"`
	Following []domain.User  `json:"following,omitempty"`
	Followers []domain.User  `json:"followers,omitempty"`
	Posts     []domain.Post  `json:"posts,omitempty"`
}

// Profile лениво загружает данные профиля в зависимости от роли.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	current := c.Session.GetUser()
	profile := Profile{Session: current}
	switch current.Role {
	case domain.RoleUser:
		if !c.Relationships.FollowingFetched() {
			if err := c.Relationships.SetFollowing(ctx); err != nil {
				return Profile{}, fmt.Errorf("profile: %w", err)
			}
		}
		profile.Following = c.Relationships.GetFollowing()
	case domain.RoleCelebrity:
		if !c.Relationships.FollowerFetched() {
			if err := c.Relationships.SetFollower(ctx); err != nil {
				return Profile{}, fmt.Errorf("profile: %w", err)
			}
		}
		if !c.OwnPosts.Fetched() {
			if err := c.OwnPosts.SetPosts(ctx); err != nil {
				return Profile{}, fmt.Errorf("profile: %w", err)
			}
		}
		profile.Followers = c.Relationships.GetFollower()
		profile.Posts = c.OwnPosts.GetPosts()
	default:
		return Profile{}, fmt.Errorf("profile: %w", domain.ErrUnauthenticated)
	}
	return profile, nil
}

// CelebrityPage описывает страницу знаменитости.
type CelebrityPage struct {
	Celebrity domain.User   `json:"celebrity"`
	Posts     []domain.Post `json:"posts"`
	Following bool          `json:"following"`
}

// OpenCelebrity открывает страницу знаменитости и снимает все её уведомления.
func (c *Client) OpenCelebrity(ctx context.Context, celebrityID string) (CelebrityPage, error) {
	if err := domain.RequireFollower(c.Session.GetUser().Role); err != nil {
		return CelebrityPage{}, fmt.Errorf("open celebrity: %w", err)
	}
	if celebrityID == "" {
		return CelebrityPage{}, fmt.Errorf("open celebrity: %w", domain.ErrMissingID)
	}
	c.Notifications.FilterPost(celebrityID)

	user, err := c.gateway.UserByID(ctx, celebrityID)
	if err != nil {
		return CelebrityPage{}, fmt.Errorf("open celebrity: %w", err)
	}
	posts, err := c.gateway.PostsOfCelebrity(ctx, celebrityID)
	if err != nil {
		return CelebrityPage{}, fmt.Errorf("open celebrity: %w", err)
	}
	return CelebrityPage{
		Celebrity: user,
		Posts:     posts,
		Following: c.Relationships.IsFollowing(celebrityID),
	}, nil
}

// DismissNotification снимает уведомления автора и возвращает его id для перехода на страницу.
func (c *Client) DismissNotification(post domain.Post) string {
	c.Notifications.RemovePost(post)
	return post.AuthorID
}

// Search ищет аккаунты по имени. Пустой запрос не отправляется.
func (c *Client) Search(ctx context.Context, userName string) ([]domain.User, error) {
	term := strings.TrimSpace(userName)
	if term == "" {
		return nil, nil
	}
	if c.Session.GetUser().Role == domain.RoleUser && !c.Relationships.FollowingFetched() {
		if err := c.Relationships.SetFollowing(ctx); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
	}
	users, err := c.gateway.UsersByName(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return users, nil
}

// RunPush открывает push-канал для текущей сессии и передаёт его команды в хранилище уведомлений.
// Возвращается, когда канал завершился или ctx отменён.
func (c *Client) RunPush(ctx context.Context, src PushSource) error {
	current := c.Session.GetUser()
	if !current.Authenticated() {
		return fmt.Errorf("run push: %w", domain.ErrUnauthenticated)
	}
	commands := src.Commands()

	consumeCtx, stopConsume := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Notifications.Consume(consumeCtx, commands); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Debug().Err(err).Msg("app: notification consumer stopped")
		}
	}()

	err := src.Run(ctx, current.UserID)
	stopConsume()
	<-done

	for {
		select {
		case cmd, ok := <-commands:
			if !ok {
				return err
			}
			c.Notifications.Apply(cmd)
		default:
			return err
		}
	}
}
