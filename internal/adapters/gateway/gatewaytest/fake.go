// Package gatewaytest содержит бэкенд в памяти для тестов хранилищ.
package gatewaytest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"socialvibe/internal/domain"
)

type account struct {
	user     domain.User
	password string
}

// Backend разделяет данные между несколькими клиентами.
type Backend struct {
	mu          sync.Mutex
	accounts    map[string]*account
	posts       []domain.Post
	follows     map[string]map[string]bool
	failures    map[string]error
	calls       map[string]int
	subscribers map[string][]chan domain.PushEvent
	seq         int
}

// NewBackend создаёт пустой бэкенд.
func NewBackend() *Backend {
	return &Backend{
		accounts:    make(map[string]*account),
		follows:     make(map[string]map[string]bool),
		failures:    make(map[string]error),
		calls:       make(map[string]int),
		subscribers: make(map[string][]chan domain.PushEvent),
	}
}

// AddAccount регистрирует аккаунт напрямую.
func (b *Backend) AddAccount(name, password string, role domain.Role) domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addAccountLocked(name, password, role)
}

func (b *Backend) addAccountLocked(name, password string, role domain.Role) domain.User {
	b.seq++
	now := time.Unix(int64(b.seq), 0).UTC()
	u := domain.User{ID: fmt.Sprintf("u%d", b.seq), UserName: name, Role: role, CreatedAt: now, UpdatedAt: now}
	b.accounts[name] = &account{user: u, password: password}
	return u
}

// AddPost публикует пост напрямую, без уведомления подписчиков.
func (b *Backend) AddPost(author domain.User, content string) domain.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addPostLocked(author, content)
}

func (b *Backend) addPostLocked(author domain.User, content string) domain.Post {
	b.seq++
	now := time.Unix(int64(b.seq), 0).UTC()
	p := domain.Post{
		ID:         fmt.Sprintf("p%d", b.seq),
		Content:    content,
		AuthorID:   author.ID,
		AuthorName: author.UserName,
		AuthorRole: author.Role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.posts = append([]domain.Post{p}, b.posts...)
	return p
}

// SetFollow задаёт подписку напрямую.
func (b *Backend) SetFollow(followerID, celebrityID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.followLocked(followerID, celebrityID)
}

func (b *Backend) followLocked(followerID, celebrityID string) {
	if b.follows[followerID] == nil {
		b.follows[followerID] = make(map[string]bool)
	}
	b.follows[followerID][celebrityID] = true
}

// FailOn заставляет операцию возвращать err, пока не вызван Recover.
// Пустой err означает общую ошибку сервера.
func (b *Backend) FailOn(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		err = &domain.RemoteError{Operation: op, Status: http.StatusInternalServerError, Message: "injected failure"}
	}
	b.failures[op] = err
}

// Recover снимает внедрённую ошибку.
func (b *Backend) Recover(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, op)
}

// Calls возвращает число вызовов операции.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Subscribe возвращает канал событий для подписчика, как push-канал бэкенда.
func (b *Backend) Subscribe(userID string) <-chan domain.PushEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan domain.PushEvent, 16)
	b.subscribers[userID] = append(b.subscribers[userID], ch)
	return ch
}

func (b *Backend) publishLocked(event domain.PushEvent) {
	for followerID, set := range b.follows {
		if !set[event.Post.AuthorID] {
			continue
		}
		for _, ch := range b.subscribers[followerID] {
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Client возвращает клиента с собственной сессией.
func (b *Backend) Client() *Client {
	return &Client{backend: b}
}

// Client реализует domain.Gateway поверх Backend.
type Client struct {
	backend *Backend
	mu      sync.Mutex
	current string
}

func (c *Client) begin(op string) (*Backend, error) {
	b := c.backend
	b.mu.Lock()
	b.calls[op]++
	if err, ok := b.failures[op]; ok {
		b.mu.Unlock()
		return nil, err
	}
	return b, nil
}

func (c *Client) currentUser() (domain.User, error) {
	c.mu.Lock()
	name := c.current
	c.mu.Unlock()
	acc, ok := c.backend.accounts[name]
	if name == "" || !ok {
		return domain.User{}, &domain.RemoteError{Operation: "auth", Status: http.StatusUnauthorized, Kind: domain.ErrUnauthenticated}
	}
	return acc.user, nil
}

func (c *Client) Signup(ctx context.Context, creds domain.Credentials) error {
	b, err := c.begin("signup")
	if err != nil {
		return err
	}
	defer b.mu.Unlock()
	if creds.Role == nil {
		return &domain.RemoteError{Operation: "signup", Status: http.StatusBadRequest, Message: "role required"}
	}
	if _, ok := b.accounts[creds.UserName]; ok {
		return &domain.RemoteError{Operation: "signup", Status: http.StatusConflict, Kind: domain.ErrDuplicateAccount}
	}
	b.addAccountLocked(creds.UserName, creds.Password, *creds.Role)
	c.setCurrent(creds.UserName)
	return nil
}

func (c *Client) Login(ctx context.Context, userName, password string) error {
	b, err := c.begin("login")
	if err != nil {
		return err
	}
	defer b.mu.Unlock()
	acc, ok := b.accounts[userName]
	if !ok || acc.password != password {
		return &domain.RemoteError{Operation: "login", Status: http.StatusUnauthorized, Kind: domain.ErrInvalidCredentials}
	}
	c.setCurrent(userName)
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	b, err := c.begin("logout")
	if err != nil {
		return err
	}
	defer b.mu.Unlock()
	c.setCurrent("")
	return nil
}

func (c *Client) Verify(ctx context.Context) (domain.User, error) {
	b, err := c.begin("verify")
	if err != nil {
		return domain.User{}, err
	}
	defer b.mu.Unlock()
	return c.currentUser()
}

func (c *Client) RandomAccount(ctx context.Context, role domain.Role) (domain.DemoAccount, error) {
	b, err := c.begin("random_account")
	if err != nil {
		return domain.DemoAccount{}, err
	}
	defer b.mu.Unlock()
	for _, acc := range b.accounts {
		if acc.user.Role == role {
			return domain.DemoAccount{User: acc.user, Password: acc.password}, nil
		}
	}
	return domain.DemoAccount{}, &domain.RemoteError{Operation: "random_account", Status: http.StatusNotFound}
}

func (c *Client) ListPosts(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	b, err := c.begin("list_posts")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	if offset >= len(b.posts) {
		return []domain.Post{}, nil
	}
	end := offset + limit
	if end > len(b.posts) {
		end = len(b.posts)
	}
	return append([]domain.Post(nil), b.posts[offset:end]...), nil
}

func (c *Client) CelebrityPosts(ctx context.Context) ([]domain.Post, error) {
	b, err := c.begin("celebrity_posts")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	me, err := c.currentUser()
	if err != nil {
		return nil, err
	}
	return b.postsByLocked(func(p domain.Post) bool { return p.AuthorID == me.ID }), nil
}

func (c *Client) FollowedPosts(ctx context.Context) ([]domain.Post, error) {
	b, err := c.begin("followed_posts")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	me, err := c.currentUser()
	if err != nil {
		return nil, err
	}
	set := b.follows[me.ID]
	return b.postsByLocked(func(p domain.Post) bool { return set[p.AuthorID] }), nil
}

func (c *Client) PostsOfCelebrity(ctx context.Context, celebrityID string) ([]domain.Post, error) {
	b, err := c.begin("posts_of_celebrity")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	return b.postsByLocked(func(p domain.Post) bool { return p.AuthorID == celebrityID }), nil
}

func (b *Backend) postsByLocked(keep func(domain.Post) bool) []domain.Post {
	out := []domain.Post{}
	for _, p := range b.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// CreatePost публикует пост и рассылает NEW_POST подписчикам автора.
func (c *Client) CreatePost(ctx context.Context, post domain.NewPost) (domain.Post, error) {
	b, err := c.begin("create_post")
	if err != nil {
		return domain.Post{}, err
	}
	defer b.mu.Unlock()
	me, err := c.currentUser()
	if err != nil {
		return domain.Post{}, err
	}
	if me.Role != domain.RoleCelebrity {
		return domain.Post{}, &domain.RemoteError{Operation: "create_post", Status: http.StatusForbidden}
	}
	created := b.addPostLocked(me, post.Content)
	b.publishLocked(domain.PushEvent{Type: domain.EventNewPost, Post: created})
	return created, nil
}

// DeletePost удаляет пост и рассылает DELETE_POST подписчикам автора.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	b, err := c.begin("delete_post")
	if err != nil {
		return err
	}
	defer b.mu.Unlock()
	me, err := c.currentUser()
	if err != nil {
		return err
	}
	for i, p := range b.posts {
		if p.ID != postID {
			continue
		}
		if p.AuthorID != me.ID {
			return &domain.RemoteError{Operation: "delete_post", Status: http.StatusForbidden}
		}
		b.posts = append(b.posts[:i:i], b.posts[i+1:]...)
		b.publishLocked(domain.PushEvent{Type: domain.EventDeletePost, Post: p})
		return nil
	}
	return &domain.RemoteError{Operation: "delete_post", Status: http.StatusNotFound}
}

func (c *Client) UserByID(ctx context.Context, id string) (domain.User, error) {
	b, err := c.begin("user_by_id")
	if err != nil {
		return domain.User{}, err
	}
	defer b.mu.Unlock()
	if u, ok := b.userByIDLocked(id); ok {
		return u, nil
	}
	return domain.User{}, &domain.RemoteError{Operation: "user_by_id", Status: http.StatusNotFound}
}

func (b *Backend) userByIDLocked(id string) (domain.User, bool) {
	for _, acc := range b.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return domain.User{}, false
}

func (c *Client) UsersByName(ctx context.Context, userName string) ([]domain.User, error) {
	b, err := c.begin("users_by_name")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	out := []domain.User{}
	for name, acc := range b.accounts {
		if strings.Contains(strings.ToLower(name), strings.ToLower(userName)) {
			out = append(out, acc.user)
		}
	}
	return out, nil
}

func (c *Client) Follow(ctx context.Context, celebrityID string) error {
	b, err := c.begin("follow")
	if err != nil {
		return err
	}
	defer b.mu.Unlock()
	me, err := c.currentUser()
	if err != nil {
		return err
	}
	b.followLocked(me.ID, celebrityID)
	return nil
}

func (c *Client) Unfollow(ctx context.Context, celebrityID string) error {
	b, err := c.begin("unfollow")
	if err != nil {
		return err
	}
	defer b.mu.Unlock()
	me, err := c.currentUser()
	if err != nil {
		return err
	}
	delete(b.follows[me.ID], celebrityID)
	return nil
}

func (c *Client) Followings(ctx context.Context) ([]domain.User, error) {
	b, err := c.begin("followings")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	me, err := c.currentUser()
	if err != nil {
		return nil, err
	}
	out := []domain.User{}
	for id := range b.follows[me.ID] {
		if u, ok := b.userByIDLocked(id); ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (c *Client) Followers(ctx context.Context) ([]domain.User, error) {
	b, err := c.begin("followers")
	if err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	me, err := c.currentUser()
	if err != nil {
		return nil, err
	}
	out := []domain.User{}
	for followerID, set := range b.follows {
		if !set[me.ID] {
			continue
		}
		if u, ok := b.userByIDLocked(followerID); ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (c *Client) setCurrent(name string) {
	c.mu.Lock()
	c.current = name
	c.mu.Unlock()
}

var _ domain.Gateway = (*Client)(nil)
