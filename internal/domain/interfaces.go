package domain

import "context"

// AuthGateway оборачивает эндпоинты auth/*.
type AuthGateway interface {
	Signup(ctx context.Context, creds Credentials) error
	Login(ctx context.Context, userName, password string) error
	Logout(ctx context.Context) error
	Verify(ctx context.Context) (User, error)
	RandomAccount(ctx context.Context, role Role) (DemoAccount, error)
}

// PostGateway оборачивает эндпоинты post/*.
type PostGateway interface {
	ListPosts(ctx context.Context, limit, offset int) ([]Post, error)
	CelebrityPosts(ctx context.Context) ([]Post, error)
	FollowedPosts(ctx context.Context) ([]Post, error)
	PostsOfCelebrity(ctx context.Context, celebrityID string) ([]Post, error)
	CreatePost(ctx context.Context, post NewPost) (Post, error)
	DeletePost(ctx context.Context, postID string) error
}

// UserGateway оборачивает эндпоинты user/*.
type UserGateway interface {
	UserByID(ctx context.Context, id string) (User, error)
	UsersByName(ctx context.Context, userName string) ([]User, error)
	Follow(ctx context.Context, celebrityID string) error
	Unfollow(ctx context.Context, celebrityID string) error
	Followings(ctx context.Context) ([]User, error)
	Followers(ctx context.Context) ([]User, error)
}

// Gateway объединяет все удалённые вызовы.
type Gateway interface {
	AuthGateway
	PostGateway
	UserGateway
}

// StateStorage хранит сериализуемое состояние хранилищ по пространствам имён.
type StateStorage interface {
	// Load читает пространство имён в v. Возвращает false, если данных нет.
	Load(ctx context.Context, namespace string, v any) (bool, error)
	Save(ctx context.Context, namespace string, v any) error
	// Clear атомарно стирает все пространства имён.
	Clear(ctx context.Context) error
}

// Resetter возвращает хранилище в начальное состояние без сетевых вызовов.
type Resetter interface {
	Reset()
}

// Persisted namespaces.
const (
	NamespaceSession       = "auth"
	NamespaceRelationships = "followFollower"
	NamespaceOwnPosts      = "post"
	NamespaceNotifications = "notification"

	// NamespaceCookies хранит cookie шлюза для CLI, который живёт один вызов.
	NamespaceCookies = "cookies"
)

// Namespaces перечисляет все пространства имён клиента.
func Namespaces() []string {
	return []string{NamespaceSession, NamespaceRelationships, NamespaceOwnPosts, NamespaceNotifications, NamespaceCookies}
}
