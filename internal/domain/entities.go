package domain

import "time"

// User описывает аккаунт на бэкенде.
type User struct {
	ID        string    `json:"id"`
	UserName  string    `json:"user_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Credentials передаются при входе или регистрации. Наличие Role означает регистрацию.
type Credentials struct {
	UserName string
	Password string
	Role     *Role
}

// Signup сообщает, просит ли запрос создать аккаунт.
func (c Credentials) Signup() bool { return c.Role != nil }

// DemoAccount возвращается эндпоинтом случайного аккаунта вместе с паролем.
type DemoAccount struct {
	User
	Password string `json:"password"`
}

// Credentials возвращает данные для входа демо-аккаунтом.
func (a DemoAccount) Credentials() Credentials {
	return Credentials{UserName: a.UserName, Password: a.Password}
}

// Post описывает публикацию знаменитости.
type Post struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	ImageURL   string    `json:"imageURL,omitempty"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	AuthorRole Role      `json:"authorRole"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewPost содержит данные для создания поста.
type NewPost struct {
	Content string `json:"content"`
	Image   []byte `json:"image"`
}

// Session хранит локальное представление о текущем пользователе.
// Поля заполняются только вместе: либо все пустые, либо все заданы.
type Session struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Role     Role   `json:"user_role"`
}

// SessionFromUser строит сессию из подтверждённого сервером пользователя.
func SessionFromUser(u User) Session {
	return Session{UserID: u.ID, UserName: u.UserName, Role: u.Role}
}

// Anonymous возвращает пустую сессию.
func Anonymous() Session { return Session{} }

// Authenticated сообщает, есть ли в сессии пользователь.
func (s Session) Authenticated() bool { return s.UserID != "" }
