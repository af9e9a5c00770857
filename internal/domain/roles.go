package domain

import (
	"fmt"
	"strings"
)

// Role описывает тип аккаунта.
type Role string

const (
	RoleUser      Role = "USER"
	RoleCelebrity Role = "CELEBRITY"
)

// RolePolicy описывает, какие операции доступны роли.
type RolePolicy struct {
	Role      Role
	Name      string
	CanAuthor bool
	CanFollow bool
}

var policies = map[Role]RolePolicy{
	RoleUser: {
		Role:      RoleUser,
		Name:      "User",
		CanFollow: true,
	},
	RoleCelebrity: {
		Role:      RoleCelebrity,
		Name:      "Celebrity",
		CanAuthor: true,
	},
}

// ParseRole разбирает роль без учёта регистра. Неизвестные значения отклоняются.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := policies[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	_, ok := policies[r]
	return ok
}

// Policy возвращает политику роли. Для неизвестной роли все операции запрещены.
func (r Role) Policy() RolePolicy {
	if p, ok := policies[r]; ok {
		return p
	}
	return RolePolicy{Role: r}
}

// CanAuthor сообщает, может ли роль публиковать посты.
func (r Role) CanAuthor() bool { return r.Policy().CanAuthor }

// CanFollow сообщает, может ли роль подписываться на аккаунты.
func (r Role) CanFollow() bool { return r.Policy().CanFollow }

func (r Role) String() string { return string(r) }

// RequireAuthor возвращает ErrForbiddenRole, если роль не может публиковать,
// и ErrUnauthenticated для анонимной сессии.
func RequireAuthor(r Role) error {
	switch r {
	case RoleCelebrity:
		return nil
	case RoleUser:
		return fmt.Errorf("%w: %s cannot author posts", ErrForbiddenRole, r)
	case "":
		return ErrUnauthenticated
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
}

// RequireFollower возвращает ErrForbiddenRole, если роль не может подписываться,
// и ErrUnauthenticated для анонимной сессии.
func RequireFollower(r Role) error {
	switch r {
	case RoleUser:
		return nil
	case RoleCelebrity:
		return fmt.Errorf("%w: %s cannot follow accounts", ErrForbiddenRole, r)
	case "":
		return ErrUnauthenticated
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
}
