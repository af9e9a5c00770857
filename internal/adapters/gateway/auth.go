package gateway

import (
	"context"
	"fmt"

	"socialvibe/internal/domain"
)

const (
	opSignup = "signup"
	opLogin  = "login"
	opLogout = "logout"
	opVerify = "verify"
	opRandom = "random_account"
)

type signupRequest struct {
	UserName string      `json:"user_name"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

type loginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

func (c *Client) Signup(ctx context.Context, creds domain.Credentials) error {
	if creds.Role == nil {
		return fmt.Errorf("signup: role is required")
	}
	payload := signupRequest{UserName: creds.UserName, Password: creds.Password, Role: *creds.Role}
	return c.post(ctx, opSignup, "auth/signup", payload, nil)
}

func (c *Client) Login(ctx context.Context, userName, password string) error {
	return c.post(ctx, opLogin, "auth/login", loginRequest{UserName: userName, Password: password}, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.get(ctx, opLogout, "auth/logout", nil)
}

func (c *Client) Verify(ctx context.Context) (domain.User, error) {
	var resp envelope[domain.User]
	if err := c.get(ctx, opVerify, "auth/verify", &resp); err != nil {
		return domain.User{}, err
	}
	if resp.Data.ID == "" {
		return domain.User{}, &domain.RemoteError{Operation: opVerify, Message: "empty identity", Kind: domain.ErrUnauthenticated}
	}
	return resp.Data, nil
}

// RandomAccount возвращает демо-аккаунт указанной роли вместе с паролем.
func (c *Client) RandomAccount(ctx context.Context, role domain.Role) (domain.DemoAccount, error) {
	var endpoint string
	switch role {
	case domain.RoleUser:
		endpoint = "auth/random/user"
	case domain.RoleCelebrity:
		endpoint = "auth/random/celebrity"
	default:
		return domain.DemoAccount{}, fmt.Errorf("%w: %q", domain.ErrUnknownRole, string(role))
	}
	var resp envelope[domain.DemoAccount]
	if err := c.get(ctx, opRandom, endpoint, &resp); err != nil {
		return domain.DemoAccount{}, err
	}
	return resp.Data, nil
}
