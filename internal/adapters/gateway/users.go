package gateway

import (
	"context"
	"fmt"
	"net/url"

	"socialvibe/internal/domain"
)

func (c *Client) UserByID(ctx context.Context, id string) (domain.User, error) {
	if id == "" {
		return domain.User{}, fmt.Errorf("user by id: %w", domain.ErrMissingID)
	}
	var user domain.User
	if err := c.get(ctx, "user_by_id", "user/"+url.PathEscape(id), &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (c *Client) UsersByName(ctx context.Context, userName string) ([]domain.User, error) {
	q := url.Values{}
	q.Set("user_name", userName)
	var users []domain.User
	if err := c.get(ctx, "users_by_name", "user/username?"+q.Encode(), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) Follow(ctx context.Context, celebrityID string) error {
	if celebrityID == "" {
		return fmt.Errorf("follow: %w", domain.ErrMissingID)
	}
	return c.post(ctx, "follow", "user/celebrity/follow/"+url.PathEscape(celebrityID), nil, nil)
}

func (c *Client) Unfollow(ctx context.Context, celebrityID string) error {
	if celebrityID == "" {
		return fmt.Errorf("unfollow: %w", domain.ErrMissingID)
	}
	return c.post(ctx, "unfollow", "user/celebrity/unfollow/"+url.PathEscape(celebrityID), nil, nil)
}

func (c *Client) Followings(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.get(ctx, "followings", "user/followings", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) Followers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.get(ctx, "followers", "user/followers", &users); err != nil {
		return nil, err
	}
	return users, nil
}
