package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"socialvibe/internal/domain"
)

func (c *Client) ListPosts(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))
	var posts []domain.Post
	if err := c.get(ctx, "list_posts", "post/data?"+q.Encode(), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) CelebrityPosts(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	if err := c.get(ctx, "celebrity_posts", "post/celebrity", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) FollowedPosts(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	if err := c.get(ctx, "followed_posts", "post/celebrity/followed", &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) PostsOfCelebrity(ctx context.Context, celebrityID string) ([]domain.Post, error) {
	if celebrityID == "" {
		return nil, fmt.Errorf("posts of celebrity: %w", domain.ErrMissingID)
	}
	var posts []domain.Post
	if err := c.get(ctx, "posts_of_celebrity", "post/celebrity/"+url.PathEscape(celebrityID), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) CreatePost(ctx context.Context, post domain.NewPost) (domain.Post, error) {
	var created domain.Post
	if err := c.post(ctx, "create_post", "post", post, &created); err != nil {
		return domain.Post{}, err
	}
	return created, nil
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	if postID == "" {
		return fmt.Errorf("delete post: %w", domain.ErrMissingID)
	}
	return c.call(ctx, "delete_post", http.MethodDelete, "post/"+url.PathEscape(postID), nil, nil)
}
