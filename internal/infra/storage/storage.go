// Package storage хранит локальное состояние клиентских хранилищ.
package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"socialvibe/internal/domain"
)

// Options выбирает и настраивает бэкенд.
type Options struct {
	Backend     string
	Path        string
	RedisAddr   string
	RedisPrefix string
}

// Open создаёт хранилище по имени бэкенда.
func Open(ctx context.Context, opts Options) (domain.StateStorage, func() error, error) {
	switch opts.Backend {
	case "", "sqlite":
		s, err := NewSQLite(ctx, opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedis(client, opts.RedisPrefix), client.Close, nil
	case "memory":
		return NewMemory(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", opts.Backend)
	}
}
