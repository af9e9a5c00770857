package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"socialvibe/internal/domain"
)

// clearScript удаляет все ключи из индекса и сам индекс за одну атомарную операцию.
var clearScript = redis.NewScript(`
local keys = redis.call('SMEMBERS', KEYS[1])
for _, key in ipairs(keys) do
	redis.call('DEL', key)
end
redis.call('DEL', KEYS[1])
return #keys
`)

// Redis хранит состояние в Redis под общим префиксом.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis создаёт хранилище.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(namespace string) string {
	return r.prefix + ":" + namespace
}

func (r *Redis) indexKey() string {
	return r.prefix + ":namespaces"
}

// Load читает пространство имён.
func (r *Redis) Load(ctx context.Context, namespace string, v any) (bool, error) {
	raw, err := r.client.Get(ctx, r.key(namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", namespace, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", namespace, err)
	}
	return true, nil
}

// Save записывает пространство имён и регистрирует ключ в индексе.
func (r *Redis) Save(ctx context.Context, namespace string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", namespace, err)
	}
	key := r.key(namespace)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, raw, 0)
		pipe.SAdd(ctx, r.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", namespace, err)
	}
	return nil
}

// Clear стирает все пространства имён.
func (r *Redis) Clear(ctx context.Context) error {
	if err := clearScript.Run(ctx, r.client, []string{r.indexKey()}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

var _ domain.StateStorage = (*Redis)(nil)
