package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix prefixes the hash keys of a RedisBackend.
const DefaultRedisPrefix = "pagecomposer:"

// RedisBackend keeps each kind in one Redis hash.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps client. An empty prefix uses DefaultRedisPrefix.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return NewRedisBackend(client, prefix), nil
}

func (r *RedisBackend) key(kind Kind) string { return r.prefix + string(kind) }

func (r *RedisBackend) Get(ctx context.Context, kind Kind, id string) ([]byte, error) {
	data, err := r.client.HGet(ctx, r.key(kind), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s/%s: %w", kind, id, err)
	}
	return data, nil
}

func (r *RedisBackend) Put(ctx context.Context, kind Kind, id string, data []byte) error {
	if err := r.client.HSet(ctx, r.key(kind), id, data).Err(); err != nil {
		return fmt.Errorf("redis put %s/%s: %w", kind, id, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, kind Kind, id string) error {
	if err := r.client.HDel(ctx, r.key(kind), id).Err(); err != nil {
		return fmt.Errorf("redis delete %s/%s: %w", kind, id, err)
	}
	return nil
}

func (r *RedisBackend) List(ctx context.Context, kind Kind) ([]string, error) {
	ids, err := r.client.HKeys(ctx, r.key(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", kind, err)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *RedisBackend) Close() error { return r.client.Close() }

var _ Backend = (*RedisBackend)(nil)
