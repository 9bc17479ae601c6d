// Package redisstore keeps protocol records in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/store"
	"github.com/redis/go-redis/v9"
)

type Backend struct {
	rdb *redis.Client
}

var _ store.Backend = (*Backend)(nil)

func New(rdb *redis.Client) *Backend {
	return &Backend{rdb: rdb}
}

// Open connects to addr and checks the connection.
func Open(ctx context.Context, addr string) (*Backend, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return New(rdb), nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := b.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.rdb.Close()
}
