package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage"
)

// RedisKVStore stores records as plain string values under <prefix>:<key>.
type RedisKVStore struct {
	client goredis.UniversalClient // works with both single and cluster
	prefix string
}

// NewRedisKVStore wraps an existing client.
func NewRedisKVStore(client goredis.UniversalClient, prefix string) *RedisKVStore {
	return &RedisKVStore{client: client, prefix: prefix}
}

// Dial connects to addr and pings it before handing the store back.
func Dial(ctx context.Context, addr, password string, db int, prefix string) (*RedisKVStore, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisKVStore(client, prefix), nil
}

func (r *RedisKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores value without expiry; records live until the store is cleared.
func (r *RedisKVStore) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisKVStore) Close() error {
	return r.client.Close()
}

func (r *RedisKVStore) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

var _ interfaces.KVStore = (*RedisKVStore)(nil)
