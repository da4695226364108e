package redislivestore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// KVStore is a generic key-value store for storing JSON-encoded structs in Redis.
type KVStore[T any] struct {
	rdb    *redis.Client
	prefix string // e.g., "nonce:"
	ttl    time.Duration
}

func NewRedisKVStore[T any](rdb *redis.Client, prefix string, ttl time.Duration) *KVStore[T] {
	return &KVStore[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *KVStore[T]) key(id string) string {
	return s.prefix + id
}

func (s *KVStore[T]) Get(ctx context.Context, id string) (*T, error) {
	return s.get(ctx, s.rdb, id)
}

func (s *KVStore[T]) Set(ctx context.Context, id string, value *T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(id), data, s.ttl).Err()
}

func (s *KVStore[T]) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

// Update runs fn over the current value inside a WATCH transaction and
// stores the result unless fn returns nil.
func (s *KVStore[T]) Update(ctx context.Context, id string, fn func(current *T) *T) error {
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		updated := fn(current)
		if updated == nil {
			return nil
		}
		data, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(id), data, s.ttl)
			return nil
		})
		return err
	}, s.key(id))
}

func (s *KVStore[T]) get(ctx context.Context, c getter, id string) (*T, error) {
	val, err := c.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
