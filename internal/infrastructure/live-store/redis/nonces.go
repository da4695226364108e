package redislivestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wrap-near/guest-relayer/internal/core/ports"
)

const (
	noncePrefix = "nonce:"
	// cached nonces expire so an idle relayer re-reads them from chain.
	nonceTTL = time.Hour
)

type nonceEntry struct {
	Nonce     uint64 `json:"nonce"`
	UpdatedAt int64  `json:"updatedAt"`
}

type nonceStore struct {
	kv           *KVStore[nonceEntry]
	numOfRetries int
}

func NewNonceStore(rdb *redis.Client, numOfRetries int) ports.NonceStore {
	if numOfRetries <= 0 {
		numOfRetries = 1
	}
	return &nonceStore{
		kv:           NewRedisKVStore[nonceEntry](rdb, noncePrefix, nonceTTL),
		numOfRetries: numOfRetries,
	}
}

func (s *nonceStore) GetNonce(ctx context.Context, key string) (uint64, bool, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get nonce: %w", err)
	}
	if entry == nil {
		return 0, false, nil
	}
	return entry.Nonce, true, nil
}

// SetNonce never moves a nonce backwards, a concurrent replica may already
// have stored a higher one.
func (s *nonceStore) SetNonce(ctx context.Context, key string, nonce uint64) error {
	var err error
	for attempt := 0; attempt < s.numOfRetries; attempt++ {
		err = s.kv.Update(ctx, key, func(current *nonceEntry) *nonceEntry {
			if current != nil && current.Nonce >= nonce {
				return nil
			}
			return &nonceEntry{Nonce: nonce, UpdatedAt: time.Now().Unix()}
		})
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to set nonce: %w", err)
	}
	return nil
}

func (s *nonceStore) DeleteNonce(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete nonce: %w", err)
	}
	return nil
}
