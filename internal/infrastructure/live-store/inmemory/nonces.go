package inmemorylivestore

import (
	"context"
	"sync"

	"github.com/wrap-near/guest-relayer/internal/core/ports"
)

type nonceStore struct {
	lock   sync.RWMutex
	nonces map[string]uint64
}

func NewNonceStore() ports.NonceStore {
	return &nonceStore{
		nonces: make(map[string]uint64),
	}
}

func (s *nonceStore) GetNonce(_ context.Context, key string) (uint64, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	nonce, ok := s.nonces[key]
	return nonce, ok, nil
}

func (s *nonceStore) SetNonce(_ context.Context, key string, nonce uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if current, ok := s.nonces[key]; ok && current >= nonce {
		return nil
	}
	s.nonces[key] = nonce
	return nil
}

func (s *nonceStore) DeleteNonce(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.nonces, key)
	return nil
}
