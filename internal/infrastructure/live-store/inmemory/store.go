package inmemorylivestore

import "github.com/wrap-near/guest-relayer/internal/core/ports"

func NewLiveStore() ports.LiveStore {
	return &inMemoryLiveStore{
		nonceStore: NewNonceStore(),
	}
}

func (s *inMemoryLiveStore) Nonces() ports.NonceStore { return s.nonceStore }
func (s *inMemoryLiveStore) Close()                   {}

type inMemoryLiveStore struct {
	nonceStore ports.NonceStore
}
