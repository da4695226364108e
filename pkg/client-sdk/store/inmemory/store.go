package inmemorystore

import (
	"context"
	"sync"

	"github.com/wrap-near/guest-relayer/pkg/client-sdk/types"
)

type store struct {
	data *types.GuestState
	lock *sync.RWMutex
}

func NewGuestStore() (types.GuestStore, error) {
	lock := &sync.RWMutex{}
	return &store{lock: lock}, nil
}

func (s *store) Close() {}

func (s *store) GetType() string {
	return types.InMemoryStore
}

func (s *store) GetDatadir() string {
	return ""
}

func (s *store) AddData(_ context.Context, data types.GuestState) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = &data
	return nil
}

func (s *store) GetData(_ context.Context) (*types.GuestState, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.data == nil {
		return nil, nil
	}

	data := *s.data
	return &data, nil
}

func (s *store) CleanData(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = nil
	return nil
}
