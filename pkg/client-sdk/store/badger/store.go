package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"github.com/wrap-near/guest-relayer/pkg/client-sdk/types"
)

const (
	guestStoreDir = "guest"
	guestKey      = "guest"
)

type guestStore struct {
	db      *badgerhold.Store
	datadir string
}

// NewGuestStore opens the store in baseDir, or in memory if baseDir is
// empty.
func NewGuestStore(baseDir string, logger badger.Logger) (types.GuestStore, error) {
	dir := baseDir
	if len(dir) > 0 {
		dir = filepath.Join(baseDir, guestStoreDir)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = logger
	if len(dir) <= 0 {
		opts.InMemory = true
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder: badgerhold.DefaultEncode,
		Decoder: badgerhold.DefaultDecode,
		Options: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open guest store: %s", err)
	}
	return &guestStore{db, baseDir}, nil
}

func (s *guestStore) Close() {
	// nolint:all
	s.db.Close()
}

func (s *guestStore) GetType() string {
	return types.BadgerStore
}

func (s *guestStore) GetDatadir() string {
	return s.datadir
}

func (s *guestStore) AddData(_ context.Context, data types.GuestState) error {
	return s.db.Upsert(guestKey, &data)
}

func (s *guestStore) GetData(_ context.Context) (*types.GuestState, error) {
	var data types.GuestState
	if err := s.db.Get(guestKey, &data); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &data, nil
}

func (s *guestStore) CleanData(_ context.Context) error {
	if err := s.db.Delete(guestKey, types.GuestState{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}
