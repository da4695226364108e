package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	badgerstore "github.com/wrap-near/guest-relayer/pkg/client-sdk/store/badger"
	filestore "github.com/wrap-near/guest-relayer/pkg/client-sdk/store/file"
	inmemorystore "github.com/wrap-near/guest-relayer/pkg/client-sdk/store/inmemory"
	"github.com/wrap-near/guest-relayer/pkg/client-sdk/types"
)

type Config struct {
	StoreType string

	BaseDir      string
	BadgerLogger badger.Logger
}

func NewGuestStore(storeConfig Config) (types.GuestStore, error) {
	switch storeConfig.StoreType {
	case types.InMemoryStore:
		return inmemorystore.NewGuestStore()
	case types.FileStore:
		return filestore.NewGuestStore(storeConfig.BaseDir)
	case types.BadgerStore:
		return badgerstore.NewGuestStore(storeConfig.BaseDir, storeConfig.BadgerLogger)
	default:
		return nil, fmt.Errorf("unknown guest store type %s", storeConfig.StoreType)
	}
}
