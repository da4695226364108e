package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/wrap-near/guest-relayer/internal/core/domain"
	"github.com/wrap-near/guest-relayer/internal/core/ports"
	badgerdb "github.com/wrap-near/guest-relayer/internal/infrastructure/db/badger"
	sqlitedb "github.com/wrap-near/guest-relayer/internal/infrastructure/db/sqlite"
)

var (
	guestStoreTypes = map[string]func(...interface{}) (domain.GuestRepository, error){
		"badger": badgerdb.NewGuestRepository,
		"sqlite": sqlitedb.NewGuestRepository,
	}
	grantStoreTypes = map[string]func(...interface{}) (domain.AccessKeyRepository, error){
		"badger": badgerdb.NewAccessKeyRepository,
		"sqlite": sqlitedb.NewAccessKeyRepository,
	}
)

const (
	sqliteDbFile = "sqlite.db"
)

// ServiceConfig selects the store implementation. Badger expects
// {baseDir, logger} as DataStoreConfig, an empty baseDir keeps data in
// memory. Sqlite expects {baseDir}.
type ServiceConfig struct {
	DataStoreType   string
	DataStoreConfig []interface{}
}

type service struct {
	guestStore domain.GuestRepository
	grantStore domain.AccessKeyRepository
}

func NewService(config ServiceConfig) (ports.RepoManager, error) {
	guestStoreFactory, ok := guestStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}
	grantStoreFactory, ok := grantStoreTypes[config.DataStoreType]
	if !ok {
		return nil, fmt.Errorf("invalid data store type: %s", config.DataStoreType)
	}

	storeConfig := config.DataStoreConfig
	if config.DataStoreType == "sqlite" {
		db, err := openSqlite(config.DataStoreConfig)
		if err != nil {
			return nil, err
		}
		storeConfig = []interface{}{db}
	}

	guestStore, err := guestStoreFactory(storeConfig...)
	if err != nil {
		return nil, fmt.Errorf("failed to create guest store: %w", err)
	}

	grantStore, err := grantStoreFactory(storeConfig...)
	if err != nil {
		guestStore.Close()
		return nil, fmt.Errorf("failed to create access key store: %w", err)
	}

	return &service{
		guestStore: guestStore,
		grantStore: grantStore,
	}, nil
}

func (s *service) Guests() domain.GuestRepository {
	return s.guestStore
}

func (s *service) AccessKeys() domain.AccessKeyRepository {
	return s.grantStore
}

func (s *service) Close() {
	s.guestStore.Close()
	s.grantStore.Close()
}

func openSqlite(config []interface{}) (*sql.DB, error) {
	if len(config) != 1 {
		return nil, errors.New("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, errors.New("invalid config")
	}

	dbPath := filepath.Join(baseDir, sqliteDbFile)
	if err := migrateSqlite(dbPath); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}

	db, err := sqlitedb.OpenDb(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return db, nil
}

func migrateSqlite(dbPath string) error {
	db, err := sqlitedb.OpenDb(dbPath)
	if err != nil {
		return err
	}

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		// nolint:errcheck
		db.Close()
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(sqlitedb.Migrations, "migration")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// nolint:errcheck
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate up: %w", err)
	}

	return nil
}
