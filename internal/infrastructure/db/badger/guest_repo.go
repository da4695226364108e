package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"github.com/wrap-near/guest-relayer/internal/core/domain"
)

const guestStoreDir = "guests"

type guestRepository struct {
	store *badgerhold.Store
}

func NewGuestRepository(config ...interface{}) (domain.GuestRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, guestStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open guest store: %s", err)
	}

	return &guestRepository{store}, nil
}

func (r *guestRepository) AddOrUpdateGuest(ctx context.Context, guest *domain.Guest) error {
	if guest == nil || guest.AccountId == "" {
		return fmt.Errorf("missing guest account id")
	}
	return withRetry(func() error {
		if ctx.Value("tx") != nil {
			tx := ctx.Value("tx").(*badger.Txn)
			return r.store.TxUpsert(tx, guest.AccountId, *guest)
		}
		return r.store.Upsert(guest.AccountId, *guest)
	})
}

func (r *guestRepository) GetGuest(ctx context.Context, accountId string) (*domain.Guest, error) {
	var guest domain.Guest
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, accountId, &guest)
	} else {
		err = r.store.Get(accountId, &guest)
	}
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, domain.ErrGuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest %s: %w", accountId, err)
	}
	if guest.Stage.Code == int(domain.GuestUndefinedStage) {
		return nil, domain.ErrGuestNotFound
	}

	return &guest, nil
}

func (r *guestRepository) GetGuestsByStage(
	ctx context.Context, stages ...domain.GuestStage,
) ([]*domain.Guest, error) {
	if len(stages) <= 0 {
		return r.ListGuests(ctx)
	}

	codes := make([]interface{}, 0, len(stages))
	for _, stage := range stages {
		codes = append(codes, int(stage))
	}
	query := badgerhold.Where("Stage.Code").In(codes...).And("Stage.Failed").Eq(false)
	return r.findGuests(ctx, query)
}

func (r *guestRepository) ListGuests(ctx context.Context) ([]*domain.Guest, error) {
	return r.findGuests(ctx, nil)
}

func (r *guestRepository) Close() {
	// nolint:all
	r.store.Close()
}

func (r *guestRepository) findGuests(
	ctx context.Context, query *badgerhold.Query,
) ([]*domain.Guest, error) {
	var guests []domain.Guest
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &guests, query)
	} else {
		err = r.store.Find(&guests, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}

	result := make([]*domain.Guest, 0, len(guests))
	for i := range guests {
		result = append(result, &guests[i])
	}
	return result, nil
}
