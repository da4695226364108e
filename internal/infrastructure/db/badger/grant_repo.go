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

const grantStoreDir = "grants"

type grantRepository struct {
	store *badgerhold.Store
}

func NewAccessKeyRepository(config ...interface{}) (domain.AccessKeyRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, grantStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open access key store: %s", err)
	}

	return &grantRepository{store}, nil
}

func (r *grantRepository) AddGrant(ctx context.Context, grant domain.AccessKeyGrant) error {
	if grant.PublicKey == "" {
		return fmt.Errorf("missing grant public key")
	}
	return withRetry(func() error {
		if ctx.Value("tx") != nil {
			tx := ctx.Value("tx").(*badger.Txn)
			return r.store.TxUpsert(tx, grant.PublicKey, grant)
		}
		return r.store.Upsert(grant.PublicKey, grant)
	})
}

func (r *grantRepository) GetGrant(
	ctx context.Context, publicKey string,
) (*domain.AccessKeyGrant, error) {
	var grant domain.AccessKeyGrant
	if err := r.store.Get(publicKey, &grant); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to get grant %s: %w", publicKey, err)
	}
	return &grant, nil
}

func (r *grantRepository) ListActiveGrants(ctx context.Context) ([]domain.AccessKeyGrant, error) {
	var grants []domain.AccessKeyGrant
	query := badgerhold.Where("RevokedAt").Eq(int64(0))
	if err := r.store.Find(&grants, query); err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return grants, nil
}

// RevokeGrants marks the grants of the given keys as revoked. Unknown keys are
// skipped, the relayer may delete keys it never granted.
func (r *grantRepository) RevokeGrants(
	ctx context.Context, publicKeys []string, revokedAt int64,
) error {
	return withRetry(func() error {
		return r.store.Badger().Update(func(tx *badger.Txn) error {
			for _, key := range publicKeys {
				var grant domain.AccessKeyGrant
				if err := r.store.TxGet(tx, key, &grant); err != nil {
					if errors.Is(err, badgerhold.ErrNotFound) {
						continue
					}
					return err
				}
				if grant.IsRevoked() {
					continue
				}
				grant.RevokedAt = revokedAt
				if err := r.store.TxUpdate(tx, key, grant); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (r *grantRepository) Close() {
	// nolint:all
	r.store.Close()
}
