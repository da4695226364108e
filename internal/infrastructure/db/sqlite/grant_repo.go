package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wrap-near/guest-relayer/internal/core/domain"
)

const (
	upsertGrantQuery = `
INSERT INTO access_key_grant (
    public_key, account_id, receiver_id, method_names, allowance, tx_hash, created_at, revoked_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(public_key) DO UPDATE SET
    account_id = EXCLUDED.account_id,
    receiver_id = EXCLUDED.receiver_id,
    method_names = EXCLUDED.method_names,
    allowance = EXCLUDED.allowance,
    tx_hash = EXCLUDED.tx_hash,
    created_at = EXCLUDED.created_at,
    revoked_at = EXCLUDED.revoked_at`

	selectGrantColumns = `
SELECT public_key, account_id, receiver_id, method_names, allowance, tx_hash, created_at, revoked_at
FROM access_key_grant`

	revokeGrantQuery = `
UPDATE access_key_grant SET revoked_at = ? WHERE public_key = ? AND revoked_at = 0`
)

type grantRepository struct {
	db *sql.DB
}

func NewAccessKeyRepository(config ...interface{}) (domain.AccessKeyRepository, error) {
	db, err := parseConfig(config, "access key")
	if err != nil {
		return nil, err
	}
	return &grantRepository{db}, nil
}

func (r *grantRepository) AddGrant(ctx context.Context, grant domain.AccessKeyGrant) error {
	if grant.PublicKey == "" {
		return fmt.Errorf("missing grant public key")
	}
	methodNames := grant.MethodNames
	if methodNames == nil {
		methodNames = []string{}
	}
	buf, err := json.Marshal(methodNames)
	if err != nil {
		return fmt.Errorf("failed to encode method names: %w", err)
	}
	if _, err := r.db.ExecContext(
		ctx, upsertGrantQuery,
		grant.PublicKey, grant.AccountId, grant.ReceiverId, string(buf),
		grant.Allowance, grant.TxHash, grant.CreatedAt, grant.RevokedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert grant: %w", err)
	}
	return nil
}

func (r *grantRepository) GetGrant(
	ctx context.Context, publicKey string,
) (*domain.AccessKeyGrant, error) {
	row := r.db.QueryRowContext(ctx, selectGrantColumns+" WHERE public_key = ?", publicKey)
	grant, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant %s: %w", publicKey, err)
	}
	return grant, nil
}

func (r *grantRepository) ListActiveGrants(ctx context.Context) ([]domain.AccessKeyGrant, error) {
	rows, err := r.db.QueryContext(
		ctx, selectGrantColumns+" WHERE revoked_at = 0 ORDER BY created_at",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	// nolint:errcheck
	defer rows.Close()

	grants := make([]domain.AccessKeyGrant, 0)
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, *grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return grants, nil
}

func (r *grantRepository) RevokeGrants(
	ctx context.Context, publicKeys []string, revokedAt int64,
) error {
	return execTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, key := range publicKeys {
			if _, err := tx.ExecContext(ctx, revokeGrantQuery, revokedAt, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *grantRepository) Close() {
	_ = r.db.Close()
}

func scanGrant(row scanner) (*domain.AccessKeyGrant, error) {
	var grant domain.AccessKeyGrant
	var methodNames string
	if err := row.Scan(
		&grant.PublicKey, &grant.AccountId, &grant.ReceiverId, &methodNames,
		&grant.Allowance, &grant.TxHash, &grant.CreatedAt, &grant.RevokedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(methodNames), &grant.MethodNames); err != nil {
		return nil, fmt.Errorf("invalid method names: %w", err)
	}
	return &grant, nil
}
