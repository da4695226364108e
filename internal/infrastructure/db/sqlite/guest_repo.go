package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wrap-near/guest-relayer/internal/core/domain"
)

const (
	upsertGuestQuery = `
INSERT INTO guest (
    account_id, public_key, upgraded_public_key, token_balance, stage_code,
    ended, failed, fail_reason, created_at, updated_at, version
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(account_id) DO UPDATE SET
    public_key = EXCLUDED.public_key,
    upgraded_public_key = EXCLUDED.upgraded_public_key,
    token_balance = EXCLUDED.token_balance,
    stage_code = EXCLUDED.stage_code,
    ended = EXCLUDED.ended,
    failed = EXCLUDED.failed,
    fail_reason = EXCLUDED.fail_reason,
    updated_at = EXCLUDED.updated_at,
    version = EXCLUDED.version`

	selectGuestColumns = `
SELECT account_id, public_key, upgraded_public_key, token_balance, stage_code,
    ended, failed, fail_reason, created_at, updated_at, version
FROM guest`
)

type guestRepository struct {
	db *sql.DB
}

func NewGuestRepository(config ...interface{}) (domain.GuestRepository, error) {
	db, err := parseConfig(config, "guest")
	if err != nil {
		return nil, err
	}
	return &guestRepository{db}, nil
}

func (r *guestRepository) AddOrUpdateGuest(ctx context.Context, guest *domain.Guest) error {
	if guest == nil || guest.AccountId == "" {
		return fmt.Errorf("missing guest account id")
	}
	if _, err := r.db.ExecContext(
		ctx, upsertGuestQuery,
		guest.AccountId, guest.PublicKey, guest.UpgradedPublicKey, guest.TokenBalance,
		guest.Stage.Code, guest.Stage.Ended, guest.Stage.Failed, guest.FailReason,
		guest.CreatedAt, guest.UpdatedAt, guest.Version,
	); err != nil {
		return fmt.Errorf("failed to upsert guest: %w", err)
	}
	return nil
}

func (r *guestRepository) GetGuest(ctx context.Context, accountId string) (*domain.Guest, error) {
	row := r.db.QueryRowContext(ctx, selectGuestColumns+" WHERE account_id = ?", accountId)
	guest, err := scanGuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest %s: %w", accountId, err)
	}
	return guest, nil
}

func (r *guestRepository) GetGuestsByStage(
	ctx context.Context, stages ...domain.GuestStage,
) ([]*domain.Guest, error) {
	if len(stages) <= 0 {
		return r.ListGuests(ctx)
	}

	placeholders := make([]string, 0, len(stages))
	args := make([]interface{}, 0, len(stages))
	for _, stage := range stages {
		placeholders = append(placeholders, "?")
		args = append(args, int(stage))
	}
	query := fmt.Sprintf(
		"%s WHERE failed = FALSE AND stage_code IN (%s) ORDER BY created_at",
		selectGuestColumns, strings.Join(placeholders, ", "),
	)
	return r.queryGuests(ctx, query, args...)
}

func (r *guestRepository) ListGuests(ctx context.Context) ([]*domain.Guest, error) {
	return r.queryGuests(ctx, selectGuestColumns+" ORDER BY created_at")
}

func (r *guestRepository) Close() {
	_ = r.db.Close()
}

func (r *guestRepository) queryGuests(
	ctx context.Context, query string, args ...interface{},
) ([]*domain.Guest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	// nolint:errcheck
	defer rows.Close()

	guests := make([]*domain.Guest, 0)
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, guest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	return guests, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGuest(row scanner) (*domain.Guest, error) {
	var guest domain.Guest
	if err := row.Scan(
		&guest.AccountId, &guest.PublicKey, &guest.UpgradedPublicKey, &guest.TokenBalance,
		&guest.Stage.Code, &guest.Stage.Ended, &guest.Stage.Failed, &guest.FailReason,
		&guest.CreatedAt, &guest.UpdatedAt, &guest.Version,
	); err != nil {
		return nil, err
	}
	return &guest, nil
}
