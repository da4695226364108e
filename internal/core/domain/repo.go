package domain

import (
	"context"
	"errors"
)

var (
	ErrGuestNotFound = errors.New("guest not found")
	ErrGrantNotFound = errors.New("access key grant not found")
)

type GuestRepository interface {
	AddOrUpdateGuest(ctx context.Context, guest *Guest) error
	GetGuest(ctx context.Context, accountId string) (*Guest, error)
	GetGuestsByStage(ctx context.Context, stages ...GuestStage) ([]*Guest, error)
	ListGuests(ctx context.Context) ([]*Guest, error)
	Close()
}

type AccessKeyRepository interface {
	AddGrant(ctx context.Context, grant AccessKeyGrant) error
	GetGrant(ctx context.Context, publicKey string) (*AccessKeyGrant, error)
	ListActiveGrants(ctx context.Context) ([]AccessKeyGrant, error)
	RevokeGrants(ctx context.Context, publicKeys []string, revokedAt int64) error
	Close()
}
