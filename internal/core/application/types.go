package application

import (
	"context"
	"math/big"

	"github.com/wrap-near/guest-relayer/internal/core/domain"
)

type Service interface {
	Start() error
	Stop()
	Hello() string
	VerifyAccessKey(ctx context.Context, req SignedRequest) error
	StorageDeposit(ctx context.Context, req StorageDepositRequest) (string, error)
	AddKey(ctx context.Context, publicKey string) (string, error)
	DeleteAccessKeys(ctx context.Context) ([]string, error)
	AddGuest(ctx context.Context, accountId, publicKey string) (*AddGuestResult, error)
	Bootstrap(ctx context.Context) error
	GuestStatus(ctx context.Context, accountId string) (*domain.Guest, error)
	SyncGuests(ctx context.Context) error
	GetInfo(ctx context.Context) (*ServiceInfo, error)
}

// SignedRequest proves the caller holds one of the access keys of AccountId
// by signing a recent block height.
type SignedRequest struct {
	AccountId            string
	BlockNumber          uint64
	BlockNumberSignature string
}

type StorageDepositRequest struct {
	SignedRequest
	ImplicitAccountId string
}

type AddGuestResult struct {
	AddGuest string
	AddKey   string
}

type ServiceInfo struct {
	ContractName    string
	GuestsAccountId string
	ContractKey     string
	GuestsKey       string
	ChangeMethods   []string
	GuestAllowance  string
	BlockHeight     uint64
}

type Config struct {
	ContractName            string
	GuestsAccountId         string
	Gas                     uint64
	DefaultNewAccountAmount *big.Int
	GuestAllowance          *big.Int
	MaxBlockAge             uint64
	SyncInterval            int64
	ChangeMethods           []string
	ViewMethods             []string
}

func (c Config) guestsAccountId() string {
	if c.GuestsAccountId != "" {
		return c.GuestsAccountId
	}
	return "guests." + c.ContractName
}
