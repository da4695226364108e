package client

import (
	"context"
	"errors"
	"fmt"
)

// ErrKeyAlreadyAdded is returned when the relayer already added a key for
// the requested account.
var ErrKeyAlreadyAdded = errors.New("key is already added")

type RelayerClient interface {
	GetInfo(ctx context.Context) (*Info, error)
	HasAccessKey(ctx context.Context, req SignedRequest) error
	StorageDeposit(ctx context.Context, req SignedRequest) (string, error)
	AddGuest(ctx context.Context, accountId, publicKey string) (*AddGuestResult, error)
	Close()
}

// SignedRequest proves the ownership of an access key of AccountId by
// signing a recent block height.
type SignedRequest struct {
	AccountId            string
	BlockNumber          uint64
	BlockNumberSignature string
	ImplicitAccountId    string
}

type AddGuestResult struct {
	AddGuest string
	AddKey   string
}

type Info struct {
	ContractName    string
	GuestsAccountId string
	ContractKey     string
	GuestsKey       string
	ChangeMethods   []string
	GuestAllowance  string
	BlockHeight     uint64
}

// Error is a non-2xx response of the relayer.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("relayer error (%d): %s", e.Status, e.Message)
}
