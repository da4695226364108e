package ports

import (
	"context"
	"math/big"

	"github.com/wrap-near/guest-relayer/pkg/near"
)

// Signer submits transactions on behalf of one of the relayer's accounts.
// *near.Account implements it.
type Signer interface {
	ID() string
	PublicKey() near.PublicKey
	AccessKeys(ctx context.Context) ([]near.AccessKeyInfo, error)
	FunctionCall(
		ctx context.Context, contractId, method string, args interface{},
		gas uint64, deposit *big.Int,
	) (*near.FinalExecutionOutcome, error)
	AddKey(
		ctx context.Context, pubkey near.PublicKey, contractId string,
		methodNames []string, allowance *big.Int,
	) (*near.FinalExecutionOutcome, error)
	DeleteKey(ctx context.Context, pubkey near.PublicKey) (*near.FinalExecutionOutcome, error)
	CreateAccount(
		ctx context.Context, newAccountId string, pubkey near.PublicKey, amount *big.Int,
	) (*near.FinalExecutionOutcome, error)
}
