package ports

import (
	"context"

	"github.com/wrap-near/guest-relayer/pkg/near"
)

type KeyLoader interface {
	LoadKey(ctx context.Context, accountId string) (*near.KeyPair, error)
}
