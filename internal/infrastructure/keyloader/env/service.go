package envkeyloader

import (
	"context"
	"fmt"

	"github.com/wrap-near/guest-relayer/internal/core/ports"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

type service struct {
	secrets map[string]string
}

// NewService serves keys passed through the environment, indexed by
// account id.
func NewService(secrets map[string]string) (ports.KeyLoader, error) {
	filtered := make(map[string]string)
	for accountId, secret := range secrets {
		if len(secret) > 0 {
			filtered[accountId] = secret
		}
	}
	if len(filtered) <= 0 {
		return nil, fmt.Errorf("missing account secrets in env")
	}
	return &service{filtered}, nil
}

func (s *service) LoadKey(_ context.Context, accountId string) (*near.KeyPair, error) {
	secret, ok := s.secrets[accountId]
	if !ok {
		return nil, fmt.Errorf("missing secret for account %s in env", accountId)
	}
	keyPair, err := near.KeyPairFromString(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid secret for account %s: %s", accountId, err)
	}
	return keyPair, nil
}
