package filekeyloader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wrap-near/guest-relayer/internal/core/ports"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

// credentials is the near-cli key file format.
type credentials struct {
	AccountId  string `json:"account_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

type service struct {
	dir string
}

// NewService loads keys from <credentialsDir>/<networkId>/<account>.json.
func NewService(credentialsDir, networkId string) (ports.KeyLoader, error) {
	dir := filepath.Join(credentialsDir, networkId)
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return &service{dir}, nil
}

func (s *service) LoadKey(_ context.Context, accountId string) (*near.KeyPair, error) {
	buf, err := os.ReadFile(filepath.Join(s.dir, fmt.Sprintf("%s.json", accountId)))
	if err != nil {
		return nil, err
	}

	var creds credentials
	if err := json.Unmarshal(buf, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials file for %s: %s", accountId, err)
	}
	if len(creds.AccountId) > 0 && creds.AccountId != accountId {
		return nil, fmt.Errorf(
			"credentials file for %s belongs to %s", accountId, creds.AccountId,
		)
	}

	keyPair, err := near.KeyPairFromString(creds.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key for %s: %s", accountId, err)
	}
	if len(creds.PublicKey) > 0 && creds.PublicKey != keyPair.PublicKey().String() {
		return nil, fmt.Errorf("public key mismatch in credentials of %s", accountId)
	}
	return keyPair, nil
}
