package keyloader_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	envkeyloader "github.com/wrap-near/guest-relayer/internal/infrastructure/keyloader/env"
	filekeyloader "github.com/wrap-near/guest-relayer/internal/infrastructure/keyloader/file"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

func TestFileKeyLoader(t *testing.T) {
	ctx := context.Background()
	keyPair, err := near.GenerateKeyPair()
	require.NoError(t, err)
	other, err := near.GenerateKeyPair()
	require.NoError(t, err)

	dir := t.TempDir()
	netDir := filepath.Join(dir, "testnet")
	require.NoError(t, os.MkdirAll(netDir, 0755))

	writeCreds := func(name string, creds map[string]string) {
		buf, err := json.Marshal(creds)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(netDir, name+".json"), buf, 0600))
	}
	writeCreds("wrap.testnet", map[string]string{
		"account_id":  "wrap.testnet",
		"public_key":  keyPair.PublicKey().String(),
		"private_key": keyPair.String(),
	})
	writeCreds("mismatch.testnet", map[string]string{
		"public_key":  other.PublicKey().String(),
		"private_key": keyPair.String(),
	})
	writeCreds("owner.testnet", map[string]string{
		"account_id":  "someone.testnet",
		"private_key": keyPair.String(),
	})

	_, err = filekeyloader.NewService(dir, "mainnet")
	require.Error(t, err)

	loader, err := filekeyloader.NewService(dir, "testnet")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		loaded, err := loader.LoadKey(ctx, "wrap.testnet")
		require.NoError(t, err)
		require.Equal(t, keyPair.PublicKey(), loaded.PublicKey())
	})

	t.Run("invalid", func(t *testing.T) {
		fixtures := []struct {
			accountId   string
			expectedErr string
		}{
			{"mismatch.testnet", "public key mismatch in credentials of mismatch.testnet"},
			{"owner.testnet", "credentials file for owner.testnet belongs to someone.testnet"},
		}
		for _, f := range fixtures {
			loaded, err := loader.LoadKey(ctx, f.accountId)
			require.EqualError(t, err, f.expectedErr)
			require.Nil(t, loaded)
		}

		_, err := loader.LoadKey(ctx, "unknown.testnet")
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestEnvKeyLoader(t *testing.T) {
	ctx := context.Background()
	keyPair, err := near.GenerateKeyPair()
	require.NoError(t, err)

	_, err = envkeyloader.NewService(map[string]string{"wrap.testnet": ""})
	require.EqualError(t, err, "missing account secrets in env")

	loader, err := envkeyloader.NewService(map[string]string{
		"wrap.testnet":        keyPair.String(),
		"guests.wrap.testnet": "ed25519:invalid",
	})
	require.NoError(t, err)

	loaded, err := loader.LoadKey(ctx, "wrap.testnet")
	require.NoError(t, err)
	require.Equal(t, keyPair.PublicKey(), loaded.PublicKey())

	_, err = loader.LoadKey(ctx, "guests.wrap.testnet")
	require.Error(t, err)

	_, err = loader.LoadKey(ctx, "other.testnet")
	require.EqualError(t, err, "missing secret for account other.testnet in env")
}
