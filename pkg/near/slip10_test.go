package near

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// Vectors from SLIP-0010, test vector 1 for ed25519.
func TestDeriveKeyPair(t *testing.T) {
	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	fixtures := []struct {
		path     string
		expected string
	}{
		{"m/0'", "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3"},
		{"m/0'/1'", "b1d0bad404bf35da785a64ca1ac54b2617211d2777696fbffaf208f746ae84f2"},
	}
	for _, f := range fixtures {
		keyPair, err := deriveKeyPair(seed, f.path)
		require.NoError(t, err)
		require.Equal(t, f.expected, hex.EncodeToString(keyPair.privateKey.Seed()))
	}
}
