package near_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/require"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

func TestAccountSignAndSend(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode(t)
	client := near.NewClient(node.URL)

	keyPair, err := near.GenerateKeyPair()
	require.NoError(t, err)

	blockHash := sha256.Sum256([]byte("final"))
	node.handle("block", func(json.RawMessage) (interface{}, *rpcError) {
		return map[string]interface{}{
			"header": map[string]interface{}{"height": 99, "hash": base58.Encode(blockHash[:])},
		}, nil
	})
	node.handle("query/view_access_key", func(json.RawMessage) (interface{}, *rpcError) {
		return map[string]interface{}{"nonce": 7, "permission": "FullAccess"}, nil
	})

	var lock sync.Mutex
	nonces := make([]uint64, 0)
	failNext := false
	node.handle("broadcast_tx_commit", func(params json.RawMessage) (interface{}, *rpcError) {
		var args []string
		require.NoError(t, json.Unmarshal(params, &args))
		require.Len(t, args, 1)
		buf, err := base64.StdEncoding.DecodeString(args[0])
		require.NoError(t, err)
		signedTx, err := near.DecodeSignedTransaction(buf)
		require.NoError(t, err)

		tx := signedTx.Transaction
		require.Equal(t, "wrap.testnet", tx.SignerId)
		require.Equal(t, keyPair.PublicKey(), tx.PublicKey)
		require.Equal(t, blockHash, tx.BlockHash)

		lock.Lock()
		defer lock.Unlock()
		if failNext {
			failNext = false
			return nil, &rpcError{
				Code: -32000, Message: "Server error",
				Data: map[string]interface{}{
					"TxExecutionError": map[string]interface{}{
						"InvalidTxError": map[string]interface{}{
							"InvalidNonce": map[string]interface{}{"tx_nonce": tx.Nonce, "ak_nonce": 20},
						},
					},
				},
			}
		}
		nonces = append(nonces, tx.Nonce)
		return map[string]interface{}{
			"status":      map[string]interface{}{"SuccessValue": ""},
			"transaction": map[string]interface{}{"hash": "txhash", "signer_id": tx.SignerId},
		}, nil
	})

	cache := newNonceCache()
	account := near.NewAccount("wrap.testnet", keyPair, client, cache)

	outcome, err := account.FunctionCall(
		ctx, "wrap.testnet", "storage_deposit",
		map[string]string{"account_id": "alice.testnet"}, 30000000000000,
		near.MustParseNearAmount("0.00125"),
	)
	require.NoError(t, err)
	require.Equal(t, "txhash", outcome.Transaction.Hash)

	_, err = account.Transfer(ctx, "bob.testnet", big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, []uint64{8, 9}, nonces)
	require.Equal(t, 1, node.called("query/view_access_key"))

	lock.Lock()
	failNext = true
	lock.Unlock()
	_, err = account.DeleteKey(ctx, keyPair.PublicKey())
	require.NoError(t, err)
	require.Equal(t, []uint64{8, 9, 8}, nonces)
	require.Equal(t, 2, node.called("query/view_access_key"))
}

func TestAccountTxFailure(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode(t)
	client := near.NewClient(node.URL)

	keyPair, err := near.GenerateKeyPair()
	require.NoError(t, err)

	blockHash := sha256.Sum256([]byte("final"))
	node.handle("block", func(json.RawMessage) (interface{}, *rpcError) {
		return map[string]interface{}{
			"header": map[string]interface{}{"height": 1, "hash": base58.Encode(blockHash[:])},
		}, nil
	})
	node.handle("query/view_access_key", func(json.RawMessage) (interface{}, *rpcError) {
		return map[string]interface{}{"nonce": 0, "permission": "FullAccess"}, nil
	})
	node.handle("broadcast_tx_commit", func(json.RawMessage) (interface{}, *rpcError) {
		return json.RawMessage(`{
			"status": {"Failure": {"ActionError": {"index": 0, "kind": {"FunctionCallError":
				{"ExecutionError": "Smart contract panicked: guest account already added"}}}}},
			"transaction": {"hash": "failedhash"}
		}`), nil
	})

	cache := newNonceCache()
	account := near.NewAccount("wrap.testnet", keyPair, client, cache)
	outcome, err := account.FunctionCall(
		ctx, "wrap.testnet", "add_guest", nil, 30000000000000, nil,
	)
	require.Error(t, err)
	require.True(t, near.IsKeyAlreadyAdded(err))
	require.NotNil(t, outcome)
	require.Equal(t, "failedhash", outcome.Transaction.Hash)

	nonce, ok, err := cache.GetNonce(ctx, "wrap.testnet:"+keyPair.PublicKey().String())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), nonce)
}

type nonceCache struct {
	lock   sync.Mutex
	nonces map[string]uint64
}

func newNonceCache() *nonceCache {
	return &nonceCache{nonces: make(map[string]uint64)}
}

func (c *nonceCache) GetNonce(_ context.Context, key string) (uint64, bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	nonce, ok := c.nonces[key]
	return nonce, ok, nil
}

func (c *nonceCache) SetNonce(_ context.Context, key string, nonce uint64) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.nonces[key] = nonce
	return nil
}

func (c *nonceCache) DeleteNonce(_ context.Context, key string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.nonces, key)
	return nil
}
