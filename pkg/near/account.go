package near

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
)

// NonceCache remembers the last nonce used by an access key so consecutive
// transactions don't have to query the node.
type NonceCache interface {
	GetNonce(ctx context.Context, key string) (uint64, bool, error)
	SetNonce(ctx context.Context, key string, nonce uint64) error
	DeleteNonce(ctx context.Context, key string) error
}

type Account struct {
	id       string
	keyPair  *KeyPair
	provider Provider
	nonces   NonceCache

	lock sync.Mutex
}

func NewAccount(id string, keyPair *KeyPair, provider Provider, nonces NonceCache) *Account {
	return &Account{
		id:       id,
		keyPair:  keyPair,
		provider: provider,
		nonces:   nonces,
	}
}

func (a *Account) ID() string {
	return a.id
}

func (a *Account) PublicKey() PublicKey {
	return a.keyPair.PublicKey()
}

func (a *Account) State(ctx context.Context) (*AccountView, error) {
	return a.provider.ViewAccount(ctx, a.id)
}

func (a *Account) AccessKeys(ctx context.Context) ([]AccessKeyInfo, error) {
	return a.provider.ViewAccessKeyList(ctx, a.id)
}

func (a *Account) FunctionCall(
	ctx context.Context, contractId, method string, args interface{},
	gas uint64, deposit *big.Int,
) (*FinalExecutionOutcome, error) {
	rawArgs, err := marshalArgs(args)
	if err != nil {
		return nil, err
	}
	return a.SignAndSendTransaction(
		ctx, contractId, NewFunctionCallAction(method, rawArgs, gas, deposit),
	)
}

// AddKey adds pubkey to the account. An empty contractId adds a full access
// key, otherwise the key may only call methodNames on contractId.
func (a *Account) AddKey(
	ctx context.Context, pubkey PublicKey, contractId string,
	methodNames []string, allowance *big.Int,
) (*FinalExecutionOutcome, error) {
	action := NewFullAccessKeyAction(pubkey)
	if len(contractId) > 0 {
		action = NewFunctionCallKeyAction(pubkey, contractId, methodNames, allowance)
	}
	return a.SignAndSendTransaction(ctx, a.id, action)
}

func (a *Account) DeleteKey(ctx context.Context, pubkey PublicKey) (*FinalExecutionOutcome, error) {
	return a.SignAndSendTransaction(ctx, a.id, NewDeleteKeyAction(pubkey))
}

func (a *Account) CreateAccount(
	ctx context.Context, newAccountId string, pubkey PublicKey, amount *big.Int,
) (*FinalExecutionOutcome, error) {
	return a.SignAndSendTransaction(
		ctx, newAccountId,
		NewCreateAccountAction(),
		NewTransferAction(amount),
		NewFullAccessKeyAction(pubkey),
	)
}

func (a *Account) Transfer(
	ctx context.Context, receiverId string, amount *big.Int,
) (*FinalExecutionOutcome, error) {
	return a.SignAndSendTransaction(ctx, receiverId, NewTransferAction(amount))
}

// ViewFunction runs a view method and decodes its JSON result into reply.
func (a *Account) ViewFunction(
	ctx context.Context, contractId, method string, args, reply interface{},
) error {
	return ViewFunction(ctx, a.provider, contractId, method, args, reply)
}

// SignAndSendTransaction signs with the account key and waits for the final
// outcome. Transactions signed by the same Account are serialized, and a
// stale cached nonce is refreshed with a single retry.
func (a *Account) SignAndSendTransaction(
	ctx context.Context, receiverId string, actions ...Action,
) (*FinalExecutionOutcome, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	outcome, err := a.signAndSend(ctx, receiverId, actions)
	if err != nil && IsInvalidNonce(err) {
		if err := a.forgetNonce(ctx); err != nil {
			return nil, err
		}
		return a.signAndSend(ctx, receiverId, actions)
	}
	return outcome, err
}

func (a *Account) signAndSend(
	ctx context.Context, receiverId string, actions []Action,
) (*FinalExecutionOutcome, error) {
	nonce, err := a.nextNonce(ctx)
	if err != nil {
		return nil, err
	}

	block, err := a.provider.FinalBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get final block: %w", err)
	}
	blockHash, err := block.HashBytes()
	if err != nil {
		return nil, err
	}

	tx := Transaction{
		SignerId:   a.id,
		PublicKey:  a.keyPair.PublicKey(),
		Nonce:      nonce,
		ReceiverId: receiverId,
		BlockHash:  blockHash,
		Actions:    actions,
	}
	txHash, signedTx, err := SignTransaction(tx, a.keyPair)
	if err != nil {
		return nil, err
	}

	outcome, err := a.provider.BroadcastTxCommit(ctx, signedTx)
	if outcome != nil {
		// The nonce is consumed even if the tx execution failed.
		if err := a.storeNonce(ctx, nonce); err != nil {
			return nil, err
		}
		if len(outcome.Transaction.Hash) <= 0 {
			outcome.Transaction.Hash = txHash
		}
	}
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (a *Account) nextNonce(ctx context.Context) (uint64, error) {
	if a.nonces != nil {
		nonce, ok, err := a.nonces.GetNonce(ctx, a.nonceKey())
		if err != nil {
			return 0, fmt.Errorf("failed to get cached nonce: %s", err)
		}
		if ok {
			return nonce + 1, nil
		}
	}

	accessKey, err := a.provider.ViewAccessKey(ctx, a.id, a.keyPair.PublicKey())
	if err != nil {
		return 0, fmt.Errorf("failed to get access key of %s: %w", a.id, err)
	}
	return accessKey.Nonce + 1, nil
}

func (a *Account) storeNonce(ctx context.Context, nonce uint64) error {
	if a.nonces == nil {
		return nil
	}
	return a.nonces.SetNonce(ctx, a.nonceKey(), nonce)
}

func (a *Account) forgetNonce(ctx context.Context) error {
	if a.nonces == nil {
		return nil
	}
	return a.nonces.DeleteNonce(ctx, a.nonceKey())
}

func (a *Account) nonceKey() string {
	return fmt.Sprintf("%s:%s", a.id, a.keyPair.PublicKey())
}

func ViewFunction(
	ctx context.Context, provider Provider, contractId, method string, args, reply interface{},
) error {
	result, err := provider.CallFunction(ctx, contractId, method, args)
	if err != nil {
		return err
	}
	if len(result) <= 0 || reply == nil {
		return nil
	}
	if err := json.Unmarshal(result, reply); err != nil {
		return fmt.Errorf("failed to decode %s result: %s", method, err)
	}
	return nil
}
