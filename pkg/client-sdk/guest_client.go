package guestsdk

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/wrap-near/guest-relayer/pkg/client-sdk/client"
	"github.com/wrap-near/guest-relayer/pkg/client-sdk/types"
	"github.com/wrap-near/guest-relayer/pkg/near"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGas = uint64(200000000000000)

	guestsAccountPrefix = "guests."
)

var (
	ErrKeyAlreadyAdded = client.ErrKeyAlreadyAdded
	ErrNoGuest         = errors.New("no guest account, provision one first")
	ErrGuestExists     = errors.New("a guest account already exists, remove it first")
	ErrNotFunded       = errors.New("guest account holds no tokens")
	ErrAlreadyUpgraded = errors.New("guest account already upgraded")

	usernameRegexp = regexp.MustCompile(`^[a-z0-9]+([-_][a-z0-9]+)*$`)

	viewMethods = []string{
		"storage_minimum_balance", "storage_balance_of", "ft_balance_of", "get_guest",
	}
	changeMethods = []string{
		"ft_transfer", "ft_transfer_call", "upgrade_guest",
	}
)

type GuestClient interface {
	Provision(ctx context.Context, username string) (*types.GuestState, error)
	Status(ctx context.Context) (*types.GuestStatus, error)
	Register(ctx context.Context) (string, error)
	Transfer(ctx context.Context, receiverId string, amount *big.Int) (string, error)
	Upgrade(ctx context.Context) (*types.GuestState, error)
	Remove(ctx context.Context) error
	GetState(ctx context.Context) (*types.GuestState, error)
	Stop()
}

type Config struct {
	ContractName string
	Gas          uint64
	Chain        near.Provider
	Relayer      client.RelayerClient
	Store        types.GuestStore
}

type guestClient struct {
	contractName    string
	guestsAccountId string
	gas             uint64
	chain           near.Provider
	relayer         client.RelayerClient
	store           types.GuestStore
	contract        *near.Contract

	lock sync.Mutex
}

func NewGuestClient(cfg Config) (GuestClient, error) {
	if len(cfg.ContractName) <= 0 {
		return nil, fmt.Errorf("missing contract name")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("missing chain provider")
	}
	if cfg.Relayer == nil {
		return nil, fmt.Errorf("missing relayer client")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("missing guest store")
	}
	gas := cfg.Gas
	if gas == 0 {
		gas = DefaultGas
	}

	return &guestClient{
		contractName:    cfg.ContractName,
		guestsAccountId: guestsAccountPrefix + cfg.ContractName,
		gas:             gas,
		chain:           cfg.Chain,
		relayer:         cfg.Relayer,
		store:           cfg.Store,
		contract:        near.NewContract(cfg.ContractName, cfg.Chain, viewMethods, changeMethods),
	}, nil
}

func (c *guestClient) Stop() {
	c.relayer.Close()
	c.store.Close()
}

func (c *guestClient) GetState(ctx context.Context) (*types.GuestState, error) {
	state, err := c.store.GetData(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNoGuest
	}
	return state, nil
}

// Provision asks the relayer to add a fresh key for
// <username>.<contract>. The key material is persisted only once the
// relayer accepted it.
func (c *guestClient) Provision(
	ctx context.Context, username string,
) (*types.GuestState, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	state, err := c.store.GetData(ctx)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return nil, ErrGuestExists
	}
	if !usernameRegexp.MatchString(username) {
		return nil, fmt.Errorf("invalid username %q", username)
	}

	seed, err := near.GenerateSeedPhrase()
	if err != nil {
		return nil, err
	}
	accountId := fmt.Sprintf("%s.%s", username, c.contractName)
	publicKey := seed.KeyPair.PublicKey().String()

	result, err := c.relayer.AddGuest(ctx, accountId, publicKey)
	if err != nil {
		if errors.Is(err, ErrKeyAlreadyAdded) {
			return nil, fmt.Errorf("%w: %s", ErrKeyAlreadyAdded, accountId)
		}
		return nil, fmt.Errorf("failed to add guest: %w", err)
	}
	if len(result.AddKey) <= 0 || len(result.AddGuest) > 0 {
		return nil, fmt.Errorf(
			"unexpected relayer response (add_guest: %q, addKey: %q)",
			result.AddGuest, result.AddKey,
		)
	}

	newState := types.GuestState{
		SeedPhrase:   seed.Phrase,
		AccountId:    accountId,
		AccessPublic: publicKey,
		AccessSecret: seed.KeyPair.String(),
		Stage:        types.KeyStageGuest,
	}
	if err := c.store.AddData(ctx, newState); err != nil {
		return nil, fmt.Errorf("guest added but failed to persist keys: %w", err)
	}
	log.Debugf("provisioned guest %s with key %s", accountId, publicKey)
	return &newState, nil
}

func (c *guestClient) Status(ctx context.Context) (*types.GuestStatus, error) {
	state, err := c.store.GetData(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &types.GuestStatus{Stage: types.StageNone}, nil
	}

	status := &types.GuestStatus{
		AccountId:      state.AccountId,
		PublicKey:      state.AccessPublic,
		PendingUpgrade: len(state.PendingSeedPhrase) > 0,
	}
	accountArgs := map[string]string{"account_id": state.AccountId}

	var mu sync.Mutex
	eg := &errgroup.Group{}
	eg.Go(func() error {
		var storage *storageBalance
		if err := c.contract.View(ctx, "storage_balance_of", accountArgs, &storage); err != nil {
			log.WithError(err).Debug("failed to fetch storage balance")
			return nil
		}
		registered := storage != nil && storage.Total != "" && storage.Total != "0"
		mu.Lock()
		status.Registered = &registered
		mu.Unlock()
		return nil
	})
	eg.Go(func() error {
		var balance string
		if err := c.contract.View(ctx, "ft_balance_of", accountArgs, &balance); err != nil {
			log.WithError(err).Debug("failed to fetch token balance")
			return nil
		}
		mu.Lock()
		status.TokenBalance = balance
		mu.Unlock()
		return nil
	})
	eg.Go(func() error {
		balance := "0"
		account, err := c.chain.ViewAccount(ctx, state.AccountId)
		if err != nil {
			if !near.IsAccountNotFound(err) {
				log.WithError(err).Debug("failed to fetch native balance")
				return nil
			}
		} else {
			balance = account.Amount
		}
		mu.Lock()
		status.NativeBalance = balance
		mu.Unlock()
		return nil
	})
	eg.Go(func() error {
		var guest *guestRecord
		if err := c.contract.View(
			ctx, "get_guest", map[string]string{"public_key": state.AccessPublic}, &guest,
		); err != nil {
			log.WithError(err).Debug("failed to fetch guest record")
			return nil
		}
		isGuest := guest != nil
		mu.Lock()
		status.IsGuest = &isGuest
		mu.Unlock()
		return nil
	})
	// nolint:all
	eg.Wait()

	status.Stage = stageOf(state, status)
	return status, nil
}

// Register pays the storage deposit of the guest through the relayer, which
// checks the guest signed a recent block height.
func (c *guestClient) Register(ctx context.Context) (string, error) {
	state, err := c.GetState(ctx)
	if err != nil {
		return "", err
	}
	if state.IsUpgraded() {
		return "", ErrAlreadyUpgraded
	}
	keyPair, err := near.KeyPairFromString(state.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("invalid stored key: %s", err)
	}

	req, err := c.signedRequest(ctx, state.AccountId, keyPair)
	if err != nil {
		return "", err
	}
	txHash, err := c.relayer.StorageDeposit(ctx, *req)
	if err != nil {
		return "", fmt.Errorf("failed to register guest: %w", err)
	}
	return txHash, nil
}

// Transfer sends amount yocto of tokens to receiverId. Transfers to the
// contract itself go through ft_transfer_call.
func (c *guestClient) Transfer(
	ctx context.Context, receiverId string, amount *big.Int,
) (string, error) {
	if len(receiverId) <= 0 {
		return "", fmt.Errorf("missing receiver")
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("amount must be greater than 0")
	}

	state, err := c.GetState(ctx)
	if err != nil {
		return "", err
	}
	signer, err := c.signer(state)
	if err != nil {
		return "", err
	}

	method := "ft_transfer"
	args := map[string]string{
		"receiver_id": receiverId,
		"amount":      amount.String(),
	}
	if receiverId == c.contractName {
		method = "ft_transfer_call"
		args["msg"] = ""
	}

	outcome, err := c.contract.Call(ctx, signer, method, args, c.gas, big.NewInt(1))
	if err != nil {
		return "", fmt.Errorf("failed to transfer: %w", err)
	}
	return outcome.Transaction.Hash, nil
}

// Upgrade swaps the guest key for a new full access key on a real account.
// The new key is persisted as pending before it is sent, so a failed
// upgrade can be retried with the same key.
func (c *guestClient) Upgrade(ctx context.Context) (*types.GuestState, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	state, err := c.GetState(ctx)
	if err != nil {
		return nil, err
	}
	if state.IsUpgraded() {
		return nil, ErrAlreadyUpgraded
	}

	// A previous attempt may have landed with its response lost. The contract
	// withdraws every token on upgrade, so look up the pending key first.
	if len(state.PendingSeedPhrase) > 0 {
		pendingKeyPair, err := near.KeyPairFromSeedPhrase(state.PendingSeedPhrase)
		if err != nil {
			return nil, fmt.Errorf("invalid pending seed phrase: %s", err)
		}
		landed, err := c.hasFullAccessKey(ctx, state.AccountId, pendingKeyPair.PublicKey())
		if err != nil {
			return nil, err
		}
		if landed {
			log.Debugf("upgrade of guest %s already on chain", state.AccountId)
			return c.completeUpgrade(ctx, state, pendingKeyPair)
		}
	}

	var balance string
	if err := c.contract.View(
		ctx, "ft_balance_of", map[string]string{"account_id": state.AccountId}, &balance,
	); err != nil {
		return nil, fmt.Errorf("failed to fetch token balance: %w", err)
	}
	amount, err := near.ParseYoctoAmount(balance)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, ErrNotFunded
	}

	signer, err := c.signer(state)
	if err != nil {
		return nil, err
	}

	if len(state.PendingSeedPhrase) <= 0 {
		seed, err := near.GenerateSeedPhrase()
		if err != nil {
			return nil, err
		}
		state.PendingSeedPhrase = seed.Phrase
		if err := c.store.AddData(ctx, *state); err != nil {
			return nil, fmt.Errorf("failed to persist upgrade key: %w", err)
		}
	}
	newKeyPair, err := near.KeyPairFromSeedPhrase(state.PendingSeedPhrase)
	if err != nil {
		return nil, fmt.Errorf("invalid pending seed phrase: %s", err)
	}

	if _, err := c.contract.Call(
		ctx, signer, "upgrade_guest",
		map[string]string{"public_key": newKeyPair.PublicKey().String()},
		c.gas, nil,
	); err != nil {
		return nil, fmt.Errorf("failed to upgrade guest: %w", err)
	}

	return c.completeUpgrade(ctx, state, newKeyPair)
}

func (c *guestClient) completeUpgrade(
	ctx context.Context, state *types.GuestState, newKeyPair *near.KeyPair,
) (*types.GuestState, error) {
	upgraded := types.GuestState{
		SeedPhrase:   state.PendingSeedPhrase,
		AccountId:    state.AccountId,
		AccessPublic: newKeyPair.PublicKey().String(),
		AccessSecret: newKeyPair.String(),
		Stage:        types.KeyStageUpgraded,
	}
	if err := c.store.AddData(ctx, upgraded); err != nil {
		return nil, fmt.Errorf("guest upgraded but failed to persist keys: %w", err)
	}
	log.Debugf("upgraded guest %s with key %s", upgraded.AccountId, upgraded.AccessPublic)
	return &upgraded, nil
}

// hasFullAccessKey tells whether pubkey is already a full access key of
// accountId. A missing account or key is not an error.
func (c *guestClient) hasFullAccessKey(
	ctx context.Context, accountId string, pubkey near.PublicKey,
) (bool, error) {
	view, err := c.chain.ViewAccessKey(ctx, accountId, pubkey)
	if err != nil {
		if near.IsAccountNotFound(err) || near.IsAccessKeyNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch pending upgrade key: %w", err)
	}
	return view.Permission.FullAccess, nil
}

// Remove forgets the local key material. Nothing changes on chain.
func (c *guestClient) Remove(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.store.CleanData(ctx)
}

// signer returns the account signing with the stored key. Guest keys live
// on the guests account, the contract maps them back to the guest.
func (c *guestClient) signer(state *types.GuestState) (*near.Account, error) {
	keyPair, err := near.KeyPairFromString(state.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid stored key: %s", err)
	}
	accountId := c.guestsAccountId
	if state.IsUpgraded() {
		accountId = state.AccountId
	}
	return near.NewAccount(accountId, keyPair, c.chain, nil), nil
}

func (c *guestClient) signedRequest(
	ctx context.Context, accountId string, keyPair *near.KeyPair,
) (*client.SignedRequest, error) {
	block, err := c.chain.FinalBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch final block: %w", err)
	}
	sig := keyPair.SignMessage([]byte(strconv.FormatUint(block.Height, 10)))
	return &client.SignedRequest{
		AccountId:            accountId,
		BlockNumber:          block.Height,
		BlockNumberSignature: base64.StdEncoding.EncodeToString(sig.Data[:]),
	}, nil
}

func stageOf(state *types.GuestState, status *types.GuestStatus) types.GuestStage {
	if state.IsUpgraded() {
		return types.StageUpgraded
	}
	if balance, err := near.ParseYoctoAmount(status.TokenBalance); err == nil &&
		balance.Sign() > 0 {
		return types.StageFunded
	}
	if status.Registered != nil && *status.Registered {
		return types.StageRegistered
	}
	return types.StageUnregistered
}

type storageBalance struct {
	Total     string `json:"total"`
	Available string `json:"available"`
}

type guestRecord struct {
	AccountId string `json:"account_id"`
}
