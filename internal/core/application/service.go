package application

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wrap-near/guest-relayer/internal/core/domain"
	"github.com/wrap-near/guest-relayer/internal/core/ports"
	"github.com/wrap-near/guest-relayer/pkg/near"
	"golang.org/x/sync/errgroup"
)

const (
	helloMessage = "Hello World!"

	defaultMaxBlockAge = 100
	// Nodes may lag behind each other, a client might sign a height the
	// relayer's node has not finalized yet.
	maxBlockSkew = 10
)

var (
	DefaultChangeMethods = []string{
		"new", "storage_deposit", "storage_withdraw", "near_deposit",
		"near_deposit_with_storage", "near_withdraw", "ft_transfer",
		"ft_transfer_call", "add_guest", "get_predecessor", "upgrade_guest",
		"make_proposal", "fund_proposal", "remove_proposal",
	}
	DefaultViewMethods = []string{
		"storage_minimum_balance", "storage_balance_of", "ft_balance_of",
		"get_proposal", "get_guest",
	}
	DefaultGuestAllowance = near.MustParseNearAmount("0.1")

	usernameRegexp = regexp.MustCompile(`^[a-z0-9]+([-_][a-z0-9]+)*$`)
)

type service struct {
	cfg Config

	chain           near.Provider
	contract        *near.Contract
	contractAccount ports.Signer
	guestsAccount   ports.Signer
	repoManager     ports.RepoManager
	liveStore       ports.LiveStore
	scheduler       ports.SchedulerService

	// serializes load-modify-save of guest aggregates
	guestLock sync.Mutex
	// guests whose add_guest is in flight, guarded by guestLock
	addingGuests map[string]struct{}
}

func NewService(
	cfg Config, chain near.Provider, contractAccount, guestsAccount ports.Signer,
	repoManager ports.RepoManager, liveStore ports.LiveStore,
	scheduler ports.SchedulerService,
) (Service, error) {
	if cfg.ContractName == "" {
		return nil, fmt.Errorf("missing contract name")
	}
	if cfg.Gas == 0 {
		return nil, fmt.Errorf("missing gas")
	}
	if chain == nil {
		return nil, fmt.Errorf("missing chain provider")
	}
	if contractAccount == nil {
		return nil, fmt.Errorf("missing contract account")
	}
	if contractAccount.ID() != cfg.ContractName {
		return nil, fmt.Errorf(
			"contract account %s does not match contract %s",
			contractAccount.ID(), cfg.ContractName,
		)
	}
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	cfg.GuestsAccountId = cfg.guestsAccountId()
	if guestsAccount != nil && guestsAccount.ID() != cfg.GuestsAccountId {
		return nil, fmt.Errorf(
			"guests account %s does not match %s",
			guestsAccount.ID(), cfg.GuestsAccountId,
		)
	}
	if cfg.GuestAllowance == nil {
		cfg.GuestAllowance = DefaultGuestAllowance
	}
	if cfg.DefaultNewAccountAmount == nil {
		cfg.DefaultNewAccountAmount = near.MustParseNearAmount("5")
	}
	if cfg.MaxBlockAge == 0 {
		cfg.MaxBlockAge = defaultMaxBlockAge
	}
	if len(cfg.ChangeMethods) <= 0 {
		cfg.ChangeMethods = DefaultChangeMethods
	}
	if len(cfg.ViewMethods) <= 0 {
		cfg.ViewMethods = DefaultViewMethods
	}

	contract := near.NewContract(
		cfg.ContractName, chain, cfg.ViewMethods, cfg.ChangeMethods,
	)
	return &service{
		cfg:             cfg,
		chain:           chain,
		contract:        contract,
		contractAccount: contractAccount,
		guestsAccount:   guestsAccount,
		repoManager:     repoManager,
		liveStore:       liveStore,
		scheduler:       scheduler,
		addingGuests:    make(map[string]struct{}),
	}, nil
}

func (s *service) Start() error {
	if s.scheduler == nil || s.cfg.SyncInterval <= 0 {
		return nil
	}
	if err := s.scheduler.ScheduleTask(s.cfg.SyncInterval, false, s.syncTask); err != nil {
		return err
	}
	s.scheduler.Start()
	log.Debugf("guest sync scheduled every %d seconds", s.cfg.SyncInterval)
	return nil
}

func (s *service) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
		log.Debug("scheduler stopped")
	}
	s.repoManager.Close()
	log.Debug("closed connection to db")
	if s.liveStore != nil {
		s.liveStore.Close()
		log.Debug("closed connection to live store")
	}
}

func (s *service) Hello() string {
	return helloMessage
}

func (s *service) VerifyAccessKey(ctx context.Context, req SignedRequest) error {
	if req.AccountId == "" {
		return fmt.Errorf("%w: missing account id", ErrInvalidRequest)
	}
	sig, err := base64.StdEncoding.DecodeString(req.BlockNumberSignature)
	if err != nil || len(sig) != 64 {
		return ErrUnauthorized
	}

	block, err := s.chain.FinalBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch final block: %w", err)
	}
	if req.BlockNumber > block.Height+maxBlockSkew {
		return ErrStaleBlock
	}
	if req.BlockNumber+s.cfg.MaxBlockAge < block.Height {
		return ErrStaleBlock
	}

	msg := []byte(strconv.FormatUint(req.BlockNumber, 10))
	keys, err := s.signingKeys(ctx, req.AccountId)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if key.VerifyMessage(msg, sig) {
			return nil
		}
	}
	return ErrUnauthorized
}

func (s *service) StorageDeposit(
	ctx context.Context, req StorageDepositRequest,
) (string, error) {
	if err := s.VerifyAccessKey(ctx, req.SignedRequest); err != nil {
		return "", err
	}

	accountId := req.ImplicitAccountId
	if accountId == "" {
		accountId = req.AccountId
	}

	var minimum string
	if err := s.contract.View(ctx, "storage_minimum_balance", nil, &minimum); err != nil {
		log.WithError(err).Warn("failed to fetch storage minimum balance")
		return "", ErrRegistration
	}
	deposit, err := near.ParseYoctoAmount(minimum)
	if err != nil {
		log.WithError(err).Warnf("invalid storage minimum balance %s", minimum)
		return "", ErrRegistration
	}

	outcome, err := s.contract.Call(
		ctx, s.contractAccount, "storage_deposit",
		map[string]string{"account_id": accountId}, s.cfg.Gas, deposit,
	)
	if err != nil {
		log.WithError(err).Warnf("failed to register account %s", accountId)
		return "", ErrRegistration
	}
	txHash := outcome.Transaction.Hash
	log.Debugf("registered account %s in tx %s", accountId, txHash)

	if err := s.updateGuest(ctx, accountId, func(g *domain.Guest) (bool, error) {
		if !g.IsProvisioned() {
			return false, nil
		}
		_, err := g.Register()
		return err == nil, err
	}); err != nil {
		log.WithError(err).Warnf("failed to update guest %s", accountId)
	}
	return txHash, nil
}

func (s *service) AddKey(ctx context.Context, publicKey string) (string, error) {
	pubkey, err := near.ParsePublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	outcome, err := s.contractAccount.AddKey(
		ctx, pubkey, s.cfg.ContractName, s.cfg.ChangeMethods, s.cfg.GuestAllowance,
	)
	if err != nil {
		if near.IsKeyAlreadyAdded(err) {
			return "", ErrKeyAlreadyAdded
		}
		return "", fmt.Errorf("failed to add key: %w", err)
	}

	txHash := outcome.Transaction.Hash
	s.recordGrant(ctx, pubkey, s.contractAccount.ID(), txHash)
	return txHash, nil
}

func (s *service) DeleteAccessKeys(ctx context.Context) ([]string, error) {
	keys, err := s.contractAccount.AccessKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list access keys: %w", err)
	}

	toDelete := make([]near.PublicKey, 0, len(keys))
	for _, k := range keys {
		perm := k.AccessKey.Permission.FunctionCall
		if perm == nil || perm.ReceiverId != s.cfg.ContractName {
			continue
		}
		pubkey, err := near.ParsePublicKey(k.PublicKey)
		if err != nil {
			log.WithError(err).Warnf("skipping malformed access key %s", k.PublicKey)
			continue
		}
		toDelete = append(toDelete, pubkey)
	}

	deleted := make([]string, len(toDelete))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, pubkey := range toDelete {
		i, pubkey := i, pubkey
		eg.Go(func() error {
			if _, err := s.contractAccount.DeleteKey(egCtx, pubkey); err != nil {
				return fmt.Errorf("failed to delete key %s: %w", pubkey, err)
			}
			deleted[i] = pubkey.String()
			return nil
		})
	}
	egErr := eg.Wait()

	result := make([]string, 0, len(deleted))
	for _, key := range deleted {
		if key != "" {
			result = append(result, key)
		}
	}
	if len(result) > 0 {
		if err := s.repoManager.AccessKeys().RevokeGrants(
			ctx, result, time.Now().Unix(),
		); err != nil {
			log.WithError(err).Warn("failed to revoke access key grants")
		}
	}
	if egErr != nil {
		return result, egErr
	}
	log.Debugf("deleted %d access keys", len(result))
	return result, nil
}

func (s *service) AddGuest(
	ctx context.Context, accountId, publicKey string,
) (*AddGuestResult, error) {
	if err := s.validateGuestAccountId(accountId); err != nil {
		return nil, err
	}
	pubkey, err := near.ParsePublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	if s.guestsAccount == nil {
		return nil, fmt.Errorf("guests account is not configured")
	}

	if err := s.reserveGuest(ctx, accountId); err != nil {
		return nil, err
	}
	defer s.releaseGuest(accountId)

	guest := domain.NewGuest()
	if _, err := guest.Provision(accountId, pubkey.String()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	outcome, err := s.contract.Call(
		ctx, s.contractAccount, "add_guest",
		map[string]string{"account_id": accountId, "public_key": pubkey.String()},
		s.cfg.Gas, nil,
	)
	if err != nil {
		if near.IsKeyAlreadyAdded(err) {
			return nil, ErrKeyAlreadyAdded
		}
		return nil, fmt.Errorf("failed to add guest: %w", err)
	}
	value, err := outcome.SuccessValue()
	if err != nil {
		return nil, fmt.Errorf("failed to decode add_guest result: %w", err)
	}

	keyOutcome, err := s.guestsAccount.AddKey(
		ctx, pubkey, s.cfg.ContractName, s.cfg.ChangeMethods, s.cfg.GuestAllowance,
	)
	if err != nil {
		if near.IsKeyAlreadyAdded(err) {
			return nil, ErrKeyAlreadyAdded
		}
		// The guest is registered in the contract but holds no usable key.
		if _, failErr := guest.Fail(err); failErr == nil {
			s.saveGuest(ctx, guest)
		}
		return nil, fmt.Errorf("failed to add guest key: %w", err)
	}
	s.recordGrant(ctx, pubkey, s.guestsAccount.ID(), keyOutcome.Transaction.Hash)
	s.saveGuest(ctx, guest)
	log.Debugf("added guest %s with key %s", accountId, pubkey)

	return &AddGuestResult{
		AddGuest: strings.Trim(string(value), `"`),
		AddKey:   keyOutcome.Transaction.Hash,
	}, nil
}

func (s *service) Bootstrap(ctx context.Context) error {
	if _, err := s.contract.Call(
		ctx, s.contractAccount, "new", nil, s.cfg.Gas, nil,
	); err != nil {
		if !near.IsAlreadyInitialized(err) {
			return fmt.Errorf("failed to initialize contract: %w", err)
		}
		log.Debug("contract already initialized")
	}

	if s.guestsAccount == nil {
		return nil
	}
	if _, err := s.contractAccount.CreateAccount(
		ctx, s.guestsAccount.ID(), s.guestsAccount.PublicKey(),
		s.cfg.DefaultNewAccountAmount,
	); err != nil {
		if !near.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create guests account: %w", err)
		}
		log.Debugf("account %s already exists", s.guestsAccount.ID())
	}
	return nil
}

func (s *service) GuestStatus(ctx context.Context, accountId string) (*domain.Guest, error) {
	if accountId == "" {
		return nil, fmt.Errorf("%w: missing account id", ErrInvalidRequest)
	}
	return s.repoManager.Guests().GetGuest(ctx, accountId)
}

func (s *service) GetInfo(ctx context.Context) (*ServiceInfo, error) {
	block, err := s.chain.FinalBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch final block: %w", err)
	}
	info := &ServiceInfo{
		ContractName:    s.cfg.ContractName,
		GuestsAccountId: s.cfg.GuestsAccountId,
		ContractKey:     s.contractAccount.PublicKey().String(),
		ChangeMethods:   s.contract.ChangeMethods(),
		GuestAllowance:  s.cfg.GuestAllowance.String(),
		BlockHeight:     block.Height,
	}
	if s.guestsAccount != nil {
		info.GuestsKey = s.guestsAccount.PublicKey().String()
	}
	return info, nil
}

// signingKeys returns the keys allowed to sign requests for accountId. A
// guest that has not been upgraded yet has no account of its own, its key
// lives on the guests account.
func (s *service) signingKeys(ctx context.Context, accountId string) ([]near.PublicKey, error) {
	keys, err := s.chain.ViewAccessKeyList(ctx, accountId)
	if err != nil && !near.IsAccountNotFound(err) {
		return nil, fmt.Errorf("failed to fetch access keys of %s: %w", accountId, err)
	}

	pubkeys := make([]near.PublicKey, 0, len(keys))
	for _, k := range keys {
		pubkey, err := near.ParsePublicKey(k.PublicKey)
		if err != nil {
			continue
		}
		pubkeys = append(pubkeys, pubkey)
	}
	if len(pubkeys) > 0 {
		return pubkeys, nil
	}

	guest, err := s.repoManager.Guests().GetGuest(ctx, accountId)
	if err != nil || guest.IsUpgraded() || guest.IsFailed() {
		return nil, ErrUnauthorized
	}
	pubkey, err := near.ParsePublicKey(guest.PublicKey)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if _, err := s.chain.ViewAccessKey(ctx, s.cfg.GuestsAccountId, pubkey); err != nil {
		if near.IsAccessKeyNotFound(err) || near.IsAccountNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to fetch guest access key: %w", err)
	}
	return []near.PublicKey{pubkey}, nil
}

func (s *service) validateGuestAccountId(accountId string) error {
	suffix := "." + s.cfg.ContractName
	if !strings.HasSuffix(accountId, suffix) {
		return fmt.Errorf(
			"%w: account id %s must be a sub-account of %s",
			ErrInvalidRequest, accountId, s.cfg.ContractName,
		)
	}
	username := strings.TrimSuffix(accountId, suffix)
	if !usernameRegexp.MatchString(username) {
		return fmt.Errorf("%w: invalid username %s", ErrInvalidRequest, username)
	}
	return nil
}

func (s *service) recordGrant(
	ctx context.Context, pubkey near.PublicKey, accountId, txHash string,
) {
	grant := domain.NewAccessKeyGrant(
		pubkey.String(), accountId, s.cfg.ContractName, s.cfg.ChangeMethods,
		s.cfg.GuestAllowance.String(),
	)
	grant.TxHash = txHash
	if err := s.repoManager.AccessKeys().AddGrant(ctx, grant); err != nil {
		log.WithError(err).Warnf("failed to record access key grant %s", pubkey)
	}
}

// reserveGuest claims accountId for an AddGuest call. Known guests and
// guests already being added are rejected.
func (s *service) reserveGuest(ctx context.Context, accountId string) error {
	s.guestLock.Lock()
	defer s.guestLock.Unlock()

	if _, ok := s.addingGuests[accountId]; ok {
		return ErrKeyAlreadyAdded
	}
	existing, err := s.repoManager.Guests().GetGuest(ctx, accountId)
	if err != nil && !errors.Is(err, domain.ErrGuestNotFound) {
		return fmt.Errorf("failed to get guest: %w", err)
	}
	if err == nil && !existing.IsFailed() {
		return ErrKeyAlreadyAdded
	}
	s.addingGuests[accountId] = struct{}{}
	return nil
}

func (s *service) releaseGuest(accountId string) {
	s.guestLock.Lock()
	defer s.guestLock.Unlock()

	delete(s.addingGuests, accountId)
}

func (s *service) saveGuest(ctx context.Context, guest *domain.Guest) {
	s.guestLock.Lock()
	defer s.guestLock.Unlock()

	if err := s.repoManager.Guests().AddOrUpdateGuest(ctx, guest); err != nil {
		log.WithError(err).Warnf("failed to persist guest %s", guest.AccountId)
	}
}

// updateGuest applies fn to the stored guest and persists it if fn reports a
// change. Unknown guests are ignored.
func (s *service) updateGuest(
	ctx context.Context, accountId string, fn func(g *domain.Guest) (bool, error),
) error {
	s.guestLock.Lock()
	defer s.guestLock.Unlock()

	guest, err := s.repoManager.Guests().GetGuest(ctx, accountId)
	if err != nil {
		if errors.Is(err, domain.ErrGuestNotFound) {
			return nil
		}
		return err
	}
	changed, err := fn(guest)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.repoManager.Guests().AddOrUpdateGuest(ctx, guest)
}
