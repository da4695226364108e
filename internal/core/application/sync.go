package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/wrap-near/guest-relayer/internal/core/domain"
	"github.com/wrap-near/guest-relayer/pkg/near"
)

func (s *service) syncTask() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered from panic in guest sync: %v", r)
		}
	}()

	if err := s.SyncGuests(context.Background()); err != nil {
		log.WithError(err).Warn("failed to sync guests")
	}
}

// SyncGuests reconciles the stored stage of every pending guest with what
// the chain reports.
func (s *service) SyncGuests(ctx context.Context) error {
	guests, err := s.repoManager.Guests().GetGuestsByStage(
		ctx,
		domain.GuestProvisionedStage,
		domain.GuestRegisteredStage,
		domain.GuestFundedStage,
	)
	if err != nil {
		return err
	}

	log.Debugf("syncing %d guests", len(guests))
	for _, g := range guests {
		if err := s.updateGuest(ctx, g.AccountId, func(guest *domain.Guest) (bool, error) {
			return s.syncGuest(ctx, guest)
		}); err != nil {
			log.WithError(err).Warnf("failed to sync guest %s", g.AccountId)
		}
	}
	return nil
}

func (s *service) syncGuest(ctx context.Context, guest *domain.Guest) (bool, error) {
	if guest.IsUpgraded() || guest.IsFailed() {
		return false, nil
	}
	changed := false

	if !guest.IsFunded() {
		var balance string
		if err := s.contract.View(
			ctx, "ft_balance_of", map[string]string{"account_id": guest.AccountId}, &balance,
		); err != nil {
			return false, fmt.Errorf("failed to fetch token balance: %w", err)
		}
		funded, err := fundGuest(guest, balance)
		if err != nil {
			return false, err
		}
		changed = changed || funded
	}

	account, err := s.chain.ViewAccount(ctx, guest.AccountId)
	if err != nil {
		if near.IsAccountNotFound(err) {
			return changed, nil
		}
		return changed, fmt.Errorf("failed to fetch account: %w", err)
	}

	// The account exists only once upgrade_guest created it. The upgrade
	// withdraws all tokens, so a guest never seen funded is funded with
	// the native balance it received.
	if !guest.IsFunded() {
		funded, err := fundGuest(guest, account.Balance().String())
		if err != nil {
			return changed, err
		}
		if !funded {
			reason := fmt.Errorf("upgraded account %s holds no balance", guest.AccountId)
			if _, err := guest.Fail(reason); err != nil {
				return changed, err
			}
			log.Warnf("guest %s failed: %s", guest.AccountId, reason)
			return true, nil
		}
		changed = true
	}

	keys, err := s.chain.ViewAccessKeyList(ctx, guest.AccountId)
	if err != nil {
		return changed, fmt.Errorf("failed to fetch access keys: %w", err)
	}
	for _, k := range keys {
		if !k.AccessKey.Permission.FullAccess || k.PublicKey == guest.PublicKey {
			continue
		}
		if _, err := guest.Upgrade(k.PublicKey); err != nil {
			return changed, err
		}
		log.Infof("guest %s upgraded with key %s", guest.AccountId, k.PublicKey)
		return true, nil
	}
	return changed, nil
}

// fundGuest moves the guest to the funded stage if balance is positive,
// registering it first when needed.
func fundGuest(guest *domain.Guest, balance string) (bool, error) {
	amount, err := near.ParseYoctoAmount(balance)
	if err != nil {
		return false, err
	}
	if amount.Sign() <= 0 {
		return false, nil
	}
	if guest.IsProvisioned() {
		if _, err := guest.Register(); err != nil {
			return false, err
		}
	}
	if _, err := guest.Fund(amount.String()); err != nil {
		return false, err
	}
	return true, nil
}
