package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	GuestUndefinedStage GuestStage = iota
	GuestProvisionedStage
	GuestRegisteredStage
	GuestFundedStage
	GuestUpgradedStage
)

type GuestStage int

func (s GuestStage) String() string {
	switch s {
	case GuestProvisionedStage:
		return "GUEST_PROVISIONED_STAGE"
	case GuestRegisteredStage:
		return "GUEST_REGISTERED_STAGE"
	case GuestFundedStage:
		return "GUEST_FUNDED_STAGE"
	case GuestUpgradedStage:
		return "GUEST_UPGRADED_STAGE"
	default:
		return "GUEST_UNDEFINED_STAGE"
	}
}

// Guest is the relayer's view of a guest sub-account, from the moment its
// scoped key is added until the user swaps it for a full access key.
type Guest struct {
	AccountId         string
	PublicKey         string
	UpgradedPublicKey string
	TokenBalance      string
	Stage             Stage
	CreatedAt         int64
	UpdatedAt         int64
	FailReason        string
	Version           uint
	changes           []Event
}

func NewGuest() *Guest {
	return &Guest{
		changes: make([]Event, 0),
	}
}

func NewGuestFromEvents(events []Event) *Guest {
	g := &Guest{}

	for _, event := range events {
		g.on(event, true)
	}

	g.changes = append([]Event{}, events...)

	return g
}

func (g *Guest) Provision(accountId, publicKey string) (Event, error) {
	if g.IsFailed() || g.Stage.Code != int(GuestUndefinedStage) {
		return nil, fmt.Errorf("not in a valid stage to provision guest")
	}
	if accountId == "" {
		return nil, fmt.Errorf("missing account id")
	}
	if !strings.Contains(accountId, ".") {
		return nil, fmt.Errorf("invalid account id %s, must be a sub-account", accountId)
	}
	if publicKey == "" {
		return nil, fmt.Errorf("missing public key")
	}

	event := GuestProvisioned{
		GuestEvent: GuestEvent{Id: accountId, Type: EventTypeGuestProvisioned},
		PublicKey:  publicKey,
		Timestamp:  time.Now().Unix(),
	}
	g.raise(event)
	return event, nil
}

func (g *Guest) Register() (Event, error) {
	if !g.IsProvisioned() {
		return nil, fmt.Errorf("not in a valid stage to register guest")
	}

	event := GuestRegistered{
		GuestEvent: GuestEvent{Id: g.AccountId, Type: EventTypeGuestRegistered},
		Timestamp:  time.Now().Unix(),
	}
	g.raise(event)
	return event, nil
}

// Fund records a positive token balance observed for a registered guest.
func (g *Guest) Fund(tokenBalance string) (Event, error) {
	balance, ok := new(big.Int).SetString(tokenBalance, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token balance %s", tokenBalance)
	}
	if balance.Sign() <= 0 {
		return nil, fmt.Errorf("token balance must be positive")
	}
	if !g.IsRegistered() {
		return nil, fmt.Errorf("not in a valid stage to fund guest")
	}

	event := GuestFunded{
		GuestEvent:   GuestEvent{Id: g.AccountId, Type: EventTypeGuestFunded},
		TokenBalance: balance.String(),
		Timestamp:    time.Now().Unix(),
	}
	g.raise(event)
	return event, nil
}

func (g *Guest) Upgrade(upgradedPublicKey string) (Event, error) {
	if upgradedPublicKey == "" {
		return nil, fmt.Errorf("missing upgraded public key")
	}
	if upgradedPublicKey == g.PublicKey {
		return nil, fmt.Errorf("upgraded public key must differ from guest key")
	}
	if !g.IsFunded() {
		return nil, fmt.Errorf("not in a valid stage to upgrade guest")
	}

	event := GuestUpgraded{
		GuestEvent:        GuestEvent{Id: g.AccountId, Type: EventTypeGuestUpgraded},
		UpgradedPublicKey: upgradedPublicKey,
		Timestamp:         time.Now().Unix(),
	}
	g.raise(event)
	return event, nil
}

// Fail marks a live guest as failed. Upgraded guests are final.
func (g *Guest) Fail(err error) (Event, error) {
	if err == nil {
		return nil, fmt.Errorf("missing failure reason")
	}
	if g.IsFailed() || g.Stage.Ended || g.Stage.Code == int(GuestUndefinedStage) {
		return nil, fmt.Errorf("not in a valid stage to fail guest")
	}

	event := GuestFailed{
		GuestEvent: GuestEvent{Id: g.AccountId, Type: EventTypeGuestFailed},
		Reason:     err.Error(),
		Timestamp:  time.Now().Unix(),
	}
	g.raise(event)
	return event, nil
}

func (g *Guest) Events() []Event {
	return g.changes
}

func (g *Guest) IsProvisioned() bool {
	return !g.IsFailed() && g.Stage.Code == int(GuestProvisionedStage)
}

func (g *Guest) IsRegistered() bool {
	return !g.IsFailed() && g.Stage.Code == int(GuestRegisteredStage)
}

func (g *Guest) IsFunded() bool {
	return !g.IsFailed() && g.Stage.Code == int(GuestFundedStage)
}

func (g *Guest) IsUpgraded() bool {
	return !g.IsFailed() && g.Stage.Code == int(GuestUpgradedStage)
}

func (g *Guest) IsFailed() bool {
	return g.Stage.Failed
}

func (g *Guest) on(event Event, replayed bool) {
	switch e := event.(type) {
	case GuestProvisioned:
		g.Stage.Code = int(GuestProvisionedStage)
		g.AccountId = e.Id
		g.PublicKey = e.PublicKey
		g.CreatedAt = e.Timestamp
		g.UpdatedAt = e.Timestamp
	case GuestRegistered:
		g.Stage.Code = int(GuestRegisteredStage)
		g.UpdatedAt = e.Timestamp
	case GuestFunded:
		g.Stage.Code = int(GuestFundedStage)
		g.TokenBalance = e.TokenBalance
		g.UpdatedAt = e.Timestamp
	case GuestUpgraded:
		g.Stage.Code = int(GuestUpgradedStage)
		g.Stage.Ended = true
		g.UpgradedPublicKey = e.UpgradedPublicKey
		g.UpdatedAt = e.Timestamp
	case GuestFailed:
		g.Stage.Failed = true
		g.FailReason = e.Reason
		g.UpdatedAt = e.Timestamp
	}

	if replayed {
		g.Version++
	}
}

func (g *Guest) raise(event Event) {
	if g.changes == nil {
		g.changes = make([]Event, 0)
	}
	g.changes = append(g.changes, event)
	g.on(event, false)
}
