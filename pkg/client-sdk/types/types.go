package types

import "context"

const (
	InMemoryStore = "inmemory"
	FileStore     = "file"
	BadgerStore   = "badger"

	// Stored stages of the local key material.
	KeyStageGuest    = "guest"
	KeyStageUpgraded = "upgraded"
)

// GuestState is the key material held by the client. Only the public key
// ever leaves it.
type GuestState struct {
	SeedPhrase   string
	AccountId    string
	AccessPublic string
	AccessSecret string
	Stage        string
	// PendingSeedPhrase is the key generated for an upgrade that did not
	// complete yet.
	PendingSeedPhrase string
}

func (s GuestState) IsUpgraded() bool {
	return s.Stage == KeyStageUpgraded
}

type GuestStage int

const (
	StageNone GuestStage = iota
	StageUnregistered
	StageRegistered
	StageFunded
	StageUpgraded
)

func (s GuestStage) String() string {
	switch s {
	case StageUnregistered:
		return "unregistered"
	case StageRegistered:
		return "registered"
	case StageFunded:
		return "funded"
	case StageUpgraded:
		return "upgraded"
	default:
		return "none"
	}
}

// GuestStatus is the client's view of its guest. Fields whose query failed
// are left empty.
type GuestStatus struct {
	Stage         GuestStage
	AccountId     string
	PublicKey     string
	Registered    *bool
	TokenBalance  string
	NativeBalance string
	IsGuest       *bool
	// PendingUpgrade is set while an upgrade key was generated but the
	// upgrade is not confirmed yet. Running upgrade again settles it.
	PendingUpgrade bool
}

type GuestStore interface {
	GetType() string
	GetDatadir() string
	AddData(ctx context.Context, data GuestState) error
	GetData(ctx context.Context) (*GuestState, error)
	CleanData(ctx context.Context) error
	Close()
}
