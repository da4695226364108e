package domain

const GuestTopic = "guest"

type GuestEvent struct {
	Id   string
	Type EventType
}

func (e GuestEvent) GetTopic() string   { return GuestTopic }
func (e GuestEvent) GetType() EventType { return e.Type }

type GuestProvisioned struct {
	GuestEvent
	PublicKey string
	Timestamp int64
}

type GuestRegistered struct {
	GuestEvent
	Timestamp int64
}

type GuestFunded struct {
	GuestEvent
	TokenBalance string
	Timestamp    int64
}

type GuestUpgraded struct {
	GuestEvent
	UpgradedPublicKey string
	Timestamp         int64
}

type GuestFailed struct {
	GuestEvent
	Reason    string
	Timestamp int64
}
