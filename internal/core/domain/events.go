package domain

type EventType int

const (
	EventTypeUndefined EventType = iota

	// Guest
	EventTypeGuestProvisioned
	EventTypeGuestRegistered
	EventTypeGuestFunded
	EventTypeGuestUpgraded
	EventTypeGuestFailed
)

func (t EventType) String() string {
	switch t {
	case EventTypeGuestProvisioned:
		return "GUEST_PROVISIONED"
	case EventTypeGuestRegistered:
		return "GUEST_REGISTERED"
	case EventTypeGuestFunded:
		return "GUEST_FUNDED"
	case EventTypeGuestUpgraded:
		return "GUEST_UPGRADED"
	case EventTypeGuestFailed:
		return "GUEST_FAILED"
	default:
		return "UNDEFINED"
	}
}

type Event interface {
	GetTopic() string
	GetType() EventType
}

type Stage struct {
	Code   int
	Ended  bool
	Failed bool
}
