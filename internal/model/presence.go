package model

import "time"

// PresenceState is the per-identity online/offline signal derived from
// transport connectivity. It is decoupled from lobby membership.
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceOffline PresenceState = "offline"
)

// Presence is the record stored under an identity's status key.
// LastChanged is assigned by the store when the record is written.
type Presence struct {
	State       PresenceState `json:"state"`
	LastChanged time.Time     `json:"last_changed"`
}

// Online reports whether the record marks the identity online.
func (p Presence) Online() bool {
	return p.State == PresenceOnline
}
