package domain

import "time"

// CallState is the lifecycle state of an invitation between an ordered
// pair of users. Values are stable, they show up in logs and events.
type CallState string

const (
	CallRinging   CallState = "ringing"
	CallConnected CallState = "connected"
)

// Engagement records one side of an active invitation. Both parties carry
// an entry from the moment ringing begins, pointing at each other, so a
// receiver mid-negotiation can never be double-invited.
type Engagement struct {
	Peer      UserID
	Room      RoomName
	State     CallState
	StartedAt time.Time
}
