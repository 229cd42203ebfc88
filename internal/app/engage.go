package app

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/domain"
)

var (
	ErrCallerBusy   = errors.New("caller already engaged")
	ErrReceiverBusy = errors.New("receiver already engaged")
)

// Engagements is the busy-state arbiter. Both parties are marked engaged
// the moment ringing begins and stay engaged until the call ends, is
// rejected, or either side disconnects. Every transition happens under one
// mutex: two simultaneous callers can never both observe a free receiver.
type Engagements struct {
	mu     sync.Mutex
	byUser map[domain.UserID]*domain.Engagement
}

func NewEngagements() *Engagements {
	return &Engagements{byUser: make(map[domain.UserID]*domain.Engagement)}
}

func (e *Engagements) Busy(user domain.UserID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.byUser[user]
	return ok
}

// TryEngage is the atomic test-and-set deciding busyness at invite time.
// On success both parties hold a ringing engagement pointing at each other.
func (e *Engagements) TryEngage(caller, receiver domain.UserID, room domain.RoomName) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byUser[receiver]; ok {
		return ErrReceiverBusy
	}
	if _, ok := e.byUser[caller]; ok {
		return ErrCallerBusy
	}
	now := time.Now()
	e.byUser[caller] = &domain.Engagement{Peer: receiver, Room: room, State: domain.CallRinging, StartedAt: now}
	e.byUser[receiver] = &domain.Engagement{Peer: caller, Room: room, State: domain.CallRinging, StartedAt: now}
	log.Info().Str("module", "app.engage").Str("caller", string(caller)).Str("receiver", string(receiver)).Str("room", string(room)).Msg("ringing")
	return nil
}

// EngageReceiver marks only the invited party for a conference invite.
// The inviter is already engaged in the running call.
func (e *Engagements) EngageReceiver(caller, receiver domain.UserID, room domain.RoomName) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byUser[receiver]; ok {
		return ErrReceiverBusy
	}
	e.byUser[receiver] = &domain.Engagement{Peer: caller, Room: room, State: domain.CallRinging, StartedAt: time.Now()}
	return nil
}

// Connect moves an engagement from ringing to connected on both sides.
func (e *Engagements) Connect(user domain.UserID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	eng, ok := e.byUser[user]
	if !ok {
		return false
	}
	eng.State = domain.CallConnected
	if peer, ok := e.byUser[eng.Peer]; ok && peer.Peer == user {
		peer.State = domain.CallConnected
	}
	return true
}

// Disengage clears the user's engagement together with the peer's, so a
// call end, rejection or disconnect never leaks a stale busy flag on the
// other side. Returns the peer for notification.
func (e *Engagements) Disengage(user domain.UserID) (domain.UserID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	eng, ok := e.byUser[user]
	if !ok {
		return "", false
	}
	delete(e.byUser, user)
	peerID := eng.Peer
	if peer, ok := e.byUser[peerID]; ok && peer.Peer == user {
		delete(e.byUser, peerID)
	}
	log.Info().Str("module", "app.engage").Str("user", string(user)).Str("peer", string(peerID)).Msg("disengaged")
	return peerID, true
}

// ExpireRinging tears down pairs that have been ringing since before the
// deadline. Each expired pair is reported once, keyed by its caller side.
func (e *Engagements) ExpireRinging(before time.Time) [][2]domain.UserID {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out [][2]domain.UserID
	for user, eng := range e.byUser {
		if eng.State != domain.CallRinging || !eng.StartedAt.Before(before) {
			continue
		}
		delete(e.byUser, user)
		if peer, ok := e.byUser[eng.Peer]; ok && peer.Peer == user {
			delete(e.byUser, eng.Peer)
		}
		out = append(out, [2]domain.UserID{user, eng.Peer})
		log.Warn().Str("module", "app.engage").Str("user", string(user)).Str("peer", string(eng.Peer)).Msg("ringing expired")
	}
	return out
}
