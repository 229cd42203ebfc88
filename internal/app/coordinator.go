package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

// Coordinator is the one authority over every shared registry. Handlers
// never touch a registry directly; they trigger named operations here and
// turn the returned outcome into outbound events. The coordinator itself
// knows nothing about the transport.
type Coordinator struct {
	Presence *Presence
	Calls    *Engagements
	Approval *Approvals
	Rooms    *Rooms
	Chat     *ChatBuffer
	Store    core.MeetingStore
}

func NewCoordinator(store core.MeetingStore) *Coordinator {
	return &Coordinator{
		Presence: NewPresence(),
		Calls:    NewEngagements(),
		Approval: NewApprovals(),
		Rooms:    NewRooms(),
		Chat:     NewChatBuffer(),
		Store:    store,
	}
}

type InviteOutcome int

const (
	InviteRinging InviteOutcome = iota
	InviteOffline
	InviteBusy
)

type InviteResult struct {
	Outcome      InviteOutcome
	ReceiverConn core.ConnID
}

// Initiate arbitrates a call invitation. Busyness is decided here, not at
// the advisory QueryBusy check a caller may have done earlier. Presence is
// read only after the engagement is held: a receiver that dropped in the
// meantime rolls the pair back instead of leaving it ringing until the
// sweeper finds it.
func (c *Coordinator) Initiate(caller, receiver domain.UserID, room domain.RoomName, conference bool) InviteResult {
	var err error
	if conference {
		// The inviter is already engaged in the running call.
		err = c.Calls.EngageReceiver(caller, receiver, room)
	} else {
		err = c.Calls.TryEngage(caller, receiver, room)
	}
	if err != nil {
		return InviteResult{Outcome: InviteBusy}
	}
	receiverConn, ok := c.Presence.Lookup(receiver)
	if !ok {
		c.Calls.Disengage(receiver)
		return InviteResult{Outcome: InviteOffline}
	}
	return InviteResult{Outcome: InviteRinging, ReceiverConn: receiverConn}
}

// Accept marks the call connected and resolves the caller's connection.
func (c *Coordinator) Accept(caller domain.UserID) (core.ConnID, bool) {
	c.Calls.Connect(caller)
	return c.Presence.Lookup(caller)
}

// Reject tears the engagement down on both sides and resolves the caller's
// connection for the rejection notice.
func (c *Coordinator) Reject(caller domain.UserID) (core.ConnID, bool) {
	c.Calls.Disengage(caller)
	return c.Presence.Lookup(caller)
}

// End tears the engagement down on both sides and resolves the remaining
// party's connection.
func (c *Coordinator) End(caller, receiver domain.UserID) (core.ConnID, bool) {
	c.Calls.Disengage(caller)
	return c.Presence.Lookup(receiver)
}

func (c *Coordinator) QueryBusy(user domain.UserID) bool {
	return c.Calls.Busy(user)
}

type JoinOutcome int

const (
	JoinQueued JoinOutcome = iota
	JoinAutoApproved
	JoinAlreadyPending
)

type JoinResult struct {
	Outcome  JoinOutcome
	Request  *domain.JoinRequest
	HostConn core.ConnID
	HostOn   bool
}

// RequestJoin consults the meeting store before touching any registry, so
// a failed lookup leaves no partial state behind. The meeting's host skips
// the queue entirely.
func (c *Coordinator) RequestJoin(ctx context.Context, key domain.JoinKey, name string) (JoinResult, error) {
	host, err := c.Store.FindHost(ctx, key.Meeting)
	if err != nil {
		return JoinResult{}, err
	}
	if host == key.User {
		return JoinResult{Outcome: JoinAutoApproved}, nil
	}
	req, created := c.Approval.Request(key, name)
	res := JoinResult{Request: req}
	if !created {
		res.Outcome = JoinAlreadyPending
		return res, nil
	}
	res.Outcome = JoinQueued
	res.HostConn, res.HostOn = c.Approval.HostConn(key.Meeting)
	return res, nil
}

type Resolution struct {
	Request       *domain.JoinRequest
	RequesterConn core.ConnID
	RequesterOn   bool
}

// ResolveJoin removes a pending request for approval or rejection. A stale
// key is a no-op, not an error: another host-side action may have won.
func (c *Coordinator) ResolveJoin(key domain.JoinKey) (Resolution, bool) {
	req, ok := c.Approval.Resolve(key)
	if !ok {
		return Resolution{}, false
	}
	res := Resolution{Request: req}
	res.RequesterConn, res.RequesterOn = c.Presence.Lookup(key.User)
	return res, true
}

// CancelJoin withdraws a requester's own pending entry and resolves the
// bound host connection for the withdrawal notice.
func (c *Coordinator) CancelJoin(key domain.JoinKey) (core.ConnID, bool) {
	if _, ok := c.Approval.Resolve(key); !ok {
		return "", false
	}
	hostConn, hostOn := c.Approval.HostConn(key.Meeting)
	if !hostOn {
		return "", false
	}
	return hostConn, true
}

// VerifyHost checks the connecting user against the meeting store and, on a
// match, binds the connection as the meeting's host and returns the pending
// snapshot accumulated while no host was connected.
func (c *Coordinator) VerifyHost(ctx context.Context, meeting domain.MeetingID, user domain.UserID, conn core.ConnID) ([]*domain.JoinRequest, bool) {
	host, err := c.Store.FindHost(ctx, meeting)
	if err != nil {
		if !errors.Is(err, core.ErrMeetingNotFound) {
			log.Error().Err(err).Str("module", "app.coordinator").Str("meeting", string(meeting)).Msg("host lookup failed")
		}
		return nil, false
	}
	if host != user {
		return nil, false
	}
	c.Approval.BindHost(meeting, conn)
	return c.Approval.Pending(meeting), true
}

// DisconnectReport carries everything the gateway must fan out after a
// connection closes.
type DisconnectReport struct {
	User       domain.UserID
	HadUser    bool
	Peer       domain.UserID
	PeerConn   core.ConnID
	PeerOn     bool
	Departures []Departure
}

// Disconnect runs the full cleanup for a closed connection: presence entry,
// engagement (with peer resolution), host bindings, group membership, and
// chat logs of any group that emptied.
func (c *Coordinator) Disconnect(conn core.ConnID) DisconnectReport {
	var report DisconnectReport
	report.User, report.HadUser = c.Presence.DropConn(conn)
	if report.HadUser {
		if peer, ok := c.Calls.Disengage(report.User); ok {
			report.Peer = peer
			report.PeerConn, report.PeerOn = c.Presence.Lookup(peer)
		}
	}
	c.Approval.DropHostConn(conn)
	report.Departures = c.Rooms.LeaveAll(conn)
	for _, dep := range report.Departures {
		if dep.Empty {
			c.Chat.Drop(dep.Meeting)
		}
	}
	return report
}

type CallTimeout struct {
	User   domain.UserID
	Conn   core.ConnID
	Online bool
}

type JoinTimeout struct {
	Request       *domain.JoinRequest
	RequesterConn core.ConnID
	RequesterOn   bool
	HostConn      core.ConnID
	HostOn        bool
}

// SweepExpired applies the bounded-expiry policy: calls still ringing past
// ringBefore are torn down, join requests queued before joinBefore are
// rejected. The gateway notifies the affected connections.
func (c *Coordinator) SweepExpired(ringBefore, joinBefore time.Time) ([][2]CallTimeout, []JoinTimeout) {
	var calls [][2]CallTimeout
	for _, pair := range c.Calls.ExpireRinging(ringBefore) {
		var entry [2]CallTimeout
		for i, user := range pair {
			entry[i].User = user
			entry[i].Conn, entry[i].Online = c.Presence.Lookup(user)
		}
		calls = append(calls, entry)
	}
	var joins []JoinTimeout
	for _, req := range c.Approval.Expire(joinBefore) {
		jt := JoinTimeout{Request: req}
		jt.RequesterConn, jt.RequesterOn = c.Presence.Lookup(req.Key.User)
		jt.HostConn, jt.HostOn = c.Approval.HostConn(req.Key.Meeting)
		joins = append(joins, jt)
	}
	return calls, joins
}
