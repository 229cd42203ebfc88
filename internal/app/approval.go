package app

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

// Approvals holds the pending join requests and the host connection bound
// to each meeting. A request key is unique among pending entries and is
// freed once the request resolves.
type Approvals struct {
	mu      sync.Mutex
	pending map[domain.JoinKey]*domain.JoinRequest
	hosts   map[domain.MeetingID]core.ConnID
}

func NewApprovals() *Approvals {
	return &Approvals{
		pending: make(map[domain.JoinKey]*domain.JoinRequest),
		hosts:   make(map[domain.MeetingID]core.ConnID),
	}
}

// Request queues a join request. A duplicate of a still-pending key is a
// no-op returning the existing entry, which makes client retries safe.
func (a *Approvals) Request(key domain.JoinKey, name string) (*domain.JoinRequest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if req, ok := a.pending[key]; ok {
		return req, false
	}
	req := &domain.JoinRequest{Key: key, Name: name, RequestedAt: time.Now()}
	a.pending[key] = req
	log.Info().Str("module", "app.approval").Str("meeting", string(key.Meeting)).Str("user", string(key.User)).Msg("join request queued")
	return req, true
}

// Resolve removes a pending request. Absent keys resolve to nothing: the
// request may already have been handled by a racing host action.
func (a *Approvals) Resolve(key domain.JoinKey) (*domain.JoinRequest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	req, ok := a.pending[key]
	if !ok {
		return nil, false
	}
	delete(a.pending, key)
	return req, true
}

// Pending returns the meeting's queued requests, oldest first.
func (a *Approvals) Pending(meeting domain.MeetingID) []*domain.JoinRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*domain.JoinRequest, 0)
	for _, req := range a.pending {
		if req.Key.Meeting == meeting {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out
}

// BindHost records the verified host connection for a meeting, replacing
// a stale binding from a previous session.
func (a *Approvals) BindHost(meeting domain.MeetingID, conn core.ConnID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hosts[meeting] = conn
	log.Info().Str("module", "app.approval").Str("meeting", string(meeting)).Str("conn", string(conn)).Msg("host bound")
}

func (a *Approvals) HostConn(meeting domain.MeetingID) (core.ConnID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cid, ok := a.hosts[meeting]
	return cid, ok
}

// IsHostConn reports whether conn is the verified host connection for the
// meeting. Unverified connections are silently excluded from host flows.
func (a *Approvals) IsHostConn(meeting domain.MeetingID, conn core.ConnID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	cid, ok := a.hosts[meeting]
	return ok && cid == conn
}

// DropHostConn removes every binding pointing at conn and returns the
// meetings that lost their host.
func (a *Approvals) DropHostConn(conn core.ConnID) []domain.MeetingID {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.MeetingID
	for meeting, cid := range a.hosts {
		if cid == conn {
			delete(a.hosts, meeting)
			out = append(out, meeting)
		}
	}
	return out
}

// Expire drops requests queued since before the deadline and returns them.
func (a *Approvals) Expire(before time.Time) []*domain.JoinRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*domain.JoinRequest
	for key, req := range a.pending {
		if req.RequestedAt.Before(before) {
			delete(a.pending, key)
			out = append(out, req)
			log.Warn().Str("module", "app.approval").Str("meeting", string(key.Meeting)).Str("user", string(key.User)).Msg("join request expired")
		}
	}
	return out
}
