package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

// Departure reports a connection leaving a meeting's broadcast group and
// whether the group emptied, which is what triggers chat teardown.
type Departure struct {
	Meeting domain.MeetingID
	Empty   bool
}

// Rooms tracks per-meeting broadcast group membership.
type Rooms struct {
	mu      sync.RWMutex
	members map[domain.MeetingID]map[core.ConnID]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{members: make(map[domain.MeetingID]map[core.ConnID]struct{})}
}

func (r *Rooms) Join(meeting domain.MeetingID, conn core.ConnID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.members[meeting]
	if !ok {
		group = make(map[core.ConnID]struct{})
		r.members[meeting] = group
	}
	group[conn] = struct{}{}
	log.Info().Str("module", "app.rooms").Str("meeting", string(meeting)).Str("conn", string(conn)).Int("count", len(group)).Msg("joined group")
	return len(group)
}

func (r *Rooms) Leave(meeting domain.MeetingID, conn core.ConnID) Departure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(meeting, conn)
}

// LeaveAll removes the connection from every group it is in.
func (r *Rooms) LeaveAll(conn core.ConnID) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Departure
	for meeting, group := range r.members {
		if _, ok := group[conn]; ok {
			out = append(out, r.leaveLocked(meeting, conn))
		}
	}
	return out
}

func (r *Rooms) leaveLocked(meeting domain.MeetingID, conn core.ConnID) Departure {
	group, ok := r.members[meeting]
	if !ok {
		return Departure{Meeting: meeting, Empty: false}
	}
	delete(group, conn)
	if len(group) == 0 {
		delete(r.members, meeting)
		log.Info().Str("module", "app.rooms").Str("meeting", string(meeting)).Msg("group emptied")
		return Departure{Meeting: meeting, Empty: true}
	}
	return Departure{Meeting: meeting, Empty: false}
}

func (r *Rooms) Members(meeting domain.MeetingID) []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group := r.members[meeting]
	out := make([]core.ConnID, 0, len(group))
	for cid := range group {
		out = append(out, cid)
	}
	return out
}

func (r *Rooms) Count(meeting domain.MeetingID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[meeting])
}
