package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/domain"
)

// NotifyRecordingState broadcasts a recording state change to a meeting's
// group. This is an event hook for the surrounding HTTP surface, the
// gateway does not participate in recording state itself.
func (g *Gateway) NotifyRecordingState(meeting domain.MeetingID, active bool, by domain.UserID) {
	g.broadcastMeeting(meeting, map[string]any{
		"type":      "recording-state-changed",
		"meetingId": string(meeting),
		"active":    active,
		"userId":    string(by),
	})
}

// Evict removes a user's connection from a meeting's group on the host's
// behalf, notifies it, and tells the rest of the group the participant
// left. Chat teardown applies if the group empties.
func (g *Gateway) Evict(meeting domain.MeetingID, user domain.UserID) bool {
	cid, ok := g.Coord.Presence.Lookup(user)
	if !ok {
		return false
	}
	dep := g.Coord.Rooms.Leave(meeting, cid)
	if dep.Empty {
		g.Coord.Chat.Drop(meeting)
	}
	g.sendTo(cid, map[string]any{
		"type":      "participant-rejected",
		"meetingId": string(meeting),
		"userId":    string(user),
		"message":   "Removed by host",
	})
	g.broadcastMeeting(meeting, map[string]any{
		"type":          "participant-left",
		"participantId": string(user),
	})
	log.Info().Str("module", "signal").Str("meeting", string(meeting)).Str("user", string(user)).Msg("participant evicted")
	return true
}
