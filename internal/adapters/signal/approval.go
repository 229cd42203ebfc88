package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/app"
	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

type joinRequestView struct {
	MeetingID   string `json:"meetingId"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	RequestedAt int64  `json:"requestedAt"`
}

func viewOf(req *domain.JoinRequest) joinRequestView {
	return joinRequestView{
		MeetingID:   string(req.Key.Meeting),
		UserID:      string(req.Key.User),
		Name:        req.Name,
		RequestedAt: req.RequestedAt.Unix(),
	}
}

func viewsOf(reqs []*domain.JoinRequest) []joinRequestView {
	out := make([]joinRequestView, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, viewOf(req))
	}
	return out
}

func (g *Gateway) handleJoinRequest(ctx context.Context, cid core.ConnID, data []byte) {
	type joinPayload struct {
		Type      string `json:"type"`
		Name      string `json:"name"`
		MeetingID string `json:"meetingId"`
		UserID    string `json:"userId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MeetingID == "" || p.UserID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad join-request payload")
		return
	}
	g.bindUser(cid, domain.UserID(p.UserID), p.Name)

	key := domain.JoinKey{Meeting: domain.MeetingID(p.MeetingID), User: domain.UserID(p.UserID)}
	res, err := g.Coord.RequestJoin(ctx, key, p.Name)
	if err != nil {
		if errors.Is(err, core.ErrMeetingNotFound) {
			g.sendTo(cid, map[string]any{
				"type":      "join-rejected",
				"meetingId": p.MeetingID,
				"message":   "Meeting not found",
			})
			return
		}
		// Transient store failure: drop, the client retry is idempotent.
		log.Error().Err(err).Str("module", "signal").Str("meeting", p.MeetingID).Msg("host lookup failed")
		return
	}

	switch res.Outcome {
	case app.JoinAutoApproved:
		g.sendTo(cid, map[string]any{
			"type":      "join-approved",
			"meetingId": p.MeetingID,
			"message":   "Host joined",
		})
	case app.JoinAlreadyPending:
		// Idempotent retry, nothing to redo.
	case app.JoinQueued:
		if res.HostOn {
			g.sendTo(res.HostConn, map[string]any{
				"type":      "new-join-request",
				"meetingId": p.MeetingID,
				"request":   viewOf(res.Request),
			})
		}
	}
}

func (g *Gateway) handleCancelJoin(cid core.ConnID, data []byte) {
	type cancelPayload struct {
		Type      string `json:"type"`
		MeetingID string `json:"meetingId"`
		UserID    string `json:"userId"`
	}
	var p cancelPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MeetingID == "" || p.UserID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad cancel payload")
		return
	}

	key := domain.JoinKey{Meeting: domain.MeetingID(p.MeetingID), User: domain.UserID(p.UserID)}
	hostConn, ok := g.Coord.CancelJoin(key)
	if !ok {
		return
	}
	g.sendTo(hostConn, map[string]any{
		"type":      "participant-cancelled",
		"meetingId": p.MeetingID,
		"userId":    p.UserID,
	})
}

func (g *Gateway) handleApprove(cid core.ConnID, data []byte) {
	g.resolveParticipant(cid, data, true)
}

func (g *Gateway) handleRejectParticipant(cid core.ConnID, data []byte) {
	g.resolveParticipant(cid, data, false)
}

// resolveParticipant handles both host-side outcomes. Only the connection
// verified as the meeting's host may resolve requests; anyone else is
// ignored without an error. A key that is already gone is a no-op, the
// request may have been resolved by a racing host action.
func (g *Gateway) resolveParticipant(cid core.ConnID, data []byte, approved bool) {
	type resolvePayload struct {
		Type      string `json:"type"`
		MeetingID string `json:"meetingId"`
		UserID    string `json:"userId"`
	}
	var p resolvePayload
	if err := json.Unmarshal(data, &p); err != nil || p.MeetingID == "" || p.UserID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad resolve payload")
		return
	}
	meeting := domain.MeetingID(p.MeetingID)
	if !g.Coord.Approval.IsHostConn(meeting, cid) {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Str("meeting", p.MeetingID).Msg("non-host resolve attempt ignored")
		return
	}

	key := domain.JoinKey{Meeting: meeting, User: domain.UserID(p.UserID)}
	res, ok := g.Coord.ResolveJoin(key)
	if !ok {
		return
	}

	requesterEvent, groupEvent := "join-rejected", "participant-rejected"
	if approved {
		requesterEvent, groupEvent = "join-approved", "participant-approved"
	}
	if res.RequesterOn {
		g.sendTo(res.RequesterConn, map[string]any{
			"type":      requesterEvent,
			"meetingId": p.MeetingID,
		})
	}
	g.broadcastMeeting(meeting, map[string]any{
		"type":      groupEvent,
		"meetingId": p.MeetingID,
		"userId":    p.UserID,
		"name":      res.Request.Name,
	})
}
