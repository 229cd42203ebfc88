package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/app"
	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

func (g *Gateway) handleQueryBusy(cid core.ConnID, data []byte) {
	type queryPayload struct {
		Type       string `json:"type"`
		ReceiverID string `json:"receiverId"`
	}
	var p queryPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ReceiverID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad query-busy payload")
		return
	}

	busy := g.Coord.QueryBusy(domain.UserID(p.ReceiverID))
	msg := "User is free to receive call"
	if busy {
		msg = "User is currently in another call"
	}
	g.sendTo(cid, map[string]any{
		"type":    "busy-status",
		"busy":    busy,
		"message": msg,
	})
}

func (g *Gateway) handleInitiate(cid core.ConnID, data []byte) {
	type initiatePayload struct {
		Type       string `json:"type"`
		RoomName   string `json:"roomName"`
		CallerID   string `json:"callerId"`
		CallerName string `json:"callerName"`
		ReceiverID string `json:"receiverId"`
		Conference bool   `json:"conference,omitempty"`
	}
	var p initiatePayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallerID == "" || p.ReceiverID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad initiate payload")
		return
	}
	caller := domain.UserID(p.CallerID)
	g.bindUser(cid, caller, p.CallerName)

	res := g.Coord.Initiate(caller, domain.UserID(p.ReceiverID), domain.RoomName(p.RoomName), p.Conference)
	switch res.Outcome {
	case app.InviteOffline:
		g.sendTo(cid, map[string]any{
			"type":    "user-offline",
			"message": "User is offline",
		})
	case app.InviteBusy:
		g.sendTo(cid, map[string]any{
			"type":    "user-busy",
			"message": "User is currently in another call",
		})
	case app.InviteRinging:
		g.sendTo(res.ReceiverConn, map[string]any{
			"type":       "incoming-call",
			"roomName":   p.RoomName,
			"callerName": p.CallerName,
			"callerId":   p.CallerID,
			"conference": p.Conference,
		})
		log.Info().Str("module", "signal").Str("caller", p.CallerID).Str("receiver", p.ReceiverID).Str("room", p.RoomName).Msg("incoming call delivered")
	}
}

func (g *Gateway) handleAccept(cid core.ConnID, data []byte) {
	type acceptPayload struct {
		Type       string `json:"type"`
		CallerID   string `json:"callerId"`
		Conference bool   `json:"conference,omitempty"`
	}
	var p acceptPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallerID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad accept payload")
		return
	}

	callerConn, ok := g.Coord.Accept(domain.UserID(p.CallerID))
	if !ok {
		return
	}
	g.sendTo(callerConn, map[string]any{
		"type":       "call-accepted",
		"message":    "Call accepted",
		"conference": p.Conference,
	})
	if cl, ok := g.lookup(cid); ok && cl.user != "" {
		g.broadcastOthers(cid, map[string]any{
			"type":          "participant-joined",
			"participantId": cl.user,
		})
	}
}

func (g *Gateway) handleReject(cid core.ConnID, data []byte) {
	type rejectPayload struct {
		Type         string `json:"type"`
		CallerID     string `json:"callerId"`
		ReceiverName string `json:"receiverName"`
	}
	var p rejectPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallerID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad reject payload")
		return
	}

	callerConn, ok := g.Coord.Reject(domain.UserID(p.CallerID))
	if !ok {
		return
	}
	g.sendTo(callerConn, map[string]any{
		"type":    "call-rejected",
		"message": p.ReceiverName + " rejected your call",
	})
}

func (g *Gateway) handleEnd(cid core.ConnID, data []byte) {
	type endPayload struct {
		Type         string `json:"type"`
		ReceiverID   string `json:"receiverId"`
		ReceiverName string `json:"receiverName"`
		CallerName   string `json:"callerName"`
		CallerID     string `json:"callerId"`
	}
	var p endPayload
	if err := json.Unmarshal(data, &p); err != nil || p.CallerID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad end payload")
		return
	}

	receiverConn, ok := g.Coord.End(domain.UserID(p.CallerID), domain.UserID(p.ReceiverID))
	if ok {
		// The ender shows up as the remaining party's "receiver".
		g.sendTo(receiverConn, map[string]any{
			"type":         "call-ended",
			"receiverId":   p.CallerID,
			"receiverName": p.CallerName,
		})
	}
	g.broadcastOthers(cid, map[string]any{
		"type":          "participant-left",
		"participantId": p.CallerID,
	})
}
