package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

func (g *Gateway) handleJoinChat(ctx context.Context, cid core.ConnID, data []byte) {
	type joinChatPayload struct {
		Type      string `json:"type"`
		MeetingID string `json:"meetingId"`
		UserID    string `json:"userId"`
		Username  string `json:"username"`
	}
	var p joinChatPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MeetingID == "" || p.UserID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad join-chat payload")
		return
	}
	meeting := domain.MeetingID(p.MeetingID)
	user := domain.UserID(p.UserID)
	g.bindUser(cid, user, p.Username)

	g.Coord.Rooms.Join(meeting, cid)
	g.broadcastMeeting(meeting, map[string]any{
		"type":      "user-joined",
		"meetingId": p.MeetingID,
		"userId":    p.UserID,
		"username":  p.Username,
	})

	// A joining host binds the meeting's approval queue to this connection
	// and gets the snapshot that piled up while no host was around.
	if pending, ok := g.Coord.VerifyHost(ctx, meeting, user, cid); ok {
		g.sendTo(cid, map[string]any{
			"type":      "pending-requests-update",
			"meetingId": p.MeetingID,
			"requests":  viewsOf(pending),
		})
	}
}

func (g *Gateway) handleSendMessage(cid core.ConnID, data []byte) {
	type messagePayload struct {
		Type       string `json:"type"`
		MeetingID  string `json:"meetingId"`
		ID         string `json:"id,omitempty"`
		SenderID   string `json:"senderId"`
		SenderName string `json:"senderName,omitempty"`
		Text       string `json:"text"`
	}
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.MeetingID == "" || p.SenderID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad message payload")
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	msg := domain.ChatMessage{
		ID:      p.ID,
		Meeting: domain.MeetingID(p.MeetingID),
		Sender:  domain.UserID(p.SenderID),
		Name:    p.SenderName,
		Text:    p.Text,
		SentAt:  time.Now(),
	}
	g.Coord.Chat.Append(msg)
	g.broadcastMeeting(msg.Meeting, map[string]any{
		"type":    "new-message",
		"message": msg,
	})
}

func (g *Gateway) handleChatHistory(cid core.ConnID, data []byte) {
	type historyPayload struct {
		Type      string `json:"type"`
		MeetingID string `json:"meetingId"`
	}
	var p historyPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MeetingID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad history payload")
		return
	}

	g.sendTo(cid, map[string]any{
		"type":      "chat-history",
		"meetingId": p.MeetingID,
		"messages":  g.Coord.Chat.History(domain.MeetingID(p.MeetingID)),
	})
}
