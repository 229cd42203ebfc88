package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

const writeWait = 5 * time.Second

func (g *Gateway) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(g.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) readPump(ctx context.Context, cancel context.CancelFunc, cid core.ConnID, c *WsSignalConn) {
	defer func() {
		cancel()
		g.OnDisconnect(cid)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("readPump read error")
				}
				return
			}
			g.Dispatch(ctx, cid, data)
		}
	}
}

// Dispatch routes an inbound event to exactly one handler based on its
// type. Unrecognized types are dropped with a diagnostic, never raised.
func (g *Gateway) Dispatch(ctx context.Context, cid core.ConnID, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "register-user":
		g.handleRegister(cid, data)
	case "query-busy":
		g.handleQueryBusy(cid, data)
	case "initiate-call":
		g.handleInitiate(cid, data)
	case "call-accepted":
		g.handleAccept(cid, data)
	case "call-rejected":
		g.handleReject(cid, data)
	case "call-ended":
		g.handleEnd(cid, data)
	case "join-request":
		g.handleJoinRequest(ctx, cid, data)
	case "cancel-join-request":
		g.handleCancelJoin(cid, data)
	case "approve-participant":
		g.handleApprove(cid, data)
	case "reject-participant":
		g.handleRejectParticipant(cid, data)
	case "join-chat":
		g.handleJoinChat(ctx, cid, data)
	case "send-message":
		g.handleSendMessage(cid, data)
	case "get-chat-history":
		g.handleChatHistory(cid, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (g *Gateway) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (g *Gateway) sendTo(cid core.ConnID, v any) {
	if cl, ok := g.lookup(cid); ok {
		g.sendJSON(cl.conn, v)
	}
}

// broadcastMeeting fans an event out to every member of a meeting's group.
func (g *Gateway) broadcastMeeting(meeting domain.MeetingID, v any) {
	for _, cid := range g.Coord.Rooms.Members(meeting) {
		g.sendTo(cid, v)
	}
}

// broadcastOthers fans an event out to every connection except the origin.
func (g *Gateway) broadcastOthers(except core.ConnID, v any) {
	g.mu.RLock()
	conns := make([]core.SignalConnection, 0, len(g.clients))
	for cid, cl := range g.clients {
		if cid != except {
			conns = append(conns, cl.conn)
		}
	}
	g.mu.RUnlock()
	for _, c := range conns {
		g.sendJSON(c, v)
	}
}
