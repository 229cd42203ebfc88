package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/app"
	"github.com/meetwise/signaling/internal/config"
	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Gateway is the bidirectional event gateway. It owns the live connections
// and their identity bindings; all business state lives behind the
// coordinator.
type Gateway struct {
	Coord *app.Coordinator
	Cfg   *config.Config

	mu      sync.RWMutex
	clients map[core.ConnID]*client
}

// client is the per-connection metadata the gateway tracks: the transport
// endpoint plus whatever identity the connection has bound so far. Group
// membership and host verification live behind the coordinator.
type client struct {
	conn core.SignalConnection
	user domain.UserID
	name string
}

func NewGateway(coord *app.Coordinator, cfg *config.Config) *Gateway {
	return &Gateway{
		Coord:   coord,
		Cfg:     cfg,
		clients: make(map[core.ConnID]*client),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the HTTP request and runs the connection's pumps.
// The identity set by the auth middleware is bound before any event is
// processed.
func (g *Gateway) HandleSignal(ctx context.Context, c *gin.Context) {
	cid := core.ConnID(c.GetString("client_token"))
	user := domain.UserID(c.GetString("user_id"))
	name := c.GetString("username")
	log.Info().Str("module", "signal").Str("conn", string(cid)).Str("user", string(user)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(g.Cfg.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	g.Attach(cid, conn, user, name)

	ctx, cancel := context.WithCancel(ctx)
	go g.writePump(ctx, conn)
	go g.readPump(ctx, cancel, cid, conn)
}

// Attach registers a transport endpoint under a connection id. Split out
// from HandleSignal so the event flow is testable without a socket.
func (g *Gateway) Attach(cid core.ConnID, conn core.SignalConnection, user domain.UserID, name string) {
	g.mu.Lock()
	g.clients[cid] = &client{conn: conn, user: user, name: name}
	g.mu.Unlock()
	if user != "" {
		g.Coord.Presence.Register(user, cid)
	}
}

// detach removes the client exactly once; only the caller that wins the
// removal runs disconnect cleanup.
func (g *Gateway) detach(cid core.ConnID) (*client, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cl, ok := g.clients[cid]
	if !ok {
		return nil, false
	}
	delete(g.clients, cid)
	return cl, true
}

func (g *Gateway) lookup(cid core.ConnID) (*client, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cl, ok := g.clients[cid]
	return cl, ok
}

// OnDisconnect runs the coordinator cleanup and fans the results out: the
// engaged peer learns the call ended, every other connection learns the
// participant left, and emptied meeting groups lose their chat log.
func (g *Gateway) OnDisconnect(cid core.ConnID) {
	cl, ok := g.detach(cid)
	if !ok {
		return
	}
	report := g.Coord.Disconnect(cid)
	log.Info().Str("module", "signal").Str("conn", string(cid)).Str("user", string(report.User)).Msg("disconnected")

	if report.PeerOn {
		g.sendTo(report.PeerConn, map[string]any{
			"type":       "call-ended",
			"receiverId": report.User,
			"message":    "Peer disconnected",
		})
	}
	if report.HadUser {
		g.broadcastOthers(cid, map[string]any{
			"type":          "participant-left",
			"participantId": report.User,
		})
	}
	cl.conn.Close()
}
