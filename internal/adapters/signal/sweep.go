package signal

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunSweeper applies the bounded-expiry policy on a fixed cadence: ringing
// calls and pending join requests never outlive their configured deadlines.
func (g *Gateway) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.sweep(now)
		}
	}
}

func (g *Gateway) sweep(now time.Time) {
	calls, joins := g.Coord.SweepExpired(now.Add(-g.Cfg.RingTimeout), now.Add(-g.Cfg.JoinRequestTTL))

	for _, pair := range calls {
		for _, party := range pair {
			if !party.Online {
				continue
			}
			g.sendTo(party.Conn, map[string]any{
				"type":    "call-ended",
				"message": "Call timed out",
			})
		}
	}

	for _, jt := range joins {
		if jt.RequesterOn {
			g.sendTo(jt.RequesterConn, map[string]any{
				"type":      "join-rejected",
				"meetingId": string(jt.Request.Key.Meeting),
				"message":   "Join request expired",
			})
		}
		if jt.HostOn {
			g.sendTo(jt.HostConn, map[string]any{
				"type":      "pending-requests-update",
				"meetingId": string(jt.Request.Key.Meeting),
				"requests":  viewsOf(g.Coord.Approval.Pending(jt.Request.Key.Meeting)),
			})
		}
	}

	if len(calls) > 0 || len(joins) > 0 {
		log.Info().Str("module", "signal").Int("calls", len(calls)).Int("joins", len(joins)).Msg("expired state swept")
	}
}
