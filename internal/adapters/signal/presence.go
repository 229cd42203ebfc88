package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

func (g *Gateway) handleRegister(cid core.ConnID, data []byte) {
	type registerPayload struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
		Name   string `json:"name,omitempty"`
	}
	var p registerPayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad register payload")
		return
	}

	g.bindUser(cid, domain.UserID(p.UserID), p.Name)
	log.Info().Str("module", "signal").Str("conn", string(cid)).Str("user", p.UserID).Msg("user registered")
}

// bindUser records the connection's identity and makes it the user's
// current presence routing target.
func (g *Gateway) bindUser(cid core.ConnID, user domain.UserID, name string) {
	u, err := domain.NewUser(user, name)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("rejecting identity bind")
		return
	}
	g.mu.Lock()
	if cl, ok := g.clients[cid]; ok {
		cl.user = u.ID
		if u.Name != "" {
			cl.name = u.Name
		}
	}
	g.mu.Unlock()
	g.Coord.Presence.Register(u.ID, cid)
}
