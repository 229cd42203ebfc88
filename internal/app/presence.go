package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

// Presence maps a user identity to its current connection. A user has at
// most one entry; registering again overwrites the previous routing target,
// so a reconnect invalidates the old session.
type Presence struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]core.ConnID
}

func NewPresence() *Presence {
	return &Presence{byUser: make(map[domain.UserID]core.ConnID)}
}

func (p *Presence) Register(user domain.UserID, conn core.ConnID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.byUser[user]; ok && prev != conn {
		log.Info().Str("module", "app.presence").Str("user", string(user)).Str("prev", string(prev)).Msg("presence overwritten by reconnect")
	}
	p.byUser[user] = conn
}

func (p *Presence) Lookup(user domain.UserID) (core.ConnID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cid, ok := p.byUser[user]
	return cid, ok
}

// DropConn removes the entry pointing at conn, if any. A newer registration
// for the same user under a different connection is left untouched.
func (p *Presence) DropConn(conn core.ConnID) (domain.UserID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for user, cid := range p.byUser {
		if cid == conn {
			delete(p.byUser, user)
			log.Info().Str("module", "app.presence").Str("user", string(user)).Msg("presence dropped")
			return user, true
		}
	}
	return "", false
}
