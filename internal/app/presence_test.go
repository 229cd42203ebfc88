package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meetwise/signaling/internal/app"
)

func TestPresenceLastWriteWins(t *testing.T) {
	p := app.NewPresence()

	p.Register("user_A", "conn_1")
	p.Register("user_A", "conn_2")

	cid, ok := p.Lookup("user_A")
	assert.True(t, ok)
	assert.Equal(t, "conn_2", string(cid))
}

func TestPresenceDropConnOnlyMatching(t *testing.T) {
	p := app.NewPresence()
	p.Register("user_A", "conn_1")

	// A reconnect re-registered the user before the old socket closed.
	p.Register("user_A", "conn_2")

	_, dropped := p.DropConn("conn_1")
	assert.False(t, dropped, "stale connection must not evict the newer registration")

	cid, ok := p.Lookup("user_A")
	assert.True(t, ok)
	assert.Equal(t, "conn_2", string(cid))

	user, dropped := p.DropConn("conn_2")
	assert.True(t, dropped)
	assert.Equal(t, "user_A", string(user))

	_, ok = p.Lookup("user_A")
	assert.False(t, ok)
}
