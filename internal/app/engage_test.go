package app_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetwise/signaling/internal/app"
	"github.com/meetwise/signaling/internal/domain"
)

func TestTryEngageMarksBothParties(t *testing.T) {
	e := app.NewEngagements()

	require.NoError(t, e.TryEngage("alice", "bob", "room-1"))

	assert.True(t, e.Busy("alice"))
	assert.True(t, e.Busy("bob"))
}

func TestTryEngageRejectsBusyReceiver(t *testing.T) {
	e := app.NewEngagements()
	require.NoError(t, e.TryEngage("alice", "bob", "room-1"))

	err := e.TryEngage("carol", "bob", "room-2")
	assert.ErrorIs(t, err, app.ErrReceiverBusy)
	assert.False(t, e.Busy("carol"), "losing caller must not be marked busy")
}

func TestTryEngageRejectsBusyCaller(t *testing.T) {
	e := app.NewEngagements()
	require.NoError(t, e.TryEngage("alice", "bob", "room-1"))

	err := e.TryEngage("alice", "carol", "room-2")
	assert.ErrorIs(t, err, app.ErrCallerBusy)
	assert.False(t, e.Busy("carol"))
}

// Two simultaneous callers racing for the same receiver: exactly one wins.
func TestTryEngageAtomicUnderContention(t *testing.T) {
	e := app.NewEngagements()

	const attempts = 64
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := domain.UserID("caller_" + string(rune('a'+i%26)) + string(rune('a'+i/26)))
			errs[i] = e.TryEngage(caller, "receiver", "room-1")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, app.ErrReceiverBusy)
		}
	}
	assert.Equal(t, 1, won, "exactly one caller may engage the receiver")
}

func TestDisengageClearsPeer(t *testing.T) {
	e := app.NewEngagements()
	require.NoError(t, e.TryEngage("alice", "bob", "room-1"))

	peer, ok := e.Disengage("alice")
	require.True(t, ok)
	assert.Equal(t, "bob", string(peer))
	assert.False(t, e.Busy("alice"))
	assert.False(t, e.Busy("bob"), "peer flag must not leak after disengage")

	_, ok = e.Disengage("alice")
	assert.False(t, ok, "second disengage is a no-op")
}

func TestConnectMarksBothConnected(t *testing.T) {
	e := app.NewEngagements()
	require.NoError(t, e.TryEngage("alice", "bob", "room-1"))

	assert.True(t, e.Connect("bob"))

	expired := e.ExpireRinging(time.Now().Add(time.Hour))
	assert.Empty(t, expired, "connected calls never ring-expire")
}

func TestEngageReceiverAllowsBusyInviter(t *testing.T) {
	e := app.NewEngagements()
	require.NoError(t, e.TryEngage("alice", "bob", "room-1"))

	// Conference invite from an already engaged caller.
	require.NoError(t, e.EngageReceiver("alice", "carol", "room-1"))
	assert.True(t, e.Busy("carol"))

	err := e.EngageReceiver("alice", "carol", "room-1")
	assert.ErrorIs(t, err, app.ErrReceiverBusy)
}

func TestExpireRingingTearsDownPair(t *testing.T) {
	e := app.NewEngagements()
	require.NoError(t, e.TryEngage("alice", "bob", "room-1"))

	expired := e.ExpireRinging(time.Now().Add(time.Second))
	require.Len(t, expired, 1)
	assert.False(t, e.Busy("alice"))
	assert.False(t, e.Busy("bob"))
}
