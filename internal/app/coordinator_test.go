package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meetwise/signaling/internal/app"
	"github.com/meetwise/signaling/internal/core"
	"github.com/meetwise/signaling/internal/domain"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindHost(ctx context.Context, meeting domain.MeetingID) (domain.UserID, error) {
	args := m.Called(ctx, meeting)
	return args.Get(0).(domain.UserID), args.Error(1)
}

func TestInitiateOfflineReceiver(t *testing.T) {
	coord := app.NewCoordinator(new(MockStore))

	res := coord.Initiate("alice", "bob", "room-1", false)
	assert.Equal(t, app.InviteOffline, res.Outcome)
	assert.False(t, coord.QueryBusy("alice"), "offline outcome rolls the pair back")
	assert.False(t, coord.QueryBusy("bob"))

	// The rollback frees the caller for an immediate retry.
	coord.Presence.Register("bob", "conn_b")
	assert.Equal(t, app.InviteRinging, coord.Initiate("alice", "bob", "room-1", false).Outcome)
}

func TestInitiateRingingThenBusy(t *testing.T) {
	coord := app.NewCoordinator(new(MockStore))
	coord.Presence.Register("bob", "conn_b")

	res := coord.Initiate("alice", "bob", "room-1", false)
	require.Equal(t, app.InviteRinging, res.Outcome)
	assert.Equal(t, "conn_b", string(res.ReceiverConn))

	res = coord.Initiate("carol", "bob", "room-2", false)
	assert.Equal(t, app.InviteBusy, res.Outcome)
}

// Full call lifecycle: register, initiate, accept, end, both free again.
func TestCallLifecycle(t *testing.T) {
	coord := app.NewCoordinator(new(MockStore))
	coord.Presence.Register("alice", "conn_a")
	coord.Presence.Register("bob", "conn_b")

	res := coord.Initiate("alice", "bob", "room-1", false)
	require.Equal(t, app.InviteRinging, res.Outcome)

	callerConn, ok := coord.Accept("alice")
	require.True(t, ok)
	assert.Equal(t, "conn_a", string(callerConn))

	remaining, ok := coord.End("alice", "bob")
	require.True(t, ok)
	assert.Equal(t, "conn_b", string(remaining))

	assert.False(t, coord.QueryBusy("alice"))
	assert.False(t, coord.QueryBusy("bob"))
}

func TestDisconnectClearsPeerBusy(t *testing.T) {
	coord := app.NewCoordinator(new(MockStore))
	coord.Presence.Register("alice", "conn_a")
	coord.Presence.Register("bob", "conn_b")
	require.Equal(t, app.InviteRinging, coord.Initiate("alice", "bob", "room-1", false).Outcome)

	report := coord.Disconnect("conn_a")
	assert.True(t, report.HadUser)
	assert.Equal(t, "alice", string(report.User))
	assert.Equal(t, "bob", string(report.Peer))
	assert.True(t, report.PeerOn)
	assert.Equal(t, "conn_b", string(report.PeerConn))

	assert.False(t, coord.QueryBusy("bob"), "receiver flag cleared by caller disconnect")
}

func TestDisconnectTearsDownEmptiedChat(t *testing.T) {
	coord := app.NewCoordinator(new(MockStore))
	coord.Rooms.Join("meet-1", "conn_a")
	coord.Chat.Append(domain.ChatMessage{ID: "m1", Meeting: "meet-1", Text: "hi"})

	coord.Disconnect("conn_a")
	assert.Empty(t, coord.Chat.History("meet-1"))
}

func TestRequestJoinHostAutoApproved(t *testing.T) {
	storeMock := new(MockStore)
	storeMock.On("FindHost", mock.Anything, domain.MeetingID("meet-1")).Return(domain.UserID("host_1"), nil)
	coord := app.NewCoordinator(storeMock)

	res, err := coord.RequestJoin(context.Background(), joinKey("meet-1", "host_1"), "Holly")
	require.NoError(t, err)
	assert.Equal(t, app.JoinAutoApproved, res.Outcome)
	assert.Empty(t, coord.Approval.Pending("meet-1"), "host bypasses the queue")
}

func TestRequestJoinQueuedAndIdempotent(t *testing.T) {
	storeMock := new(MockStore)
	storeMock.On("FindHost", mock.Anything, domain.MeetingID("meet-1")).Return(domain.UserID("host_1"), nil)
	coord := app.NewCoordinator(storeMock)
	coord.Approval.BindHost("meet-1", "conn_h")

	res, err := coord.RequestJoin(context.Background(), joinKey("meet-1", "user_A"), "Alice")
	require.NoError(t, err)
	assert.Equal(t, app.JoinQueued, res.Outcome)
	assert.True(t, res.HostOn)
	assert.Equal(t, "conn_h", string(res.HostConn))

	res, err = coord.RequestJoin(context.Background(), joinKey("meet-1", "user_A"), "Alice")
	require.NoError(t, err)
	assert.Equal(t, app.JoinAlreadyPending, res.Outcome)
	assert.Len(t, coord.Approval.Pending("meet-1"), 1)
}

func TestRequestJoinUnknownMeeting(t *testing.T) {
	storeMock := new(MockStore)
	storeMock.On("FindHost", mock.Anything, domain.MeetingID("ghost")).Return(domain.UserID(""), core.ErrMeetingNotFound)
	coord := app.NewCoordinator(storeMock)

	_, err := coord.RequestJoin(context.Background(), joinKey("ghost", "user_A"), "Alice")
	assert.ErrorIs(t, err, core.ErrMeetingNotFound)
	assert.Empty(t, coord.Approval.Pending("ghost"), "failed lookup leaves no partial state")
}

func TestVerifyHostBindsAndSnapshots(t *testing.T) {
	storeMock := new(MockStore)
	storeMock.On("FindHost", mock.Anything, domain.MeetingID("meet-1")).Return(domain.UserID("host_1"), nil)
	coord := app.NewCoordinator(storeMock)
	coord.Approval.Request(joinKey("meet-1", "user_A"), "Alice")
	coord.Approval.Request(joinKey("meet-1", "user_B"), "Bob")

	pending, ok := coord.VerifyHost(context.Background(), "meet-1", "host_1", "conn_h")
	require.True(t, ok)
	assert.Len(t, pending, 2, "requests accumulated before the host connected are flushed")
	assert.True(t, coord.Approval.IsHostConn("meet-1", "conn_h"))

	_, ok = coord.VerifyHost(context.Background(), "meet-1", "user_A", "conn_a")
	assert.False(t, ok, "non-host connection is never bound")
}

func TestCancelJoinWithdrawsAndFreesKey(t *testing.T) {
	storeMock := new(MockStore)
	storeMock.On("FindHost", mock.Anything, domain.MeetingID("meet-1")).Return(domain.UserID("host_1"), nil)
	coord := app.NewCoordinator(storeMock)
	coord.Approval.BindHost("meet-1", "conn_h")
	coord.Approval.Request(joinKey("meet-1", "user_A"), "Alice")

	hostConn, ok := coord.CancelJoin(joinKey("meet-1", "user_A"))
	require.True(t, ok)
	assert.Equal(t, "conn_h", string(hostConn))
	assert.Empty(t, coord.Approval.Pending("meet-1"))

	// The withdrawn key is immediately usable for a fresh request.
	res, err := coord.RequestJoin(context.Background(), joinKey("meet-1", "user_A"), "Alice")
	require.NoError(t, err)
	assert.Equal(t, app.JoinQueued, res.Outcome)
}

func TestCancelJoinWithoutHost(t *testing.T) {
	coord := app.NewCoordinator(new(MockStore))
	coord.Approval.Request(joinKey("meet-1", "user_A"), "Alice")

	// Nobody to notify, but the entry still goes away.
	_, ok := coord.CancelJoin(joinKey("meet-1", "user_A"))
	assert.False(t, ok)
	assert.Empty(t, coord.Approval.Pending("meet-1"))
}

func TestResolveJoinStaleKeyNoop(t *testing.T) {
	coord := app.NewCoordinator(new(MockStore))

	_, ok := coord.ResolveJoin(joinKey("meet-1", "user_A"))
	assert.False(t, ok)
}

func TestSweepExpired(t *testing.T) {
	coord := app.NewCoordinator(new(MockStore))
	coord.Presence.Register("alice", "conn_a")
	coord.Presence.Register("bob", "conn_b")
	require.Equal(t, app.InviteRinging, coord.Initiate("alice", "bob", "room-1", false).Outcome)
	coord.Approval.Request(joinKey("meet-1", "user_A"), "Alice")
	coord.Approval.BindHost("meet-1", "conn_h")

	future := time.Now().Add(time.Minute)
	calls, joins := coord.SweepExpired(future, future)

	require.Len(t, calls, 1)
	for _, party := range calls[0] {
		assert.True(t, party.Online)
	}
	assert.False(t, coord.QueryBusy("alice"))
	assert.False(t, coord.QueryBusy("bob"))

	require.Len(t, joins, 1)
	assert.Equal(t, "user_A", string(joins[0].Request.Key.User))
	assert.True(t, joins[0].HostOn)
}
