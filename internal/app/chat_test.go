package app_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetwise/signaling/internal/app"
	"github.com/meetwise/signaling/internal/domain"
)

func TestChatCapEvictsOldestFirst(t *testing.T) {
	c := app.NewChatBuffer()

	for i := 0; i < 150; i++ {
		c.Append(domain.ChatMessage{
			ID:      fmt.Sprintf("msg-%d", i),
			Meeting: "meet-1",
			Sender:  "user_A",
			Text:    fmt.Sprintf("message %d", i),
		})
	}

	history := c.History("meet-1")
	require.Len(t, history, domain.ChatHistoryLimit)
	assert.Equal(t, "msg-50", history[0].ID, "oldest 50 evicted in FIFO order")
	assert.Equal(t, "msg-149", history[len(history)-1].ID)
}

func TestChatHistoryIsolatedPerMeeting(t *testing.T) {
	c := app.NewChatBuffer()
	c.Append(domain.ChatMessage{ID: "m1", Meeting: "meet-1", Text: "hi"})

	assert.Len(t, c.History("meet-1"), 1)
	assert.Empty(t, c.History("meet-2"))
}

func TestChatDrop(t *testing.T) {
	c := app.NewChatBuffer()
	c.Append(domain.ChatMessage{ID: "m1", Meeting: "meet-1", Text: "hi"})

	c.Drop("meet-1")
	assert.Empty(t, c.History("meet-1"))
}

func TestRoomsLeaveReportsEmpty(t *testing.T) {
	r := app.NewRooms()

	assert.Equal(t, 1, r.Join("meet-1", "conn_1"))
	assert.Equal(t, 2, r.Join("meet-1", "conn_2"))

	dep := r.Leave("meet-1", "conn_1")
	assert.False(t, dep.Empty)

	dep = r.Leave("meet-1", "conn_2")
	assert.True(t, dep.Empty)
	assert.Zero(t, r.Count("meet-1"))
}

func TestRoomsLeaveAll(t *testing.T) {
	r := app.NewRooms()
	r.Join("meet-1", "conn_1")
	r.Join("meet-2", "conn_1")
	r.Join("meet-2", "conn_2")

	departures := r.LeaveAll("conn_1")
	require.Len(t, departures, 2)

	emptied := map[domain.MeetingID]bool{}
	for _, dep := range departures {
		emptied[dep.Meeting] = dep.Empty
	}
	assert.True(t, emptied["meet-1"])
	assert.False(t, emptied["meet-2"])
}
