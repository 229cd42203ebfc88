package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meetwise/signaling/internal/domain"
)

// ChatBuffer keeps the short-lived transcript of each live meeting.
// History is strictly bounded and scoped to the meeting's lifetime; it is
// discarded wholesale when the last group member leaves.
type ChatBuffer struct {
	mu   sync.RWMutex
	logs map[domain.MeetingID][]domain.ChatMessage
}

func NewChatBuffer() *ChatBuffer {
	return &ChatBuffer{logs: make(map[domain.MeetingID][]domain.ChatMessage)}
}

// Append adds a message, evicting the oldest entry once the log exceeds
// domain.ChatHistoryLimit.
func (c *ChatBuffer) Append(msg domain.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	logEntries := append(c.logs[msg.Meeting], msg)
	if len(logEntries) > domain.ChatHistoryLimit {
		logEntries = logEntries[len(logEntries)-domain.ChatHistoryLimit:]
	}
	c.logs[msg.Meeting] = logEntries
}

// History returns a copy of the buffered log, empty if none.
func (c *ChatBuffer) History(meeting domain.MeetingID) []domain.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := c.logs[meeting]
	out := make([]domain.ChatMessage, len(entries))
	copy(out, entries)
	return out
}

func (c *ChatBuffer) Drop(meeting domain.MeetingID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.logs[meeting]; ok {
		delete(c.logs, meeting)
		log.Info().Str("module", "app.chat").Str("meeting", string(meeting)).Msg("chat log dropped")
	}
}
