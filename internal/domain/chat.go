package domain

import "time"

// ChatHistoryLimit caps a meeting's buffered transcript. Oldest messages
// are evicted first once the cap is exceeded.
const ChatHistoryLimit = 100

// ChatMessage is immutable once appended to a meeting's log.
type ChatMessage struct {
	ID      string    `json:"id"`
	Meeting MeetingID `json:"meetingId"`
	Sender  UserID    `json:"senderId"`
	Name    string    `json:"senderName,omitempty"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sentAt"`
}
