package core

import (
	"context"
	"errors"

	"github.com/meetwise/signaling/internal/domain"
)

var ErrMeetingNotFound = errors.New("meeting not found")

// MeetingStore resolves a meeting's designated host. The lookup may block;
// it must only suspend the event being handled, never the coordinator.
type MeetingStore interface {
	FindHost(ctx context.Context, meeting domain.MeetingID) (domain.UserID, error)
}
