package core

import (
	"context"
	"errors"

	"github.com/meetwise/signaling/internal/domain"
)

var ErrNoRecording = errors.New("no recording in progress")

// EgressClient is the narrow contract of the external recording service.
// The coordinator never owns recording state beyond notifying a meeting's
// group that the state changed.
type EgressClient interface {
	// Start begins a room composite recording and returns its handle.
	Start(ctx context.Context, room domain.RoomName, filename string) (string, error)
	// Stop ends the recording identified by handle and returns the
	// artifact locator.
	Stop(ctx context.Context, handle string) (string, error)
}
