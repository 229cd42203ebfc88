package domain

import "time"

// JoinKey identifies a join request. A struct key instead of a
// "meetingId-userId" string avoids collisions when either part
// contains the delimiter.
type JoinKey struct {
	Meeting MeetingID
	User    UserID
}

// JoinRequest is a pending, host-gated entry request. It exists only
// between creation and approval, rejection, cancellation or expiry;
// the key is free for reuse once resolved.
type JoinRequest struct {
	Key         JoinKey
	Name        string
	RequestedAt time.Time
}
