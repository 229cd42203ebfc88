package domain

type (
	// MeetingID is the public link id of a meeting (the original "linkId").
	MeetingID string
	// RoomName is the media room a call takes place in.
	RoomName string
)
