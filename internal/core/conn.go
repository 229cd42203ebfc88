package core

// Frame is a raw outbound payload (JSON-encoded event).
type Frame []byte

// ConnID identifies one live transport session.
type ConnID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
