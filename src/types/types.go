package types

import "time"

// EventKind is the closed set of inbound event kinds. Inbound JSON is
// decoded into one of these exactly once at the boundary; downstream code
// switches on the kind, never on the raw type string.
type EventKind int

const (
	// EventChat is a prompt addressed to the AI responder. The reply goes
	// back to the originating actor only.
	EventChat EventKind = iota + 1

	// EventCollaboration is a room-scoped event fanned out verbatim to
	// every other participant of the named room.
	EventCollaboration
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventChat:
		return "chat"
	case EventCollaboration:
		return "collaboration"
	default:
		return "unknown"
	}
}

// Event is an inbound event after boundary decoding. Raw holds the
// original bytes so room broadcasts deliver the payload byte-identical.
type Event struct {
	Kind    EventKind
	Content string         // chat prompt
	Context map[string]any // optional chat context
	RoomID  string         // collaboration target room (project id)
	Raw     []byte
}

// AIResponse is the direct-reply frame sent to the actor that issued a
// chat event.
type AIResponse struct {
	Type      string    `json:"type"` // always "ai_response"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorFrame is the connection-safe error surface for a rejected or
// failed inbound event. It is sent to the originating connection only.
type ErrorFrame struct {
	Type    string `json:"type"` // always "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionInfo holds metadata about one live connection.
type SessionInfo struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Conn abstracts a WebSocket connection for testability. Payloads cross
// it as opaque bytes; the registry never re-encodes them.
type Conn interface {
	WriteMessage(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
}
