package bridge

// Bridge defines the interface for cross-instance broadcast relay.
// Implementations carry room fan-outs between server instances so a
// room split across nodes still behaves as one room.
type Bridge interface {
	// Publish sends a room broadcast to all other instances.
	Publish(roomID, excludeActor string, payload []byte) error

	// Start begins listening for broadcasts from other instances.
	Start() error

	// Stop shuts down the bridge connection.
	Stop() error

	// Available reports whether the bridge is connected and operational.
	Available() bool
}

// BroadcastTarget is implemented by the hub to receive bridged broadcasts.
type BroadcastTarget interface {
	BroadcastLocal(roomID string, payload []byte, excludeActor string)
}
