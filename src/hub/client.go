package hub

import (
	"sync"
	"time"

	"github.com/codeloom/relay/src/types"
)

// Client wraps one live transport handle. A handle is bound to exactly
// one actor for its whole lifetime; an actor may hold several concurrent
// handles (multi-tab).
type Client struct {
	ID      string // connection id, unique per handle
	ActorID string

	conn        types.Conn
	hub         *Hub
	Send        chan []byte
	RoomID      string // room joined at connect time, may be empty
	connectedAt time.Time
	mu          sync.Mutex
	done        chan struct{}
	closed      bool
}

// NewClient creates a client wrapper around an open transport handle.
func NewClient(id, actorID string, conn types.Conn, h *Hub) *Client {
	return &Client{
		ID:          id,
		ActorID:     actorID,
		conn:        conn,
		hub:         h,
		Send:        make(chan []byte, 256),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// Info returns metadata about this connection.
func (c *Client) Info() types.SessionInfo {
	return types.SessionInfo{
		ID:          c.ID,
		ActorID:     c.ActorID,
		ConnectedAt: c.connectedAt,
	}
}

// Done is closed when the connection transitions to its terminal state.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadPump reads frames from the transport and forwards them to the hub.
// It owns disconnect on read failure: the transport signals closure here,
// never via a failed send.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if len(data) == 0 {
			continue
		}
		c.hub.inbound <- inboundFrame{client: c, data: data}
	}
}

// WritePump drains the send channel onto the transport. A failed write is
// terminal for this handle only: the pump unregisters itself and stops,
// leaving the actor's other handles untouched.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case data := <-c.Send:
			if err := c.conn.WriteMessage(data); err != nil {
				c.hub.metrics.WriteFailed(c.ActorID, c.ID)
				c.hub.unregister <- c
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close signals the pumps to stop. Safe to call more than once. The Send
// channel stays open: fan-out goroutines may still hold the handle while
// it closes.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}
