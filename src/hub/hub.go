package hub

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoActiveConnection is returned by Send when the target actor has no
// open handles. Callers treat this as "actor offline", not as a fault.
var ErrNoActiveConnection = errors.New("no active connection for actor")

// MessageBridge relays room broadcasts to other server instances.
// Defined here to avoid a circular import with the bridge package.
type MessageBridge interface {
	Publish(roomID, excludeActor string, payload []byte) error
	Available() bool
}

// InboundHandler consumes a decoded-at-the-edge inbound frame. It runs on
// its own goroutine so a slow upstream call never stalls the hub loop.
type InboundHandler func(actorID, connID string, data []byte)

// Hub is the connection registry: it owns the live set of transport
// handles per actor and the explicit room membership table, and is the
// only safe way to address an actor or a room.
type Hub struct {
	actors map[string]map[string]*Client // actorID -> connID -> client
	rooms  map[string]map[string]bool    // roomID -> set of actorIDs

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	broadcast  chan broadcastMsg
	localCast  chan broadcastMsg // from the bridge, no re-publish

	handler InboundHandler
	onJoin  []func(roomID, actorID string)
	onLeave []func(roomID, actorID string)

	bridge  MessageBridge
	metrics Metrics
	mu      sync.RWMutex
	logger  zerolog.Logger
	done    chan struct{}
}

type broadcastMsg struct {
	roomID  string
	exclude string // actor to skip, empty for none
	payload []byte
}

type inboundFrame struct {
	client *Client
	data   []byte
}

// New creates a hub. The zero metrics sink discards counts; attach a real
// one with SetMetrics before Run.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		actors:     make(map[string]map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame, 256),
		broadcast:  make(chan broadcastMsg, 256),
		localCast:  make(chan broadcastMsg, 256),
		metrics:    nopMetrics{},
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// SetBridge attaches a cross-instance message bridge. When set, room
// broadcasts are also forwarded to other instances.
func (h *Hub) SetBridge(b MessageBridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = b
}

// SetMetrics attaches a delivery metrics sink.
func (h *Hub) SetMetrics(m Metrics) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m != nil {
		h.metrics = m
	}
}

// SetHandler installs the inbound event handler. Must be called before Run.
func (h *Hub) SetHandler(fn InboundHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = fn
}

// BroadcastLocal delivers a bridged broadcast to local participants only.
// It does not re-publish to the bridge, preventing relay loops.
func (h *Hub) BroadcastLocal(roomID string, payload []byte, excludeActor string) {
	h.localCast <- broadcastMsg{roomID: roomID, exclude: excludeActor, payload: payload}
}

// Run starts the hub event loop. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case frame := <-h.inbound:
			h.dispatch(frame)
		case bm := <-h.broadcast:
			h.publishToBridge(bm)
			h.fanout(bm)
		case bm := <-h.localCast:
			h.fanout(bm)
		case <-h.done:
			return
		}
	}
}

// Stop halts the hub event loop.
func (h *Hub) Stop() {
	close(h.done)
}

// Register queues a handle for registration. Registration is idempotent:
// a second handle for the same actor simply becomes another session.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister queues a handle for removal. Removing a handle that is not
// present is a no-op; transports may signal close twice.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

func (h *Hub) dispatch(frame inboundFrame) {
	h.mu.RLock()
	fn := h.handler
	h.mu.RUnlock()

	if fn == nil {
		h.logger.Debug().Str("conn_id", frame.client.ID).Msg("no inbound handler")
		return
	}
	go fn(frame.client.ActorID, frame.client.ID, frame.data)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	conns := h.actors[c.ActorID]
	if conns == nil {
		conns = make(map[string]*Client)
		h.actors[c.ActorID] = conns
	}
	conns[c.ID] = c
	room := c.RoomID
	if room != "" {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[string]bool)
		}
		h.rooms[room][c.ActorID] = true
	}
	h.mu.Unlock()

	h.logger.Info().
		Str("actor_id", c.ActorID).
		Str("conn_id", c.ID).
		Str("room_id", room).
		Msg("connection registered")

	if room != "" {
		for _, cb := range h.onJoin {
			cb(room, c.ActorID)
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	conns, ok := h.actors[c.ActorID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := conns[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(conns, c.ID)

	var left []string
	if len(conns) == 0 {
		// Last handle gone: drop the actor entirely, including room
		// membership, so no empty entries leak.
		delete(h.actors, c.ActorID)
		for room, members := range h.rooms {
			if members[c.ActorID] {
				delete(members, c.ActorID)
				left = append(left, room)
				if len(members) == 0 {
					delete(h.rooms, room)
				}
			}
		}
	}
	h.mu.Unlock()

	c.Close()
	h.logger.Info().
		Str("actor_id", c.ActorID).
		Str("conn_id", c.ID).
		Msg("connection unregistered")

	for _, room := range left {
		for _, cb := range h.onLeave {
			cb(room, c.ActorID)
		}
	}
}
