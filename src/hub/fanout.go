package hub

// JoinRoom adds an actor to a room's membership. Returns false if the
// actor has no live connection.
func (h *Hub) JoinRoom(roomID, actorID string) bool {
	h.mu.Lock()
	if _, ok := h.actors[actorID]; !ok {
		h.mu.Unlock()
		return false
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][actorID] = true
	h.mu.Unlock()

	for _, cb := range h.onJoin {
		cb(roomID, actorID)
	}
	return true
}

// LeaveRoom removes an actor from a room. Leaving a room the actor is not
// in is a no-op.
func (h *Hub) LeaveRoom(roomID, actorID string) bool {
	h.mu.Lock()
	members, ok := h.rooms[roomID]
	if !ok || !members[actorID] {
		h.mu.Unlock()
		return false
	}
	delete(members, actorID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	for _, cb := range h.onLeave {
		cb(roomID, actorID)
	}
	return true
}

// OnJoin registers a callback invoked when an actor joins a room.
func (h *Hub) OnJoin(cb func(roomID, actorID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin = append(h.onJoin, cb)
}

// OnLeave registers a callback invoked when an actor leaves a room.
func (h *Hub) OnLeave(cb func(roomID, actorID string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onLeave = append(h.onLeave, cb)
}

// Send attempts delivery to every open handle of the actor. Best-effort,
// at-most-once per handle: one full buffer does not block delivery to the
// actor's other handles, and nothing is retried. Returns
// ErrNoActiveConnection when the actor is offline.
func (h *Hub) Send(actorID string, payload []byte) error {
	h.mu.RLock()
	conns := h.snapshotConns(actorID)
	h.mu.RUnlock()

	if len(conns) == 0 {
		h.metrics.Offline(actorID)
		return ErrNoActiveConnection
	}
	for _, c := range conns {
		h.enqueue(c, payload)
	}
	return nil
}

// SendToConn delivers to exactly one handle. Used for error frames that
// must reach only the connection that produced the faulty event.
func (h *Hub) SendToConn(actorID, connID string, payload []byte) error {
	h.mu.RLock()
	c := h.actors[actorID][connID]
	h.mu.RUnlock()

	if c == nil {
		h.metrics.Offline(actorID)
		return ErrNoActiveConnection
	}
	h.enqueue(c, payload)
	return nil
}

// Broadcast queues a room fan-out, excluding every handle of excludeActor.
// Fire-and-forget: per-recipient failures are isolated and counted, never
// surfaced to the sender.
func (h *Hub) Broadcast(roomID string, payload []byte, excludeActor string) {
	h.broadcast <- broadcastMsg{roomID: roomID, exclude: excludeActor, payload: payload}
}

// fanout delivers one broadcast. Membership and per-actor handle sets are
// snapshotted under the read lock so a concurrent disconnect mid-broadcast
// cannot invalidate the iteration.
func (h *Hub) fanout(bm broadcastMsg) {
	h.mu.RLock()
	members, ok := h.rooms[bm.roomID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		if id != bm.exclude {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, actorID := range ids {
		h.mu.RLock()
		conns := h.snapshotConns(actorID)
		h.mu.RUnlock()
		for _, c := range conns {
			if h.enqueue(c, bm.payload) {
				delivered++
			}
		}
	}
	h.metrics.Delivered(bm.roomID, delivered)
}

func (h *Hub) publishToBridge(bm broadcastMsg) {
	h.mu.RLock()
	b := h.bridge
	h.mu.RUnlock()

	if b == nil || !b.Available() {
		return
	}
	if err := b.Publish(bm.roomID, bm.exclude, bm.payload); err != nil {
		h.logger.Error().Err(err).Str("room_id", bm.roomID).Msg("bridge publish failed")
	}
}

// enqueue hands a payload to one handle's write pump. The send buffer is
// bounded: a slow consumer drops rather than stalling the fan-out.
func (h *Hub) enqueue(c *Client, payload []byte) bool {
	select {
	case c.Send <- payload:
		return true
	default:
		h.metrics.Dropped(c.ActorID, c.ID)
		h.logger.Warn().
			Str("actor_id", c.ActorID).
			Str("conn_id", c.ID).
			Msg("send buffer full, dropping")
		return false
	}
}

// snapshotConns copies an actor's handle set. Callers hold the read lock.
func (h *Hub) snapshotConns(actorID string) []*Client {
	conns := h.actors[actorID]
	if len(conns) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}
