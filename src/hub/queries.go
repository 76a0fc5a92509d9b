package hub

import "github.com/codeloom/relay/src/types"

// ConnectionCount returns the number of open handles for an actor.
func (h *Hub) ConnectionCount(actorID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.actors[actorID])
}

// HasActor reports whether the actor has at least one open handle.
func (h *Hub) HasActor(actorID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.actors[actorID]
	return ok
}

// Actors returns the IDs of all actors with at least one open handle.
func (h *Hub) Actors() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.actors))
	for id := range h.actors {
		ids = append(ids, id)
	}
	return ids
}

// ActorCount returns the number of connected actors.
func (h *Hub) ActorCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.actors)
}

// Sessions returns metadata for every open handle of an actor.
func (h *Hub) Sessions(actorID string) []types.SessionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.actors[actorID]
	out := make([]types.SessionInfo, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.Info())
	}
	return out
}

// Rooms returns room IDs with their member counts.
func (h *Hub) Rooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make(map[string]int, len(h.rooms))
	for room, members := range h.rooms {
		result[room] = len(members)
	}
	return result
}

// RoomMembers returns the actor IDs currently in a room.
func (h *Hub) RoomMembers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[roomID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}
