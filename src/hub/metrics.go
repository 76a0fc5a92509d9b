package hub

import "sync/atomic"

// Metrics receives delivery outcomes the registry would otherwise only
// log: dropped frames, write failures, sends to offline actors. Tests and
// operators observe fan-out health through this instead of log scraping.
type Metrics interface {
	// Delivered reports how many handles accepted one broadcast.
	Delivered(roomID string, n int)
	// Dropped reports a frame discarded because a handle's buffer was full.
	Dropped(actorID, connID string)
	// WriteFailed reports a transport write failure on one handle.
	WriteFailed(actorID, connID string)
	// Offline reports a send targeting an actor with no open handles.
	Offline(actorID string)
}

type nopMetrics struct{}

func (nopMetrics) Delivered(string, int)      {}
func (nopMetrics) Dropped(string, string)     {}
func (nopMetrics) WriteFailed(string, string) {}
func (nopMetrics) Offline(string)             {}

// Counters is a Metrics sink backed by atomic counters.
type Counters struct {
	delivered   atomic.Int64
	dropped     atomic.Int64
	writeFailed atomic.Int64
	offline     atomic.Int64
}

// NewCounters creates an empty counter set.
func NewCounters() *Counters { return &Counters{} }

func (c *Counters) Delivered(_ string, n int) { c.delivered.Add(int64(n)) }
func (c *Counters) Dropped(_, _ string)       { c.dropped.Add(1) }
func (c *Counters) WriteFailed(_, _ string)   { c.writeFailed.Add(1) }
func (c *Counters) Offline(_ string)          { c.offline.Add(1) }

// DeliveredCount returns the total number of accepted frame deliveries.
func (c *Counters) DeliveredCount() int64 { return c.delivered.Load() }

// DroppedCount returns the total number of buffer-full drops.
func (c *Counters) DroppedCount() int64 { return c.dropped.Load() }

// WriteFailedCount returns the total number of transport write failures.
func (c *Counters) WriteFailedCount() int64 { return c.writeFailed.Load() }

// OfflineCount returns the total number of sends to offline actors.
func (c *Counters) OfflineCount() int64 { return c.offline.Load() }
