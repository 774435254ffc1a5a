package telemetry

import "sync/atomic"

// Counters tracks broadcast volume and telemetry intake. All fields are
// atomics so transports and the world loop can record without coordination.
type Counters struct {
	broadcasts         atomic.Uint64
	broadcastBytes     atomic.Uint64
	lastBroadcastBytes atomic.Uint64
	eventsBuffered     atomic.Uint64
	eventsOversized    atomic.Uint64
	intentsDropped     atomic.Uint64
}

type CountersSnapshot struct {
	Broadcasts         uint64 `json:"broadcasts"`
	BroadcastBytes     uint64 `json:"broadcastBytes"`
	LastBroadcastBytes uint64 `json:"lastBroadcastBytes"`
	EventsBuffered     uint64 `json:"eventsBuffered"`
	EventsOversized    uint64 `json:"eventsOversized"`
	IntentsDropped     uint64 `json:"intentsDropped"`
}

func (c *Counters) RecordBroadcast(bytes int) {
	if bytes < 0 {
		bytes = 0
	}
	c.broadcasts.Add(1)
	c.broadcastBytes.Add(uint64(bytes))
	c.lastBroadcastBytes.Store(uint64(bytes))
}

func (c *Counters) RecordEvent()         { c.eventsBuffered.Add(1) }
func (c *Counters) RecordOversized()     { c.eventsOversized.Add(1) }
func (c *Counters) RecordDroppedIntent() { c.intentsDropped.Add(1) }

func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		Broadcasts:         c.broadcasts.Load(),
		BroadcastBytes:     c.broadcastBytes.Load(),
		LastBroadcastBytes: c.lastBroadcastBytes.Load(),
		EventsBuffered:     c.eventsBuffered.Load(),
		EventsOversized:    c.eventsOversized.Load(),
		IntentsDropped:     c.intentsDropped.Load(),
	}
}
