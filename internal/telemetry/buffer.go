package telemetry

import (
	"encoding/json"
	"sync"
	"time"
)

// Event is one buffered diagnostic sample. Raw holds the client payload
// verbatim; it is opaque to the server and already size-capped on intake.
type Event struct {
	At       time.Time       `json:"at"`
	ClientID string          `json:"clientId"`
	Kind     string          `json:"kind"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Buffer keeps the most recent N events for the diagnostic HTTP surface.
type Buffer struct {
	mu     sync.Mutex
	events []Event
	next   int
	filled bool
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{events: make([]Event, capacity)}
}

func (b *Buffer) Add(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[b.next] = ev
	b.next++
	if b.next == len(b.events) {
		b.next = 0
		b.filled = true
	}
}

// Last returns up to n events, oldest first.
func (b *Buffer) Last(n int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := b.next
	if b.filled {
		size = len(b.events)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Event, 0, n)
	start := b.next - n
	if start < 0 {
		start += len(b.events)
	}
	for i := 0; i < n; i++ {
		out = append(out, b.events[(start+i)%len(b.events)])
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filled {
		return len(b.events)
	}
	return b.next
}
