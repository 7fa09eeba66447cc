// Package hub fans out selection events to streaming subscribers.
package hub

import "sync"

// DefaultBufferCap is the number of recent events replayed to new
// subscribers.
const DefaultBufferCap = 100

// ring is a fixed-capacity buffer of the most recent events.
type ring struct {
	buf []string
	pos int // next write position once full
}

// events returns the buffered events in order from oldest to newest.
func (r *ring) events() []string {
	n := len(r.buf)
	if n < cap(r.buf) || r.pos == 0 {
		out := make([]string, n)
		copy(out, r.buf)
		return out
	}
	// Buffer has wrapped: pos points to the oldest entry.
	out := make([]string, n)
	copy(out, r.buf[r.pos:])
	copy(out[n-r.pos:], r.buf[:r.pos])
	return out
}

// append adds an event, evicting the oldest once full. O(1).
func (r *ring) append(event string) {
	if len(r.buf) < cap(r.buf) {
		r.buf = append(r.buf, event)
		return
	}
	r.buf[r.pos] = event
	r.pos = (r.pos + 1) % cap(r.buf)
}

// Hub fans out events to every subscriber. It buffers the most recent
// events so late-joining clients see recent history before live events.
type Hub struct {
	mu      sync.Mutex
	recent  ring
	clients map[chan string]struct{}
	closed  bool
}

// New creates a Hub that replays up to capacity events. A non-positive
// capacity selects DefaultBufferCap.
func New(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultBufferCap
	}
	return &Hub{
		recent:  ring{buf: make([]string, 0, capacity)},
		clients: make(map[chan string]struct{}),
	}
}

// Publish records event and sends it to all current subscribers.
func (h *Hub) Publish(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.recent.append(event)

	// Non-blocking send so a slow consumer cannot stall publishing.
	for ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel that first receives the buffered events and
// then live ones, plus an unsubscribe function. After Close the channel is
// closed once the buffer has been delivered.
func (h *Hub) Subscribe() (<-chan string, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan string, cap(h.recent.buf)+64)
	for _, event := range h.recent.events() {
		ch <- event
	}

	if h.closed {
		close(ch)
		return ch, func() {}
	}

	h.clients[ch] = struct{}{}

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close stops the hub and closes every subscriber channel. Later Publish
// calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		close(ch)
	}
	h.clients = map[chan string]struct{}{}
}
