// Package mailbox implements the per-actor message queue.
// A mailbox is safe for concurrent producers; the dispatcher is the only
// consumer.
package mailbox

import (
	"sync"

	"github.com/italypaleale/overseer/actor"
)

// Envelope is a message queued in a mailbox.
type Envelope struct {
	// Payload of the message. Payloads are opaque to the runtime, which never
	// inspects or mutates them.
	Payload any
	// Sender of the message; zero if sent from outside the system.
	Sender actor.Ref
}

// Mailbox is a FIFO queue of envelopes owned by one actor.
// The default mailbox is unbounded; bounded mailboxes apply an overflow
// policy when full.
type Mailbox struct {
	mu       sync.Mutex
	queue    []Envelope
	capacity int
	overflow actor.OverflowPolicy
	closed   bool
}

// New returns a new unbounded mailbox.
func New() *Mailbox {
	return &Mailbox{}
}

// NewBounded returns a new mailbox that holds at most capacity messages.
// If capacity is zero or negative, the mailbox is unbounded.
func NewBounded(capacity int, overflow actor.OverflowPolicy) *Mailbox {
	if capacity < 0 {
		capacity = 0
	}
	return &Mailbox{
		capacity: capacity,
		overflow: overflow,
	}
}

// Enqueue appends an envelope to the queue.
// accepted is false if the envelope was not queued, because the mailbox is
// closed or full with the OverflowRejectNewest policy.
// evicted is the oldest envelope, removed to make room under the
// OverflowDropOldest policy; the caller routes it to the dead-letter sink.
func (m *Mailbox) Enqueue(e Envelope) (accepted bool, evicted *Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, nil
	}

	if m.capacity > 0 && len(m.queue) >= m.capacity {
		if m.overflow == actor.OverflowRejectNewest {
			return false, nil
		}

		// Evict the oldest message to make room
		ev := m.queue[0]
		m.queue = m.queue[1:]
		m.queue = append(m.queue, e)
		return true, &ev
	}

	m.queue = append(m.queue, e)
	return true, nil
}

// Dequeue removes and returns the oldest envelope.
func (m *Mailbox) Dequeue() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return Envelope{}, false
	}

	e := m.queue[0]
	m.queue = m.queue[1:]
	return e, true
}

// Len returns the number of queued envelopes.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.queue)
}

// Close marks the mailbox as closed and returns all queued envelopes, so the
// caller can route them to the dead-letter sink.
// Envelopes enqueued after Close are rejected.
func (m *Mailbox) Close() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	drained := m.queue
	m.queue = nil
	return drained
}
