package actor

import (
	"log/slog"
	"time"
)

// CancelFunc cancels a scheduled message.
// It returns true if the message was canceled before being delivered.
type CancelFunc func() bool

// Context is the runtime interface a behavior uses to interact with the
// system while processing a message.
// A Context is only valid for the duration of the callback it is passed to.
type Context interface {
	// Self returns the reference of the actor processing the message.
	Self() Ref

	// Sender returns the reference of the actor that sent the current
	// message, or a zero Ref if the message was sent from outside the system
	// or the sender was omitted.
	Sender() Ref

	// Log returns a logger annotated with the actor's path.
	Log() *slog.Logger

	// Spawn creates a child of this actor.
	// Returns an error wrapping ErrDuplicateName if a live child with the
	// same name exists.
	Spawn(factory Factory, name string, opts ...SpawnOption) (Ref, error)

	// Tell sends a message to target, with this actor as the sender.
	// It never blocks and never fails: undeliverable messages are routed to
	// the dead-letter sink.
	Tell(target Ref, payload any)

	// TellAfter schedules a message to be sent to target after the given
	// delay, with this actor as the sender. The worker is never blocked:
	// the message is posted back through the target's mailbox at the
	// deadline. Use TellAfter(c.Self(), ...) to implement timeouts.
	TellAfter(target Ref, payload any, delay time.Duration) CancelFunc

	// Watch registers this actor to receive a Terminated message when target
	// stops. Watching an already-stopped actor delivers the notice
	// immediately.
	Watch(target Ref)

	// Unwatch removes a previously registered watch.
	Unwatch(target Ref)

	// Stop requests the asynchronous stop of target, which may be this actor
	// itself. The target finishes its current message, stops its children,
	// and drains the rest of its mailbox to the dead-letter sink.
	Stop(target Ref)
}

// SpawnConfig collects the per-actor configuration applied at spawn.
type SpawnConfig struct {
	// MailboxCapacity bounds the actor's mailbox; zero means unbounded.
	MailboxCapacity int
	// Overflow is the policy applied when a bounded mailbox is full.
	Overflow OverflowPolicy
	// Strategy overrides the supervisor strategy the actor applies to its
	// children, taking precedence over BehaviorStrategy.
	Strategy *Strategy
}

// SpawnOption is a configuration option for Spawn.
type SpawnOption func(*SpawnConfig)

// WithBoundedMailbox gives the actor a bounded mailbox with the given
// capacity and overflow policy.
// The default mailbox is unbounded, matching the fire-and-forget contract of
// Tell.
func WithBoundedMailbox(capacity int, policy OverflowPolicy) SpawnOption {
	return func(c *SpawnConfig) {
		c.MailboxCapacity = capacity
		c.Overflow = policy
	}
}

// WithStrategy sets the supervisor strategy the actor applies to its
// children.
func WithStrategy(s Strategy) SpawnOption {
	return func(c *SpawnConfig) {
		c.Strategy = &s
	}
}

// OverflowPolicy determines what happens when a message is enqueued into a
// full bounded mailbox.
type OverflowPolicy uint8

const (
	// OverflowRejectNewest routes the incoming message to the dead-letter sink.
	OverflowRejectNewest OverflowPolicy = iota
	// OverflowDropOldest evicts the oldest queued message to the dead-letter
	// sink and enqueues the incoming one.
	OverflowDropOldest
)
