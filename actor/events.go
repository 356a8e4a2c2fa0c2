package actor

import "time"

// EventType is the type of a lifecycle event.
type EventType uint8

const (
	// EventStarting is emitted when an actor is spawned.
	EventStarting EventType = iota
	// EventRunning is emitted when an actor completes its start or restart
	// and begins processing messages.
	EventRunning
	// EventFailure is emitted when an actor fails and a directive is decided.
	EventFailure
	// EventRestarting is emitted when a restart directive is applied to an
	// actor.
	EventRestarting
	// EventStopping is emitted when an actor begins stopping.
	EventStopping
	// EventStopped is emitted when an actor has fully stopped.
	EventStopped
)

// String implements fmt.Stringer.
func (t EventType) String() string {
	switch t {
	case EventStarting:
		return "starting"
	case EventRunning:
		return "running"
	case EventFailure:
		return "failure"
	case EventRestarting:
		return "restarting"
	case EventStopping:
		return "stopping"
	case EventStopped:
		return "stopped"
	default:
		return "invalid"
	}
}

// Event is a lifecycle event emitted by the system for observability.
// Events are delivered to the hook configured with WithLifecycleHook and to
// the journal configured with WithEventJournal.
type Event struct {
	// Type of the event.
	Type EventType `msgpack:"type"`
	// Ref of the actor the event refers to.
	Ref Ref `msgpack:"ref"`
	// Kind of the failure; set for EventFailure only.
	Kind FailureKind `msgpack:"kind,omitempty"`
	// Directive decided by the supervisor; set for EventFailure only.
	Directive Directive `msgpack:"directive,omitempty"`
	// Time the event was recorded at.
	Time time.Time `msgpack:"time"`
}
