package actor

// Terminated is the death-watch notice delivered to watchers when the watched
// actor stops. It is an ordinary message, processed like any other.
// Each watcher receives at most one Terminated per watch registration.
type Terminated struct {
	// Ref of the stopped actor.
	Ref Ref
}

// DeadLetter describes a message that could not be delivered to a live actor.
type DeadLetter struct {
	// Target the message was addressed to.
	Target Ref
	// Sender of the message, if any.
	Sender Ref
	// Payload of the message.
	Payload any
	// Reason the message was undeliverable.
	Reason string
}
