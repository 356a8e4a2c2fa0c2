// Package actor contains the public contracts of the overseer runtime:
// behaviors, references, supervision strategies, and the message and event
// types exchanged with the system.
package actor

// Behavior processes the messages delivered to a single actor.
// The runtime guarantees that Receive is never invoked concurrently for the
// same actor, so behavior state needs no locking.
//
// Returning a non-nil error reports a failure to the actor's supervisor. Wrap
// the error with NewFailure (or return a *Failure) to control how the
// supervisor classifies it; plain errors are classified as FailureUnknown,
// and panics as FailureCrash.
type Behavior interface {
	Receive(c Context, msg any) error
}

// Factory initializes a new behavior instance.
// It is called when the actor is spawned, and again each time the actor is
// restarted by its supervisor.
type Factory func() Behavior

// BehaviorPreStart can be implemented by behaviors that want a callback
// before the first message is processed.
// It is invoked after every (re)creation of the behavior, including restarts.
type BehaviorPreStart interface {
	Behavior

	// PreStart is called before the actor processes its first message.
	// A non-nil error is reported to the supervisor like a message failure.
	PreStart(c Context) error
}

// BehaviorPostStop can be implemented by behaviors that want a callback when
// the actor stops.
// It is not invoked when the system force-tears-down actors at the end of the
// shutdown grace period.
type BehaviorPostStop interface {
	Behavior

	// PostStop is called after the actor has processed its last message.
	PostStop(c Context)
}

// BehaviorStrategy can be implemented by behaviors that supervise children
// with a non-default strategy.
// The strategy is read once, when the actor is spawned; it is not re-read on
// restarts.
type BehaviorStrategy interface {
	Behavior

	// SupervisorStrategy returns the strategy applied to the actor's children.
	SupervisorStrategy() Strategy
}
