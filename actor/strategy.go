package actor

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Directive is the action a supervisor applies to a failed actor, or to its
// siblings when the supervision scope is AllForOne.
type Directive uint8

const (
	// DirectiveRestart stops the actor's children, recreates the behavior from
	// its factory, and resumes processing with the mailbox preserved.
	// The message being processed when the failure occurred is dropped.
	DirectiveRestart Directive = iota
	// DirectiveStop stops the actor and, recursively, its children.
	DirectiveStop
	// DirectiveResume drops the failing message and continues processing with
	// the behavior state untouched.
	DirectiveResume
	// DirectiveEscalate re-raises the failure one level up: the supervisor
	// itself is treated as failed, with the same failure kind.
	DirectiveEscalate
)

// String implements fmt.Stringer.
func (d Directive) String() string {
	switch d {
	case DirectiveRestart:
		return "restart"
	case DirectiveStop:
		return "stop"
	case DirectiveResume:
		return "resume"
	case DirectiveEscalate:
		return "escalate"
	default:
		return "invalid"
	}
}

// Scope determines which actors a directive is applied to.
type Scope uint8

const (
	// OneForOne applies the directive to the failing child only.
	OneForOne Scope = iota
	// AllForOne applies the directive to the failing child and all of its
	// live siblings.
	AllForOne
)

// String implements fmt.Stringer.
func (s Scope) String() string {
	if s == AllForOne {
		return "all-for-one"
	}
	return "one-for-one"
}

// Decider maps a failure kind to the directive the supervisor applies.
type Decider func(kind FailureKind) Directive

// Strategy describes how an actor supervises its children.
//
// Every actor in the target set of a single failure event receives the same
// directive: mixed directives across one event are not supported.
type Strategy struct {
	// Scope of the directive: the failing child only, or all of its siblings.
	Scope Scope

	// MaxRestarts is the number of restarts tolerated within Window before a
	// Restart directive is converted into Stop.
	// A negative value allows unlimited restarts; zero converts every Restart
	// into Stop.
	MaxRestarts int

	// Window is the sliding time window for counting restarts.
	// If zero, restarts are counted over the actor's whole lifetime.
	Window time.Duration

	// Decide maps the failure kind to a directive.
	// If nil, DefaultDecider is used.
	Decide Decider

	// RestartBackoff optionally returns a backoff schedule used to delay each
	// restart of a child. The schedule is created per child and reset once the
	// restart window lapses without failures.
	// If nil, restarts are immediate.
	RestartBackoff func() backoff.BackOff

	// PreserveChildrenOnRestart keeps a restarted actor's children alive
	// instead of stopping them. By default restarting loses the whole
	// subtree's state.
	PreserveChildrenOnRestart bool
}

// DefaultDecider restarts actors on transient failures and stops them on
// everything else.
func DefaultDecider(kind FailureKind) Directive {
	if kind.Transient() {
		return DirectiveRestart
	}
	return DirectiveStop
}

// DefaultStrategy is the strategy applied by actors that do not implement
// BehaviorStrategy: one-for-one, at most 10 restarts in 30 seconds, restart
// on transient failures, stop on everything else.
func DefaultStrategy() Strategy {
	return Strategy{
		Scope:       OneForOne,
		MaxRestarts: 10,
		Window:      30 * time.Second,
		Decide:      DefaultDecider,
	}
}

// DecideFor returns the directive the strategy applies for the given kind,
// falling back to DefaultDecider when no decider is configured.
func (s Strategy) DecideFor(kind FailureKind) Directive {
	if s.Decide != nil {
		return s.Decide(kind)
	}
	return DefaultDecider(kind)
}
