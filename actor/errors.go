package actor

import "errors"

var (
	// ErrDuplicateName is returned by Spawn when a live child with the same
	// name already exists under the parent.
	ErrDuplicateName = errors.New("an actor with this name already exists under the parent")
	// ErrInvalidName is returned by Spawn when the name is empty or contains
	// a path separator.
	ErrInvalidName = errors.New("actor name is empty or contains invalid characters")
	// ErrParentNotRunning is returned by Spawn when the parent is stopping,
	// stopped, or restarting.
	ErrParentNotRunning = errors.New("parent actor is not running")
	// ErrSystemStopped is returned by operations performed on a system that
	// has been shut down.
	ErrSystemStopped = errors.New("actor system is shut down")
)
