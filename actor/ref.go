package actor

import "strings"

// PathSeparator separates segments in an actor path.
const PathSeparator = "/"

// Path is the hierarchical identifier of an actor, such as
// "/user/weather-manager/task-7".
// Paths are immutable; a path is unique among live siblings under the same
// parent, and a name can be reused only after the prior occupant has fully
// stopped.
type Path string

// Name returns the last segment of the path.
func (p Path) Name() string {
	s := string(p)
	idx := strings.LastIndex(s, PathSeparator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// Parent returns the path of the parent actor, or an empty path for the root.
func (p Path) Parent() Path {
	s := string(p)
	idx := strings.LastIndex(s, PathSeparator)
	if idx <= 0 {
		return ""
	}
	return Path(s[:idx])
}

// Child returns the path of a child with the given name.
func (p Path) Child(name string) Path {
	return Path(string(p) + PathSeparator + name)
}

// String implements fmt.Stringer.
func (p Path) String() string {
	return string(p)
}

// Ref is a stable, location-independent handle naming an actor.
//
// A Ref never owns the actor's state: it only names it. It remains valid and
// addressable across restarts of the actor; after the actor stops it becomes
// a permanently dead reference, and messages sent to it are absorbed by the
// dead-letter sink, even if the name is later reused by a new actor.
type Ref struct {
	// Hierarchical path of the actor.
	Path Path
	// Unique ID of the incarnation occupying the path.
	// A new actor reusing a stopped actor's name gets a fresh UID, which is
	// what keeps old references permanently dead.
	UID string
	// ID of the actor system the actor belongs to.
	SystemID string
}

// IsZero returns true if the reference is empty, e.g. the absent sender of a
// message sent from outside the actor system.
func (r Ref) IsZero() bool {
	return r == Ref{}
}

// String implements fmt.Stringer.
func (r Ref) String() string {
	return string(r.Path)
}
