package system

import (
	"context"
	"log/slog"

	"github.com/italypaleale/overseer/actor"
)

// supervise evaluates a failure raised by c and applies the directive decided
// by its parent's strategy.
//
// The failure record deliberately carries only the failing actor and the
// failure kind: supervisors decide policy without access to the failing
// message or the child's internal state.
func (s *System) supervise(c *actorCell, kind actor.FailureKind) {
	parent := c.parent
	if parent == nil {
		// The failure escalated past the root guardian: fatal for the whole
		// system
		s.log.Error("Failure escalated past the root guardian; shutting down",
			slog.String("kind", kind.String()),
		)
		go s.fatalShutdown()
		return
	}

	directive := parent.strategy.DecideFor(kind)
	s.emitFailure(c.ref, kind, directive)
	s.log.Debug("Supervision directive decided",
		slog.String("path", c.ref.String()),
		slog.String("kind", kind.String()),
		slog.String("directive", directive.String()),
		slog.String("scope", parent.strategy.Scope.String()),
	)

	switch directive {
	case actor.DirectiveResume:
		// The failing message has been dropped; mailbox and behavior state
		// are otherwise untouched. No restart counter increment.
		c.enqueueControl(control{op: ctlResume})

	case actor.DirectiveEscalate:
		// The parent is treated as if it itself failed, with the same kind,
		// and the algorithm re-runs one level up
		parent.enqueueControl(control{op: ctlSuspend})
		s.supervise(parent, kind)

	default:
		// Restart and Stop apply to a target set: the failing child alone
		// under OneForOne, all of its live siblings under AllForOne.
		// Every actor in the set receives the same directive.
		var targets []*actorCell
		if parent.strategy.Scope == actor.AllForOne {
			targets = parent.liveChildren()
		} else {
			targets = []*actorCell{c}
		}

		for _, t := range targets {
			d := directive
			if d == actor.DirectiveRestart && t.registerRestart(parent.strategy) {
				// Exhausted retries convert to termination, never to an
				// unbounded escalate loop
				s.log.Debug("Restart budget exhausted; stopping actor",
					slog.String("path", t.ref.String()),
				)
				d = actor.DirectiveStop
			}

			if d == actor.DirectiveRestart {
				t.enqueueControl(control{op: ctlRestart})
			} else {
				t.requestStop()
			}
		}
	}
}

// fatalShutdown shuts the system down after a failure escalated past the
// root guardian.
// Runs on its own goroutine: Shutdown blocks, and supervise is called from
// dispatcher workers.
func (s *System) fatalShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownGracePeriod)
	defer cancel()

	err := s.Shutdown(ctx)
	if err != nil {
		s.log.Error("Error during fatal shutdown", slog.Any("error", err))
	}
}
