package system

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/italypaleale/overseer/actor"
	"github.com/italypaleale/overseer/internal/locker"
	"github.com/italypaleale/overseer/internal/mailbox"
)

// Lifecycle states of an actor.
// Stopped is terminal: no transition leaves it.
const (
	stateStarting int32 = iota
	stateRunning
	stateSuspended
	stateRestarting
	stateStopping
	stateStopped
)

func stateName(s int32) string {
	switch s {
	case stateStarting:
		return "starting"
	case stateRunning:
		return "running"
	case stateSuspended:
		return "suspended"
	case stateRestarting:
		return "restarting"
	case stateStopping:
		return "stopping"
	case stateStopped:
		return "stopped"
	default:
		return "invalid"
	}
}

type controlOp uint8

const (
	// Run the PreStart hook and begin processing messages
	ctlStart controlOp = iota
	// Pause message processing pending a supervision directive
	ctlSuspend
	// Resume message processing after a suspension
	ctlResume
	// Begin a restart: stop children, then recreate the behavior
	ctlRestart
	// Recreate the behavior once children are stopped and any backoff elapsed
	ctlCompleteRestart
	// Begin stopping: stop children, then tear down the cell
	ctlStop
	// A child has fully stopped
	ctlChildStopped
)

// control is a signal delivered to a cell out of band of its mailbox.
// Controls are applied at the start of a dispatch turn, before any user
// message is processed.
type control struct {
	op    controlOp
	child *actorCell
}

// actorCell is the private runtime state of one actor: its behavior,
// mailbox, child table, supervisor strategy, watcher set, and restart
// bookkeeping.
//
// The cell's behavior and context are only touched during dispatch turns,
// which are serialized by the scheduled flag and the turn-based locker;
// everything else is guarded by mu or atomic.
type actorCell struct {
	system *System
	ref    actor.Ref
	log    *slog.Logger

	factory  actor.Factory
	behavior actor.Behavior
	mailbox  *mailbox.Mailbox
	ctx      cellContext
	// True once PreStart has completed for the current behavior instance;
	// only touched during dispatch turns
	startDone bool

	// Strategy this actor applies to its children; read-only after spawn
	strategy actor.Strategy

	// Non-owning back-reference, used only to route failures upward and for
	// bookkeeping; nil for the root guardian
	parent *actorCell

	state atomic.Int32

	mu       sync.Mutex
	children map[string]*actorCell
	watchers map[actor.Ref]struct{}
	ctl      []control
	// Children whose termination this cell is waiting on while stopping or
	// restarting
	waitingOn map[*actorCell]struct{}
	// Times of recent restarts, pruned to the supervisor's window
	restartTimes []time.Time
	// Backoff schedule for restarts, created lazily from the supervisor's
	// strategy
	backoff backoff.BackOff

	// True while the cell is in the dispatcher's run queue or being
	// processed; deduplicates scheduling
	scheduled atomic.Bool

	// Execution gate for dispatch turns; stopped when the cell is torn down
	locker locker.TurnBasedLocker
}

func (c *actorCell) enqueueControl(ct control) {
	c.mu.Lock()
	c.ctl = append(c.ctl, ct)
	c.mu.Unlock()

	c.system.dispatcher.schedule(c)
}

func (c *actorCell) popControl() (control, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.ctl) == 0 {
		return control{}, false
	}
	ct := c.ctl[0]
	c.ctl = c.ctl[1:]
	return ct, true
}

func (c *actorCell) requestStop() {
	c.enqueueControl(control{op: ctlStop})
}

// hasWork reports whether the cell needs another dispatch turn.
func (c *actorCell) hasWork() bool {
	st := c.state.Load()
	if st == stateStopped {
		return false
	}

	c.mu.Lock()
	pending := len(c.ctl) > 0
	c.mu.Unlock()
	if pending {
		return true
	}

	return st == stateRunning && c.mailbox.Len() > 0
}

// processTurn performs one dispatch turn: apply pending control signals, then
// process at most one user message.
// At most one worker runs a turn for a given cell at any instant.
func (c *actorCell) processTurn() {
	ok, err := c.locker.TryLock()
	if err != nil || !ok {
		// Cell is torn down, or a force-teardown is draining it
		return
	}
	defer c.locker.Unlock()

	for {
		ct, ok := c.popControl()
		if !ok {
			break
		}
		c.applyControl(ct)
		if c.state.Load() == stateStopped {
			return
		}
	}

	if c.state.Load() != stateRunning {
		// Suspended, restarting, or stopping: user messages stay queued
		return
	}

	env, ok := c.mailbox.Dequeue()
	if !ok {
		return
	}
	c.invoke(env)
}

func (c *actorCell) applyControl(ct control) {
	switch ct.op {
	case ctlStart:
		if c.state.Load() == stateStarting {
			c.runPreStart()
		}
	case ctlSuspend:
		if c.state.Load() == stateRunning {
			c.state.Store(stateSuspended)
		}
	case ctlResume:
		if c.state.Load() == stateSuspended {
			if !c.startDone {
				// The failure came from PreStart: a resume retries the hook
				// rather than running with an incomplete start
				c.runPreStart()
			} else {
				c.state.Store(stateRunning)
			}
		}
	case ctlRestart:
		c.beginRestart()
	case ctlCompleteRestart:
		c.completeRestart()
	case ctlStop:
		c.beginStop()
	case ctlChildStopped:
		c.childStopped(ct.child)
	}
}

// invoke runs the behavior for one message under the failure boundary.
func (c *actorCell) invoke(env mailbox.Envelope) {
	c.ctx.sender = env.Sender
	err := c.guard(func() error {
		return c.behavior.Receive(&c.ctx, env.Payload)
	})
	c.ctx.sender = actor.Ref{}

	if err == nil {
		return
	}

	// The failing message has already been dequeued and is never redelivered.
	// The cell processes no further messages until a directive is applied.
	kind := actor.KindOf(err)
	c.state.Store(stateSuspended)
	c.log.Debug("Actor failed",
		slog.String("kind", kind.String()),
		slog.Any("error", err),
	)
	c.system.supervise(c, kind)
}

// guard converts panics in behavior code into crash failures, so failures
// never unwind across actor boundaries.
func (c *actorCell) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = actor.Failf(actor.FailureCrash, "panic while processing message: %v", r)
		}
	}()
	return fn()
}

// runPreStart runs the optional PreStart hook and moves the cell to Running.
// A failing hook is reported to the supervisor like a message failure.
func (c *actorCell) runPreStart() {
	c.startDone = false
	if ps, ok := c.behavior.(actor.BehaviorPreStart); ok {
		err := c.guard(func() error {
			return ps.PreStart(&c.ctx)
		})
		if err != nil {
			kind := actor.KindOf(err)
			c.state.Store(stateSuspended)
			c.log.Debug("Actor failed in PreStart",
				slog.String("kind", kind.String()),
				slog.Any("error", err),
			)
			c.system.supervise(c, kind)
			return
		}
	}

	c.startDone = true
	c.state.Store(stateRunning)
	c.system.emit(actor.EventRunning, c.ref)
}

// beginRestart starts applying a restart directive: the actor's children are
// stopped first (unless the supervisor preserves them), then the behavior is
// recreated from the original factory.
// The mailbox is preserved across the restart.
func (c *actorCell) beginRestart() {
	switch c.state.Load() {
	case stateRestarting, stateStopping, stateStopped:
		return
	}

	c.state.Store(stateRestarting)
	c.system.emit(actor.EventRestarting, c.ref)
	c.log.Debug("Restarting actor")

	preserve := c.parent != nil && c.parent.strategy.PreserveChildrenOnRestart
	if !preserve && c.stopChildren() {
		// Restart continues in childStopped once all children are stopped
		return
	}

	c.scheduleRestartCompletion()
}

// scheduleRestartCompletion recreates the behavior, after the restart backoff
// if the supervisor configured one.
func (c *actorCell) scheduleRestartCompletion() {
	delay := c.nextRestartDelay()
	if delay <= 0 {
		c.completeRestart()
		return
	}

	c.log.Debug("Delaying restart", slog.Duration("delay", delay))
	c.system.timers.after(delay, func() {
		c.enqueueControl(control{op: ctlCompleteRestart})
	})
}

func (c *actorCell) nextRestartDelay() time.Duration {
	if c.parent == nil || c.parent.strategy.RestartBackoff == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backoff == nil {
		c.backoff = c.parent.strategy.RestartBackoff()
	}

	d := c.backoff.NextBackOff()
	if d == backoff.Stop {
		// Schedule exhausted; restart immediately
		return 0
	}
	return d
}

func (c *actorCell) completeRestart() {
	if c.state.Load() != stateRestarting {
		// A stop overtook the restart
		return
	}

	c.behavior = c.factory()
	c.runPreStart()
}

// beginStop starts the post-order stop cascade: children are stopped first,
// then the cell itself is torn down.
func (c *actorCell) beginStop() {
	switch c.state.Load() {
	case stateStopping, stateStopped:
		return
	}

	c.state.Store(stateStopping)
	c.system.emit(actor.EventStopping, c.ref)
	c.log.Debug("Stopping actor")

	if c.stopChildren() {
		// Stop completes in childStopped once all children are stopped
		return
	}

	c.finalizeStop()
}

// stopChildren requests the stop of every live child and returns true if
// there is at least one child to wait for.
func (c *actorCell) stopChildren() bool {
	c.mu.Lock()
	c.waitingOn = make(map[*actorCell]struct{}, len(c.children))
	targets := make([]*actorCell, 0, len(c.children))
	for _, child := range c.children {
		if child.state.Load() == stateStopped {
			continue
		}
		c.waitingOn[child] = struct{}{}
		targets = append(targets, child)
	}
	n := len(targets)
	c.mu.Unlock()

	for _, child := range targets {
		child.requestStop()
	}

	return n > 0
}

// childStopped updates the child table and, if the cell is stopping or
// restarting, continues once the last awaited child has stopped.
func (c *actorCell) childStopped(child *actorCell) {
	c.mu.Lock()
	name := child.ref.Path.Name()
	if c.children[name] == child {
		delete(c.children, name)
	}
	done := false
	if c.waitingOn != nil {
		delete(c.waitingOn, child)
		if len(c.waitingOn) == 0 {
			c.waitingOn = nil
			done = true
		}
	}
	c.mu.Unlock()

	if !done {
		return
	}

	switch c.state.Load() {
	case stateStopping:
		c.finalizeStop()
	case stateRestarting:
		c.scheduleRestartCompletion()
	}
}

// finalizeStop tears the cell down: runs the PostStop hook, frees the name,
// drains the mailbox to dead letters, and delivers death-watch notices.
// Runs within the cell's final dispatch turn.
func (c *actorCell) finalizeStop() {
	if ps, ok := c.behavior.(actor.BehaviorPostStop); ok {
		// Hook panics must not stop the teardown
		_ = c.guard(func() error {
			ps.PostStop(&c.ctx)
			return nil
		})
	}

	c.state.Store(stateStopped)

	// No further turns can begin; the current one completes normally
	c.locker.Stop()

	// Free the path and the name under the parent, so the name can be reused
	c.system.cells.Del(string(c.ref.Path))
	if c.parent != nil {
		c.parent.removeChild(c)
	}

	// Undelivered messages are redirected to the dead-letter sink rather than
	// lost silently
	for _, env := range c.mailbox.Close() {
		c.system.deadLetters.deliver(actor.DeadLetter{
			Target:  c.ref,
			Sender:  env.Sender,
			Payload: env.Payload,
			Reason:  "actor stopped",
		})
	}

	// Death-watch notices, delivered as ordinary messages
	c.mu.Lock()
	watchers := make([]actor.Ref, 0, len(c.watchers))
	for w := range c.watchers {
		watchers = append(watchers, w)
	}
	c.watchers = nil
	c.mu.Unlock()
	for _, w := range watchers {
		c.system.tellAs(w, actor.Terminated{Ref: c.ref}, c.ref)
	}

	c.system.emit(actor.EventStopped, c.ref)
	c.log.Debug("Actor stopped")

	if c.parent != nil {
		c.parent.enqueueControl(control{op: ctlChildStopped, child: c})
	} else {
		c.system.rootStopped()
	}
}

// forceStop destroys the cell without running stop hooks or notifying
// watchers.
// Used only by the system's force teardown after the shutdown grace period.
func (c *actorCell) forceStop() {
	if c.state.Load() == stateStopped {
		return
	}

	// Bar new turns and wait for the in-flight message, if any
	c.locker.StopAndWait()

	c.state.Store(stateStopped)
	c.system.cells.Del(string(c.ref.Path))

	for _, env := range c.mailbox.Close() {
		c.system.deadLetters.deliver(actor.DeadLetter{
			Target:  c.ref,
			Sender:  env.Sender,
			Payload: env.Payload,
			Reason:  "actor system torn down",
		})
	}
}

func (c *actorCell) removeChild(child *actorCell) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := child.ref.Path.Name()
	if c.children[name] == child {
		delete(c.children, name)
	}
}

func (c *actorCell) liveChildren() []*actorCell {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*actorCell, 0, len(c.children))
	for _, child := range c.children {
		if child.state.Load() != stateStopped {
			out = append(out, child)
		}
	}
	return out
}

// addWatcher registers a watcher, returning false if the cell has already
// stopped and the notice must be delivered immediately.
func (c *actorCell) addWatcher(w actor.Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Load() == stateStopped || c.watchers == nil {
		return false
	}
	c.watchers[w] = struct{}{}
	return true
}

func (c *actorCell) removeWatcher(w actor.Ref) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watchers != nil {
		delete(c.watchers, w)
	}
}

// registerRestart records a restart attempt for this cell and reports
// whether the supervisor's restart budget is exhausted, in which case the
// restart is converted into a stop.
// Restart counters persist across restarts within the same window.
func (c *actorCell) registerRestart(strat actor.Strategy) (exhausted bool) {
	now := c.system.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if strat.Window > 0 {
		cutoff := now.Add(-strat.Window)
		var i int
		for _, t := range c.restartTimes {
			if t.After(cutoff) {
				c.restartTimes[i] = t
				i++
			}
		}
		if i == 0 && len(c.restartTimes) > 0 && c.backoff != nil {
			// The window lapsed without failures: restart the backoff
			// schedule from the beginning
			c.backoff.Reset()
		}
		c.restartTimes = c.restartTimes[:i]
	}

	c.restartTimes = append(c.restartTimes, now)

	if strat.MaxRestarts < 0 {
		return false
	}
	return len(c.restartTimes) > strat.MaxRestarts
}
