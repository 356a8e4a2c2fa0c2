// Package system implements the overseer actor runtime: the actor hierarchy,
// mailbox dispatch, hierarchical fault supervision, death watch, and the
// shutdown protocol.
package system

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/italypaleale/overseer/actor"
	"github.com/italypaleale/overseer/internal/mailbox"
)

const (
	defaultCellsMapSize = 128
	// RootPath is the path of the root guardian, the ancestor of every
	// user-spawned actor.
	RootPath = actor.Path("/user")
)

// ErrShutdownTimeout is returned by Shutdown when actors did not stop within
// the grace period and were force-torn-down.
var ErrShutdownTimeout = errors.New("timed out waiting for actors to stop")

// System is the process-wide root of an actor hierarchy.
// It owns the path namespace, the dispatcher, the timer service, and the
// dead-letter sink. Multiple independent systems can coexist in the same
// process.
type System struct {
	// Unique ID of this system, part of every Ref it issues
	id string

	root       *actorCell
	cells      *haxmap.Map[string, *actorCell]
	dispatcher *dispatcher
	timers     *timerService

	deadLetters   *deadLetterSink
	lifecycleHook func(actor.Event)
	journal       *eventJournal

	shutdownGracePeriod time.Duration

	running    atomic.Bool
	stoppedCh  chan struct{}
	stopOnce   sync.Once
	finishOnce sync.Once

	log   *slog.Logger
	clock clock.WithTicker
}

// New returns a new actor system with its root guardian and worker pool
// started.
func New(opts ...Option) *System {
	o := newSystemOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	// Set a default logger, which sends logs to /dev/null, if none is passed
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	// Init a real clock if none is passed
	if o.clock == nil {
		o.clock = &clock.RealClock{}
	}

	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.ShutdownGracePeriod <= 0 {
		o.ShutdownGracePeriod = defaultShutdownGracePeriod
	}

	guardianStrategy := actor.DefaultStrategy()
	if o.GuardianStrategy != nil {
		guardianStrategy = *o.GuardianStrategy
	}

	s := &System{
		id:                  uuid.NewString(),
		cells:               haxmap.New[string, *actorCell](defaultCellsMapSize),
		shutdownGracePeriod: o.ShutdownGracePeriod,
		lifecycleHook:       o.LifecycleHook,
		stoppedCh:           make(chan struct{}),
		log:                 o.Logger,
		clock:               o.clock,
	}
	s.deadLetters = &deadLetterSink{
		log:  s.log,
		hook: o.DeadLetterHook,
	}
	if o.JournalWriter != nil {
		s.journal = newEventJournal(o.JournalWriter, s.log)
	}
	s.timers = newTimerService(s.clock)
	s.dispatcher = newDispatcher(o.Workers)

	s.root = s.newRootGuardian(guardianStrategy)
	s.cells.Set(string(RootPath), s.root)

	s.running.Store(true)
	s.log.Debug("Actor system started", slog.String("systemId", s.id), slog.Int("workers", o.Workers))

	return s
}

// newRootGuardian creates the cell at the root of the hierarchy.
// The guardian supervises all top-level actors; a failure escalated past it
// is fatal for the whole system.
func (s *System) newRootGuardian(strategy actor.Strategy) *actorCell {
	factory := func() actor.Behavior {
		return rootGuardian{}
	}

	c := &actorCell{
		system:   s,
		factory:  factory,
		behavior: factory(),
		mailbox:  mailbox.New(),
		strategy: strategy,
		children: map[string]*actorCell{},
		watchers: map[actor.Ref]struct{}{},
	}
	c.ref = actor.Ref{
		Path:     RootPath,
		UID:      uuid.NewString(),
		SystemID: s.id,
	}
	c.log = s.log.With(slog.String("path", c.ref.String()))
	c.ctx = cellContext{cell: c}
	c.state.Store(stateRunning)

	return c
}

// ID returns the unique ID of this system.
func (s *System) ID() string {
	return s.id
}

// Root returns the reference of the root guardian, used as the parent for
// top-level actors.
func (s *System) Root() actor.Ref {
	return s.root.ref
}

// Spawn creates a new actor as a child of parent.
// The actor's path is the parent's path extended with name.
// Returns an error wrapping actor.ErrDuplicateName if a live child with the
// same name already exists under the parent.
func (s *System) Spawn(parent actor.Ref, factory actor.Factory, name string, opts ...actor.SpawnOption) (actor.Ref, error) {
	if !s.running.Load() {
		return actor.Ref{}, actor.ErrSystemStopped
	}

	p := s.resolve(parent)
	if p == nil {
		return actor.Ref{}, fmt.Errorf("cannot spawn %q: %w", name, actor.ErrParentNotRunning)
	}

	return s.spawnChild(p, factory, name, opts...)
}

func (s *System) spawnChild(parent *actorCell, factory actor.Factory, name string, opts ...actor.SpawnOption) (actor.Ref, error) {
	if name == "" || strings.Contains(name, actor.PathSeparator) {
		return actor.Ref{}, fmt.Errorf("cannot spawn %q: %w", name, actor.ErrInvalidName)
	}

	var cfg actor.SpawnConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	// The behavior is created before reserving the name, so the factory runs
	// outside of any lock
	behavior := factory()

	strategy := actor.DefaultStrategy()
	switch {
	case cfg.Strategy != nil:
		strategy = *cfg.Strategy
	default:
		if bs, ok := behavior.(actor.BehaviorStrategy); ok {
			strategy = bs.SupervisorStrategy()
		}
	}

	var mb *mailbox.Mailbox
	if cfg.MailboxCapacity > 0 {
		mb = mailbox.NewBounded(cfg.MailboxCapacity, cfg.Overflow)
	} else {
		mb = mailbox.New()
	}

	c := &actorCell{
		system:   s,
		factory:  factory,
		behavior: behavior,
		mailbox:  mb,
		strategy: strategy,
		parent:   parent,
		children: map[string]*actorCell{},
		watchers: map[actor.Ref]struct{}{},
	}

	// Reserve the name under the parent
	parent.mu.Lock()
	switch parent.state.Load() {
	case stateStopping, stateStopped, stateRestarting:
		parent.mu.Unlock()
		return actor.Ref{}, fmt.Errorf("cannot spawn %q: %w", name, actor.ErrParentNotRunning)
	}
	if _, ok := parent.children[name]; ok {
		parent.mu.Unlock()
		return actor.Ref{}, fmt.Errorf("cannot spawn %q: %w", name, actor.ErrDuplicateName)
	}
	path := parent.ref.Path.Child(name)
	c.ref = actor.Ref{
		Path:     path,
		UID:      uuid.NewString(),
		SystemID: s.id,
	}
	parent.children[name] = c
	parent.mu.Unlock()

	c.log = s.log.With(slog.String("path", path.String()))
	c.ctx = cellContext{cell: c}
	s.cells.Set(string(path), c)

	s.emit(actor.EventStarting, c.ref)
	c.enqueueControl(control{op: ctlStart})

	return c.ref, nil
}

// Tell sends a message to target with no sender.
// It never blocks and never fails: undeliverable messages are routed to the
// dead-letter sink.
func (s *System) Tell(target actor.Ref, payload any) {
	s.tellAs(target, payload, actor.Ref{})
}

func (s *System) tellAs(target actor.Ref, payload any, sender actor.Ref) {
	c := s.resolve(target)
	if c == nil {
		s.deadLetters.deliver(actor.DeadLetter{
			Target:  target,
			Sender:  sender,
			Payload: payload,
			Reason:  "actor not found or stopped",
		})
		return
	}

	accepted, evicted := c.mailbox.Enqueue(mailbox.Envelope{
		Payload: payload,
		Sender:  sender,
	})
	if evicted != nil {
		s.deadLetters.deliver(actor.DeadLetter{
			Target:  target,
			Sender:  evicted.Sender,
			Payload: evicted.Payload,
			Reason:  "evicted from bounded mailbox",
		})
	}
	if !accepted {
		s.deadLetters.deliver(actor.DeadLetter{
			Target:  target,
			Sender:  sender,
			Payload: payload,
			Reason:  "mailbox rejected the message",
		})
		return
	}

	s.dispatcher.schedule(c)
}

// TellAfter schedules a message to be sent to target after the given delay,
// with no sender.
// The returned CancelFunc cancels the delivery; it returns true if the
// message had not been delivered yet.
func (s *System) TellAfter(target actor.Ref, payload any, delay time.Duration) actor.CancelFunc {
	return s.tellAfterAs(target, payload, delay, actor.Ref{})
}

func (s *System) tellAfterAs(target actor.Ref, payload any, delay time.Duration, sender actor.Ref) actor.CancelFunc {
	if delay <= 0 {
		s.tellAs(target, payload, sender)
		return func() bool { return false }
	}

	return s.timers.after(delay, func() {
		s.tellAs(target, payload, sender)
	})
}

// Watch registers watcher to receive a Terminated message when target stops.
// Watching an already-stopped actor delivers the notice immediately.
func (s *System) Watch(watcher actor.Ref, target actor.Ref) {
	c := s.resolve(target)
	if c == nil || !c.addWatcher(watcher) {
		// Target is already stopped: deliver the notice immediately
		s.tellAs(watcher, actor.Terminated{Ref: target}, target)
	}
}

// Unwatch removes a previously registered watch.
// An unwatch racing with the target stopping may still deliver one
// Terminated message.
func (s *System) Unwatch(watcher actor.Ref, target actor.Ref) {
	c := s.resolve(target)
	if c != nil {
		c.removeWatcher(watcher)
	}
}

// Stop requests the asynchronous stop of target.
// The target finishes its current message, stops its children, and drains
// the rest of its mailbox to the dead-letter sink.
func (s *System) Stop(target actor.Ref) {
	c := s.resolve(target)
	if c == nil {
		return
	}
	c.requestStop()
}

// Lookup returns the reference of the live actor at the given path.
func (s *System) Lookup(path actor.Path) (actor.Ref, bool) {
	c, ok := s.cells.Get(string(path))
	if !ok || c.state.Load() == stateStopped {
		return actor.Ref{}, false
	}
	return c.ref, true
}

// DeadLetterCount returns the number of messages routed to the dead-letter
// sink since the system started.
func (s *System) DeadLetterCount() uint64 {
	return s.deadLetters.total()
}

// Shutdown stops the root guardian and waits for the stop to cascade through
// the whole hierarchy.
// It blocks until every actor has stopped, the context is canceled, or the
// configured grace period elapses; in the latter two cases remaining actors
// are force-torn-down without running their stop hooks, and an error is
// returned.
func (s *System) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		// Another shutdown is in progress (or done): wait for it
		select {
		case <-s.stoppedCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.log.Info("Shutting down actor system", slog.String("systemId", s.id))
	s.root.requestStop()

	t := s.clock.NewTimer(s.shutdownGracePeriod)
	defer t.Stop()

	var err error
	select {
	case <-s.stoppedCh:
	case <-ctx.Done():
		err = ctx.Err()
		s.forceTeardown()
	case <-t.C():
		err = ErrShutdownTimeout
		s.forceTeardown()
	}

	s.finish()
	return err
}

// rootStopped is invoked when the root guardian finishes stopping, i.e. when
// every actor in the hierarchy has stopped.
func (s *System) rootStopped() {
	s.stopOnce.Do(func() {
		close(s.stoppedCh)
	})
}

// forceTeardown destroys every remaining cell without running stop hooks.
// In-flight messages are drained first, so no behavior is executing when this
// returns.
func (s *System) forceTeardown() {
	s.log.Warn("Forcing teardown of remaining actors")

	s.cells.ForEach(func(_ string, c *actorCell) bool {
		c.forceStop()
		return true
	})

	s.stopOnce.Do(func() {
		close(s.stoppedCh)
	})
}

func (s *System) finish() {
	s.finishOnce.Do(func() {
		s.dispatcher.stop()
		s.timers.close()
		s.log.Info("Actor system stopped", slog.String("systemId", s.id))
	})
}

// resolve returns the live cell currently addressed by ref, or nil if the
// ref is foreign, dead, or its path is now occupied by a different
// incarnation.
func (s *System) resolve(ref actor.Ref) *actorCell {
	if ref.IsZero() || ref.SystemID != s.id {
		return nil
	}

	c, ok := s.cells.Get(string(ref.Path))
	if !ok || c.ref.UID != ref.UID {
		return nil
	}
	if c.state.Load() == stateStopped {
		return nil
	}

	return c
}

// emit records a lifecycle event for the hook and the journal.
func (s *System) emit(t actor.EventType, ref actor.Ref) {
	s.emitEvent(actor.Event{
		Type: t,
		Ref:  ref,
	})
}

func (s *System) emitFailure(ref actor.Ref, kind actor.FailureKind, directive actor.Directive) {
	s.emitEvent(actor.Event{
		Type:      actor.EventFailure,
		Ref:       ref,
		Kind:      kind,
		Directive: directive,
	})
}

func (s *System) emitEvent(ev actor.Event) {
	ev.Time = s.clock.Now()

	if s.journal != nil {
		s.journal.record(ev)
	}
	if s.lifecycleHook != nil {
		s.lifecycleHook(ev)
	}
}

// rootGuardian is the behavior of the root of the hierarchy.
// It absorbs death-watch notices and ignores everything else.
type rootGuardian struct{}

func (rootGuardian) Receive(c actor.Context, msg any) error {
	switch m := msg.(type) {
	case actor.Terminated:
		c.Log().Debug("Watched actor terminated", slog.String("target", m.Ref.String()))
	default:
		// The guardian has no user messages
	}
	return nil
}
