package system

import (
	"io"
	"log/slog"
	"runtime"
	"time"

	"k8s.io/utils/clock"

	"github.com/italypaleale/overseer/actor"
)

const defaultShutdownGracePeriod = 10 * time.Second

// defaultWorkers is the default size of the dispatcher's worker pool.
var defaultWorkers = runtime.GOMAXPROCS(0)

// Option is a configuration option for New.
type Option func(*newSystemOptions)

// WithLogger sets the instance of the slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *newSystemOptions) { o.Logger = logger }
}

// WithWorkers sets the number of workers in the dispatcher's pool.
// Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *newSystemOptions) { o.Workers = n }
}

// WithGuardianStrategy sets the supervision strategy the root guardian
// applies to top-level actors.
func WithGuardianStrategy(s actor.Strategy) Option {
	return func(o *newSystemOptions) { o.GuardianStrategy = &s }
}

// WithLifecycleHook sets a hook invoked for every lifecycle event.
// The hook is invoked synchronously on dispatcher workers, so it must be
// fast and must not block.
func WithLifecycleHook(fn func(actor.Event)) Option {
	return func(o *newSystemOptions) { o.LifecycleHook = fn }
}

// WithDeadLetterHook sets a hook invoked for every message routed to the
// dead-letter sink.
func WithDeadLetterHook(fn func(actor.DeadLetter)) Option {
	return func(o *newSystemOptions) { o.DeadLetterHook = fn }
}

// WithEventJournal writes every lifecycle event to w, msgpack-encoded.
func WithEventJournal(w io.Writer) Option {
	return func(o *newSystemOptions) { o.JournalWriter = w }
}

// WithShutdownGracePeriod sets how long Shutdown waits for actors to stop
// before force-tearing-down the remainder.
func WithShutdownGracePeriod(d time.Duration) Option {
	return func(o *newSystemOptions) { o.ShutdownGracePeriod = d }
}

// withClock allows setting a clock for testing.
func withClock(cl clock.WithTicker) Option {
	return func(o *newSystemOptions) { o.clock = cl }
}

type newSystemOptions struct {
	Logger              *slog.Logger
	Workers             int
	GuardianStrategy    *actor.Strategy
	LifecycleHook       func(actor.Event)
	DeadLetterHook      func(actor.DeadLetter)
	JournalWriter       io.Writer
	ShutdownGracePeriod time.Duration

	// Allows setting a clock for testing
	clock clock.WithTicker
}
