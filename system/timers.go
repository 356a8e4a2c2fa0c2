package system

import (
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/italypaleale/overseer/actor"
	"github.com/italypaleale/overseer/internal/eventqueue"
)

// timerEntry is a scheduled callback, queued by due time.
type timerEntry struct {
	key  string
	due  time.Time
	fire func()
}

// Key implements the queueable interface.
func (e *timerEntry) Key() string {
	return e.key
}

// DueTime implements the queueable interface.
func (e *timerEntry) DueTime() time.Time {
	return e.due
}

// timerService posts messages back into mailboxes at a deadline.
// Delays are never expressed as blocked workers: a delayed send is a timer
// that re-tells later.
type timerService struct {
	clock clock.Clock
	proc  *eventqueue.Processor[string, *timerEntry]
}

func newTimerService(cl clock.Clock) *timerService {
	ts := &timerService{
		clock: cl,
	}
	ts.proc = eventqueue.NewProcessor(eventqueue.Options[string, *timerEntry]{
		ExecuteFn: func(e *timerEntry) {
			e.fire()
		},
		Clock: cl,
	})
	return ts
}

// after schedules fire to be invoked once the delay elapses.
// The returned CancelFunc reports true if the entry was removed before
// firing.
func (ts *timerService) after(delay time.Duration, fire func()) actor.CancelFunc {
	e := &timerEntry{
		key:  uuid.NewString(),
		due:  ts.clock.Now().Add(delay),
		fire: fire,
	}

	err := ts.proc.Enqueue(e)
	if err != nil {
		// Service is closed; the callback will never fire
		return func() bool { return false }
	}

	return func() bool {
		if !ts.proc.Contains(e.key) {
			return false
		}
		return ts.proc.Dequeue(e.key) == nil
	}
}

func (ts *timerService) close() {
	_ = ts.proc.Close()
}
