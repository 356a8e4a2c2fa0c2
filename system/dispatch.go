package system

import "sync"

// dispatcher assigns runnable cells to a fixed pool of workers.
//
// A cell appears at most once in the run queue (deduplicated by the cell's
// scheduled flag), and a worker runs one full turn for it before it can be
// queued again, which guarantees that at most one worker executes a given
// actor's behavior at any instant.
type dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*actorCell
	stopped bool
	wg      sync.WaitGroup
}

func newDispatcher(workers int) *dispatcher {
	d := &dispatcher{}
	d.cond = sync.NewCond(&d.mu)

	d.wg.Add(workers)
	for range workers {
		go d.worker()
	}

	return d
}

// schedule marks the cell runnable.
// Scheduling a cell that is already queued or being processed is a no-op;
// the worker re-checks for pending work at the end of each turn, so no
// wakeup is lost.
func (d *dispatcher) schedule(c *actorCell) {
	if !c.scheduled.CompareAndSwap(false, true) {
		return
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		c.scheduled.Store(false)
		return
	}
	d.queue = append(d.queue, c)
	d.mu.Unlock()

	d.cond.Signal()
}

func (d *dispatcher) worker() {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			// Stopped and drained
			d.mu.Unlock()
			return
		}
		c := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		c.processTurn()

		// Clear the flag before re-checking for work, so a concurrent tell
		// either sees the flag cleared and schedules the cell itself, or
		// enqueued the message early enough for hasWork to observe it
		c.scheduled.Store(false)
		if c.hasWork() {
			d.schedule(c)
		}
	}
}

// stop shuts down the pool after draining the queue, and blocks until all
// workers have exited.
func (d *dispatcher) stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.cond.Broadcast()
	d.wg.Wait()
}
