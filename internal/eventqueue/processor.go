// This code was adapted from https://github.com/dapr/kit/tree/v0.15.4/
// Copyright (C) 2023 The Dapr Authors
// License: Apache2

package eventqueue

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// ErrProcessorStopped is returned by Enqueue and Dequeue after the processor
// has been closed.
var ErrProcessorStopped = errors.New("processor is stopped")

// Queueable is the interface for items that can be added to the queue.
type Queueable[K comparable] interface {
	// Key uniquely identifies the item in the queue.
	Key() K
	// DueTime is the time the item is to be executed at.
	DueTime() time.Time
}

// Options for the NewProcessor method.
type Options[K comparable, T Queueable[K]] struct {
	// ExecuteFn is invoked when an item is due.
	// It is called on the processor's background goroutine, so it should not
	// block for long.
	ExecuteFn func(item T)
	// Clock is the time source; defaults to the real clock.
	Clock clock.Clock
}

// Processor manages the queue of items and processes them at the correct
// time.
type Processor[K comparable, T Queueable[K]] struct {
	executeFn func(item T)
	clock     clock.Clock

	mu      sync.Mutex
	queue   entryHeap[K, T]
	current map[K]uint64
	seq     uint64
	stopped bool

	wakeCh  chan struct{}
	closeCh chan struct{}
}

// NewProcessor returns a new Processor object and starts its background
// goroutine.
func NewProcessor[K comparable, T Queueable[K]](opts Options[K, T]) *Processor[K, T] {
	if opts.Clock == nil {
		opts.Clock = &clock.RealClock{}
	}

	p := &Processor[K, T]{
		executeFn: opts.ExecuteFn,
		clock:     opts.Clock,
		current:   map[K]uint64{},
		wakeCh:    make(chan struct{}, 1),
		closeCh:   make(chan struct{}),
	}

	go p.processLoop()

	return p
}

// Enqueue adds an item to the queue.
// If an item with the same key is already queued, it is replaced.
func (p *Processor[K, T]) Enqueue(item T) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrProcessorStopped
	}

	p.seq++
	e := &entry[K, T]{
		item: item,
		key:  item.Key(),
		due:  item.DueTime(),
		seq:  p.seq,
	}
	// Entries replaced by a newer seq are skipped lazily when popped
	p.current[e.key] = e.seq
	heap.Push(&p.queue, e)
	p.mu.Unlock()

	p.wake()
	return nil
}

// Dequeue removes the item with the given key from the queue.
// Removing a key that isn't queued is not an error.
func (p *Processor[K, T]) Dequeue(key K) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrProcessorStopped
	}

	delete(p.current, key)
	p.mu.Unlock()

	p.wake()
	return nil
}

// Contains returns true if an item with the given key is queued.
func (p *Processor[K, T]) Contains(key K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.current[key]
	return ok
}

// Close stops the processor.
func (p *Processor[K, T]) Close() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrProcessorStopped
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.closeCh)
	return nil
}

func (p *Processor[K, T]) wake() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

func (p *Processor[K, T]) processLoop() {
	for {
		p.mu.Lock()
		if p.stopped {
			p.mu.Unlock()
			return
		}

		e := p.peek()
		if e == nil {
			p.mu.Unlock()

			select {
			case <-p.wakeCh:
				continue
			case <-p.closeCh:
				return
			}
		}

		now := p.clock.Now()
		if !e.due.After(now) {
			heap.Pop(&p.queue)
			delete(p.current, e.key)
			p.mu.Unlock()

			p.executeFn(e.item)
			continue
		}

		d := e.due.Sub(now)
		p.mu.Unlock()

		t := p.clock.NewTimer(d)
		select {
		case <-t.C():
			// Head of the queue is due; re-evaluate
		case <-p.wakeCh:
			// Queue changed; re-evaluate
			t.Stop()
		case <-p.closeCh:
			t.Stop()
			return
		}
	}
}

// peek returns the first current entry in the queue, discarding stale ones.
// Must be called while holding p.mu.
func (p *Processor[K, T]) peek() *entry[K, T] {
	for p.queue.Len() > 0 {
		e := p.queue[0]
		if seq, ok := p.current[e.key]; ok && seq == e.seq {
			return e
		}

		// Entry was removed or replaced
		heap.Pop(&p.queue)
	}
	return nil
}

type entry[K comparable, T Queueable[K]] struct {
	item T
	key  K
	due  time.Time
	seq  uint64
}

type entryHeap[K comparable, T Queueable[K]] []*entry[K, T]

func (h entryHeap[K, T]) Len() int {
	return len(h)
}

func (h entryHeap[K, T]) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h entryHeap[K, T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *entryHeap[K, T]) Push(x any) {
	*h = append(*h, x.(*entry[K, T]))
}

func (h *entryHeap[K, T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
