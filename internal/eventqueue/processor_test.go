package eventqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

type queueItem struct {
	key string
	due time.Time
	val int
}

func (i *queueItem) Key() string {
	return i.key
}

func (i *queueItem) DueTime() time.Time {
	return i.due
}

func newTestProcessor(t *testing.T, cl *clocktesting.FakeClock) (*Processor[string, *queueItem], chan *queueItem) {
	t.Helper()

	executed := make(chan *queueItem, 16)
	p := NewProcessor(Options[string, *queueItem]{
		ExecuteFn: func(item *queueItem) {
			executed <- item
		},
		Clock: cl,
	})
	t.Cleanup(func() {
		_ = p.Close()
	})

	return p, executed
}

func TestProcessor_Enqueue(t *testing.T) {
	t.Run("executes when due", func(t *testing.T) {
		cl := clocktesting.NewFakeClock(time.Now())
		p, executed := newTestProcessor(t, cl)

		err := p.Enqueue(&queueItem{key: "a", due: cl.Now().Add(time.Minute)})
		require.NoError(t, err)

		// Nothing fires before the due time
		select {
		case <-executed:
			t.Fatal("Item executed before its due time")
		case <-time.After(100 * time.Millisecond):
		}

		// Wait for the processor to arm its timer, then advance the clock
		assert.Eventually(t, cl.HasWaiters, 3*time.Second, 10*time.Millisecond)
		cl.Step(time.Minute)

		select {
		case item := <-executed:
			assert.Equal(t, "a", item.key)
		case <-time.After(3 * time.Second):
			t.Fatal("Item was not executed in 3s")
		}
	})

	t.Run("item already due executes immediately", func(t *testing.T) {
		cl := clocktesting.NewFakeClock(time.Now())
		p, executed := newTestProcessor(t, cl)

		err := p.Enqueue(&queueItem{key: "past", due: cl.Now().Add(-time.Second)})
		require.NoError(t, err)

		select {
		case item := <-executed:
			assert.Equal(t, "past", item.key)
		case <-time.After(3 * time.Second):
			t.Fatal("Item was not executed in 3s")
		}
	})

	t.Run("executes in due order", func(t *testing.T) {
		cl := clocktesting.NewFakeClock(time.Now())
		p, executed := newTestProcessor(t, cl)

		// Enqueued out of order
		require.NoError(t, p.Enqueue(&queueItem{key: "third", due: cl.Now().Add(3 * time.Minute)}))
		require.NoError(t, p.Enqueue(&queueItem{key: "first", due: cl.Now().Add(1 * time.Minute)}))
		require.NoError(t, p.Enqueue(&queueItem{key: "second", due: cl.Now().Add(2 * time.Minute)}))

		assert.Eventually(t, cl.HasWaiters, 3*time.Second, 10*time.Millisecond)
		cl.Step(3 * time.Minute)

		want := []string{"first", "second", "third"}
		for _, key := range want {
			select {
			case item := <-executed:
				assert.Equal(t, key, item.key)
			case <-time.After(3 * time.Second):
				t.Fatalf("Item %q was not executed in 3s", key)
			}
		}
	})

	t.Run("replaces item with the same key", func(t *testing.T) {
		cl := clocktesting.NewFakeClock(time.Now())
		p, executed := newTestProcessor(t, cl)

		require.NoError(t, p.Enqueue(&queueItem{key: "a", due: cl.Now().Add(time.Minute), val: 1}))
		require.NoError(t, p.Enqueue(&queueItem{key: "a", due: cl.Now().Add(2 * time.Minute), val: 2}))

		assert.Eventually(t, cl.HasWaiters, 3*time.Second, 10*time.Millisecond)
		cl.Step(2 * time.Minute)

		select {
		case item := <-executed:
			assert.Equal(t, 2, item.val)
		case <-time.After(3 * time.Second):
			t.Fatal("Item was not executed in 3s")
		}

		// The replaced item never fires
		select {
		case item := <-executed:
			t.Fatalf("Replaced item executed: %+v", item)
		case <-time.After(200 * time.Millisecond):
		}
	})
}

func TestProcessor_Dequeue(t *testing.T) {
	t.Run("canceled item does not execute", func(t *testing.T) {
		cl := clocktesting.NewFakeClock(time.Now())
		p, executed := newTestProcessor(t, cl)

		require.NoError(t, p.Enqueue(&queueItem{key: "a", due: cl.Now().Add(time.Minute)}))
		require.NoError(t, p.Enqueue(&queueItem{key: "b", due: cl.Now().Add(time.Minute)}))

		require.NoError(t, p.Dequeue("a"))

		assert.Eventually(t, cl.HasWaiters, 3*time.Second, 10*time.Millisecond)
		cl.Step(time.Minute)

		select {
		case item := <-executed:
			assert.Equal(t, "b", item.key)
		case <-time.After(3 * time.Second):
			t.Fatal("Item was not executed in 3s")
		}

		select {
		case item := <-executed:
			t.Fatalf("Canceled item executed: %+v", item)
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("dequeue of unknown key is not an error", func(t *testing.T) {
		cl := clocktesting.NewFakeClock(time.Now())
		p, _ := newTestProcessor(t, cl)

		require.NoError(t, p.Dequeue("missing"))
	})
}

func TestProcessor_Contains(t *testing.T) {
	cl := clocktesting.NewFakeClock(time.Now())
	p, executed := newTestProcessor(t, cl)

	require.NoError(t, p.Enqueue(&queueItem{key: "a", due: cl.Now().Add(time.Minute)}))
	assert.True(t, p.Contains("a"))
	assert.False(t, p.Contains("b"))

	require.NoError(t, p.Dequeue("a"))
	assert.False(t, p.Contains("a"))

	// An executed item is no longer contained
	require.NoError(t, p.Enqueue(&queueItem{key: "c", due: cl.Now().Add(-time.Second)}))
	select {
	case <-executed:
	case <-time.After(3 * time.Second):
		t.Fatal("Item was not executed in 3s")
	}
	assert.False(t, p.Contains("c"))
}

func TestProcessor_Close(t *testing.T) {
	cl := clocktesting.NewFakeClock(time.Now())
	p, _ := newTestProcessor(t, cl)

	require.NoError(t, p.Close())

	err := p.Enqueue(&queueItem{key: "a", due: cl.Now()})
	require.ErrorIs(t, err, ErrProcessorStopped)

	err = p.Dequeue("a")
	require.ErrorIs(t, err, ErrProcessorStopped)

	// Second close is an error but does not panic
	err = p.Close()
	require.ErrorIs(t, err, ErrProcessorStopped)
}
