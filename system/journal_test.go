package system

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	msgpack "github.com/vmihailenco/msgpack/v5"

	"github.com/italypaleale/overseer/actor"
	"github.com/italypaleale/overseer/internal/testutil"
)

func decodeJournal(t *testing.T, buf *testutil.ConcurrentBuffer) []actor.Event {
	t.Helper()

	dec := msgpack.NewDecoder(bytes.NewReader(buf.Bytes()))
	var events []actor.Event
	for {
		var ev actor.Event
		err := dec.Decode(&ev)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

func TestEventJournal(t *testing.T) {
	t.Run("records the full lifecycle", func(t *testing.T) {
		buf := &testutil.ConcurrentBuffer{}
		rec := &eventRecorder{}
		sys := New(WithLifecycleHook(rec.hook), WithEventJournal(buf))

		ref, err := sys.Spawn(sys.Root(), receiveOnly(nil), "a")
		require.NoError(t, err)
		sys.Stop(ref)
		rec.waitFor(t, actor.EventStopped, "/user/a", 1)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		require.NoError(t, sys.Shutdown(ctx))

		events := decodeJournal(t, buf)

		counts := map[actor.EventType]int{}
		for _, ev := range events {
			if ev.Ref.Path == "/user/a" {
				counts[ev.Type]++
				assert.Equal(t, ref.UID, ev.Ref.UID)
				assert.False(t, ev.Time.IsZero())
			}
		}
		assert.Equal(t, 1, counts[actor.EventStarting])
		assert.Equal(t, 1, counts[actor.EventRunning])
		assert.Equal(t, 1, counts[actor.EventStopping])
		assert.Equal(t, 1, counts[actor.EventStopped])

		// The root guardian's stop closes the journal's stream of events
		last := events[len(events)-1]
		assert.Equal(t, actor.EventStopped, last.Type)
		assert.Equal(t, RootPath, last.Ref.Path)
	})

	t.Run("records failures with kind and directive", func(t *testing.T) {
		buf := &testutil.ConcurrentBuffer{}
		rec := &eventRecorder{}
		sys := New(
			WithLifecycleHook(rec.hook),
			WithEventJournal(buf),
			WithGuardianStrategy(restartStrategy(10, 10*time.Second)),
		)

		ref, err := sys.Spawn(sys.Root(), receiveOnly(func(c actor.Context, msg any) error {
			return actor.Failf(actor.FailureTimeout, "boom")
		}), "a")
		require.NoError(t, err)

		sys.Tell(ref, "boom")
		rec.waitFor(t, actor.EventRunning, "/user/a", 2)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		require.NoError(t, sys.Shutdown(ctx))

		events := decodeJournal(t, buf)

		var failures []actor.Event
		for _, ev := range events {
			if ev.Type == actor.EventFailure {
				failures = append(failures, ev)
			}
		}
		require.Len(t, failures, 1)
		assert.Equal(t, actor.Path("/user/a"), failures[0].Ref.Path)
		assert.Equal(t, actor.FailureTimeout, failures[0].Kind)
		assert.Equal(t, actor.DirectiveRestart, failures[0].Directive)
	})
}
