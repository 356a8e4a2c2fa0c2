package system

import (
	"io"
	"log/slog"
	"sync"

	msgpack "github.com/vmihailenco/msgpack/v5"

	"github.com/italypaleale/overseer/actor"
)

// eventJournal writes lifecycle events to a stream, msgpack-encoded, for
// external telemetry collectors.
type eventJournal struct {
	mu  sync.Mutex
	w   io.Writer
	log *slog.Logger
}

func newEventJournal(w io.Writer, log *slog.Logger) *eventJournal {
	return &eventJournal{
		w:   w,
		log: log,
	}
}

func (j *eventJournal) record(ev actor.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(j.w)

	err := enc.Encode(ev)
	if err != nil {
		j.log.Warn("Failed to write lifecycle event to journal", slog.Any("error", err))
	}
}
