package system

import (
	"log/slog"
	"sync/atomic"

	"github.com/italypaleale/overseer/actor"
)

// deadLetterSink absorbs messages that could not be delivered to a live
// actor: tells to dead references, mailbox overflows, and mailboxes drained
// when an actor stops.
// Dead letters are observable for diagnostics but never surface as errors to
// senders: tell is fire-and-forget by contract.
type deadLetterSink struct {
	log   *slog.Logger
	hook  func(actor.DeadLetter)
	count atomic.Uint64
}

func (d *deadLetterSink) deliver(dl actor.DeadLetter) {
	d.count.Add(1)

	d.log.Debug("Message routed to dead letters",
		slog.String("target", dl.Target.String()),
		slog.String("sender", dl.Sender.String()),
		slog.String("reason", dl.Reason),
	)

	if d.hook != nil {
		d.hook(dl)
	}
}

func (d *deadLetterSink) total() uint64 {
	return d.count.Load()
}
