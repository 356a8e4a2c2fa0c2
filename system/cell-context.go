package system

import (
	"log/slog"
	"time"

	"github.com/italypaleale/overseer/actor"
)

// cellContext implements actor.Context for one cell.
// It is reused across dispatch turns; only the owning worker touches it.
type cellContext struct {
	cell   *actorCell
	sender actor.Ref
}

func (cc *cellContext) Self() actor.Ref {
	return cc.cell.ref
}

func (cc *cellContext) Sender() actor.Ref {
	return cc.sender
}

func (cc *cellContext) Log() *slog.Logger {
	return cc.cell.log
}

func (cc *cellContext) Spawn(factory actor.Factory, name string, opts ...actor.SpawnOption) (actor.Ref, error) {
	return cc.cell.system.spawnChild(cc.cell, factory, name, opts...)
}

func (cc *cellContext) Tell(target actor.Ref, payload any) {
	cc.cell.system.tellAs(target, payload, cc.cell.ref)
}

func (cc *cellContext) TellAfter(target actor.Ref, payload any, delay time.Duration) actor.CancelFunc {
	return cc.cell.system.tellAfterAs(target, payload, delay, cc.cell.ref)
}

func (cc *cellContext) Watch(target actor.Ref) {
	cc.cell.system.Watch(cc.cell.ref, target)
}

func (cc *cellContext) Unwatch(target actor.Ref) {
	cc.cell.system.Unwatch(cc.cell.ref, target)
}

func (cc *cellContext) Stop(target actor.Ref) {
	cc.cell.system.Stop(target)
}
