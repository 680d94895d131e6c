package rtdm

import (
	"context"
	"time"

	"rtdm/internal/nucleus"
)

// Status bits layered on the nucleus Synch.
const (
	synchDeleted = nucleus.SynchSpare0 // set once, never cleared
	eventPending = nucleus.SynchSpare1
)

// synchBase is the wait queue and status word shared by Event, Sem and Mutex.
type synchBase struct {
	nk    *nucleus.Nucleus
	synch *nucleus.Synch
}

func newSynchBase(nk *nucleus.Nucleus, flags nucleus.SynchFlags) synchBase {
	return synchBase{nk: nk, synch: nk.NewSynch(flags)}
}

// enter returns the calling thread, or ErrNotPermitted if ctx cannot block.
func (b *synchBase) enter(ctx context.Context, op string) (*nucleus.Thread, error) {
	if !nucleus.Blockable(ctx) {
		b.nk.Logger().Warn("blocking call from unblockable context", "op", op, "irq", nucleus.InIRQ(ctx))
		return nil, ErrNotPermitted
	}
	return nucleus.CurrentThread(ctx), nil
}

// deleted reports whether the primitive was destroyed. Lock held.
func (b *synchBase) deleted() bool {
	return b.synch.TestFlags(synchDeleted)
}

// sleep blocks t on the wait queue for the effective timeout and returns why
// it was resumed. Lock held.
func (b *synchBase) sleep(t *nucleus.Thread, timeout time.Duration, seq *TimeoutSeq) (nucleus.Info, error) {
	ticks, err := timeoutTicks(b.nk, timeout, seq)
	if err != nil {
		return 0, err
	}
	return b.synch.SleepOn(t, ticks), nil
}

// flush wakes every waiter with reason. A removal reason marks the primitive
// deleted for good, so that late waiters fail instead of blocking.
func (b *synchBase) flush(reason nucleus.Info) {
	b.nk.Lock()
	defer b.nk.Unlock()

	b.flushLocked(reason)
}

func (b *synchBase) flushLocked(reason nucleus.Info) {
	if reason&nucleus.InfoRmid != 0 {
		b.synch.SetFlags(synchDeleted)
	}
	if b.synch.Flush(reason) {
		b.nk.Schedule()
	}
}

// Waiters returns the number of tasks blocked on the primitive.
func (b *synchBase) Waiters() int {
	b.nk.Lock()
	defer b.nk.Unlock()

	return b.synch.Waiters()
}
