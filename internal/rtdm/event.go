package rtdm

import (
	"context"
	"time"

	"rtdm/internal/nucleus"
)

// Event is a binary occurrence drivers wait for, typically signalled from an
// interrupt handler.
type Event struct {
	synchBase
}

// NewEvent creates an event, initially pending if pending is true.
func NewEvent(nk *nucleus.Nucleus, pending bool) *Event {
	e := &Event{synchBase: newSynchBase(nk, nucleus.SynchPrio)}
	if pending {
		e.synch.SetFlags(eventPending)
	}
	return e
}

// Destroy wakes every waiter with ErrIdrm. Further waits fail with ErrIdrm.
func (e *Event) Destroy() {
	e.flush(nucleus.InfoRmid)
}

// Signal makes the event pending and wakes all waiters. It may be called
// from interrupt context.
func (e *Event) Signal() {
	e.nk.Lock()
	defer e.nk.Unlock()

	e.synch.SetFlags(eventPending)
	if e.synch.Flush(0) {
		e.nk.Schedule()
	}
}

// Pulse wakes all current waiters without leaving the event pending.
func (e *Event) Pulse() {
	e.flush(0)
}

// Clear drops a pending signal.
func (e *Event) Clear() {
	e.nk.Lock()
	defer e.nk.Unlock()

	e.synch.ClearFlags(eventPending)
}

// Pending reports whether a signal is waiting to be consumed.
func (e *Event) Pending() bool {
	e.nk.Lock()
	defer e.nk.Unlock()

	return e.synch.TestFlags(eventPending)
}

// Wait blocks until the event is signalled.
func (e *Event) Wait(ctx context.Context) error {
	return e.TimedWait(ctx, 0, nil)
}

// TimedWait blocks until the event is signalled or the timeout expires. A
// pending event is consumed without blocking, whatever the timeout.
func (e *Event) TimedWait(ctx context.Context, timeout time.Duration, seq *TimeoutSeq) error {
	t, err := e.enter(ctx, "event wait")
	if err != nil {
		return err
	}

	e.nk.Lock()
	defer e.nk.Unlock()

	if e.deleted() {
		return ErrIdrm
	}
	if e.synch.TestFlags(eventPending) {
		e.synch.ClearFlags(eventPending)
		return nil
	}
	// non-blocking mode
	if timeout < 0 {
		return ErrWouldBlock
	}

	info, err := e.sleep(t, timeout, seq)
	if err != nil {
		return err
	}
	if err := wakeError(info); err != nil {
		return err
	}
	e.synch.ClearFlags(eventPending)
	return nil
}
