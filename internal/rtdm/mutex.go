package rtdm

import (
	"context"
	"time"

	"rtdm/internal/nucleus"
)

// Mutex is a non-recursive lock owned by a task. Waiters are queued by
// priority and the owner inherits the priority of its top waiter.
type Mutex struct {
	synchBase
}

// NewMutex creates an unlocked mutex.
func NewMutex(nk *nucleus.Nucleus) *Mutex {
	return &Mutex{synchBase: newSynchBase(nk, nucleus.SynchPrio|nucleus.SynchPIP)}
}

// Destroy wakes every waiter with ErrIdrm. Further locks fail with ErrIdrm.
func (m *Mutex) Destroy() {
	m.flush(nucleus.InfoRmid)
}

// Owner returns the task holding the mutex, nil if it is free.
func (m *Mutex) Owner() *Task {
	m.nk.Lock()
	defer m.nk.Unlock()

	return taskOf(m.synch.Owner())
}

// Lock acquires the mutex, waiting as long as needed.
func (m *Mutex) Lock(ctx context.Context) error {
	return m.TimedLock(ctx, 0, nil)
}

// TimedLock acquires the mutex, waiting at most timeout for it. Locking a
// mutex the caller already holds blocks like any other contended lock.
//
// A forcible unblock of the waiter is not a failure: the wait is resumed
// until the lock is handed over, the timeout expires or the mutex is
// destroyed. Only a task being deleted gives up with ErrInterrupted.
func (m *Mutex) TimedLock(ctx context.Context, timeout time.Duration, seq *TimeoutSeq) error {
	t, err := m.enter(ctx, "mutex lock")
	if err != nil {
		return err
	}

	m.nk.Lock()
	defer m.nk.Unlock()

	if m.deleted() {
		return ErrIdrm
	}
	if m.synch.Owner() == nil {
		m.synch.SetOwner(t)
		return nil
	}
	// non-blocking mode
	if timeout < 0 {
		return ErrWouldBlock
	}

	for {
		info, err := m.sleep(t, timeout, seq)
		if err != nil {
			return err
		}
		if info&nucleus.InfoBreak != 0 && !t.TestState(nucleus.StateKilled) {
			// the mutex may have been released or destroyed before we ran again
			if m.deleted() {
				return ErrIdrm
			}
			if m.synch.Owner() == nil {
				m.synch.SetOwner(t)
				return nil
			}
			continue
		}
		// ownership was handed over by Unlock on a plain wakeup
		return wakeError(info)
	}
}

// Unlock releases the mutex, handing it to the first waiter if there is one.
// Only the owner may unlock.
func (m *Mutex) Unlock(ctx context.Context) error {
	if nucleus.InIRQ(ctx) {
		return ErrNotPermitted
	}
	t := nucleus.CurrentThread(ctx)

	m.nk.Lock()
	defer m.nk.Unlock()

	if m.deleted() {
		return ErrIdrm
	}
	if t == nil || m.synch.Owner() != t {
		return ErrNotPermitted
	}
	m.release()
	return nil
}

// release hands the mutex to the first waiter, or leaves it free. Lock held.
func (m *Mutex) release() {
	if m.synch.WakeupOne() != nil {
		m.nk.Schedule()
	}
}
