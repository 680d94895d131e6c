package rtdm

import (
	"context"
	"time"

	"rtdm/internal/nucleus"
)

// Sem is a counting semaphore. A unit released while tasks wait is handed to
// the first waiter directly and never shows up in the count.
type Sem struct {
	synchBase
	value uint64
}

// NewSem creates a semaphore holding value units.
func NewSem(nk *nucleus.Nucleus, value uint64) *Sem {
	return &Sem{synchBase: newSynchBase(nk, nucleus.SynchPrio), value: value}
}

// Destroy wakes every waiter with ErrIdrm. Further downs fail with ErrIdrm.
func (s *Sem) Destroy() {
	s.flush(nucleus.InfoRmid)
}

// Value returns the number of available units.
func (s *Sem) Value() uint64 {
	s.nk.Lock()
	defer s.nk.Unlock()

	return s.value
}

// Down takes a unit, waiting as long as needed.
func (s *Sem) Down(ctx context.Context) error {
	return s.TimedDown(ctx, 0, nil)
}

// TimedDown takes a unit, waiting at most timeout for one.
func (s *Sem) TimedDown(ctx context.Context, timeout time.Duration, seq *TimeoutSeq) error {
	t, err := s.enter(ctx, "sem down")
	if err != nil {
		return err
	}

	s.nk.Lock()
	defer s.nk.Unlock()

	switch {
	case s.deleted():
		return ErrIdrm
	case s.value > 0:
		s.value--
		return nil
	case timeout < 0: // non-blocking mode
		return ErrWouldBlock
	}

	info, err := s.sleep(t, timeout, seq)
	if err != nil {
		return err
	}
	return wakeError(info)
}

// Up releases a unit: to the first waiter if there is one, to the count
// otherwise. It may be called from interrupt context.
func (s *Sem) Up() {
	s.nk.Lock()
	defer s.nk.Unlock()

	if s.deleted() {
		return
	}
	if s.synch.WakeupOne() != nil {
		s.nk.Schedule()
	} else {
		s.value++
	}
}
