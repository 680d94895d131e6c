// internal/nucleus/synch.go

package nucleus

// SynchFlags is the status word of a Synch.
type SynchFlags uint32

const (
	SynchPrio SynchFlags = 1 << iota // priority-ordered wait queue, FIFO otherwise
	SynchPIP                         // owner inherits the priority of its top waiter
)

// Spare bits are left to the layers built on top of Synch.
const (
	SynchSpare0 SynchFlags = 1 << (iota + 16)
	SynchSpare1
	SynchSpare2
	SynchSpare3
)

// Synch is the nucleus wait object: a queue of pending threads, a status word
// and an optional owner. Every method must be called with the nucleus lock held.
type Synch struct {
	nk     *Nucleus
	status SynchFlags
	owner  *Thread
	q      waitQueue
}

// NewSynch creates a wait object. SynchPrio is ignored when the nucleus is
// configured for FIFO wait queues.
func (nk *Nucleus) NewSynch(flags SynchFlags) *Synch {
	if nk.cfg.FIFOWait {
		flags &^= SynchPrio
	}
	s := &Synch{nk: nk, status: flags}
	if flags&SynchPrio != 0 {
		s.q = newPrioQueue()
	} else {
		s.q = &fifoQueue{}
	}
	return s
}

// SetFlags sets bits in the status word.
func (s *Synch) SetFlags(bits SynchFlags) { s.status |= bits }

// ClearFlags clears bits in the status word.
func (s *Synch) ClearFlags(bits SynchFlags) { s.status &^= bits }

// TestFlags reports whether any of bits is set.
func (s *Synch) TestFlags(bits SynchFlags) bool { return s.status&bits != 0 }

// Owner returns the current owner, nil if none.
func (s *Synch) Owner() *Thread { return s.owner }

// SetOwner makes t the owner of s.
func (s *Synch) SetOwner(t *Thread) {
	old := s.owner
	if old == t {
		return
	}
	s.owner = t
	if s.status&SynchPIP == 0 {
		return
	}
	if old != nil {
		delete(old.owned, s)
		s.nk.adjustPriority(old)
	}
	if t != nil {
		t.owned[s] = struct{}{}
		s.nk.adjustPriority(t)
	}
}

// Waiters returns the number of pending threads.
func (s *Synch) Waiters() int { return s.q.len() }

// SleepOn queues t and suspends it until woken, with a timeout in ticks
// (0 = infinite). The nucleus lock is dropped while t is suspended and held
// again on return. The returned Info tells why t was resumed.
func (s *Synch) SleepOn(t *Thread, timeout int64) Info {
	nk := s.nk
	if t.state&StateKilled != 0 {
		t.info = InfoBreak
		return t.info
	}
	nk.seq++
	t.qkey.seq = nk.seq
	t.wchan = s
	s.q.push(t)
	if s.status&SynchPIP != 0 && s.owner != nil {
		nk.adjustPriority(s.owner)
	}
	return nk.suspend(t, StatePend, timeout)
}

// WakeupOne resumes the head waiter and returns it, or nil if nobody was
// waiting. On a SynchPIP synch the waiter also becomes the owner, and s is
// left unowned when the queue was empty.
func (s *Synch) WakeupOne() *Thread {
	t := s.q.peek()
	if s.status&SynchPIP != 0 {
		s.SetOwner(t)
	}
	if t != nil {
		s.nk.resume(t, 0)
	}
	return t
}

// Flush resumes every waiter with reason and reports whether anybody was
// woken, which calls for a reschedule.
func (s *Synch) Flush(reason Info) bool {
	woke := false
	for t := s.q.peek(); t != nil; t = s.q.peek() {
		s.nk.resume(t, reason)
		woke = true
	}
	return woke
}

// dequeue detaches t from the wait queue outside of a regular wakeup.
func (s *Synch) dequeue(t *Thread) {
	s.q.remove(t)
	t.wchan = nil
	if s.status&SynchPIP != 0 && s.owner != nil {
		s.nk.adjustPriority(s.owner)
	}
}

// adjustPriority recomputes the effective priority of t from its base
// priority and the top waiters of the priority-inheriting Synchs it owns, and
// propagates a change along the chain of owners t is waiting for.
func (nk *Nucleus) adjustPriority(t *Thread) {
	prio := t.basePrio
	for s := range t.owned {
		if p, ok := s.q.maxPrio(); ok && p > prio {
			prio = p
		}
	}
	if prio == t.prio {
		return
	}
	t.prio = prio
	nk.emit(StatusPriority, t)

	if s := t.wchan; s != nil {
		s.q.requeue(t)
		if s.status&SynchPIP != 0 && s.owner != nil && s.owner != t {
			nk.adjustPriority(s.owner)
		}
	}
}
