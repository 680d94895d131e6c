package nucleus

import (
	"context"
	"time"
)

// ThreadID uniquely identifies a thread in the nucleus.
type ThreadID uint64

// Entry is the body of a thread. ctx is bound to the thread and is cancelled
// when the thread is deleted.
type Entry func(ctx context.Context)

// State holds the scheduling state bits of a thread.
type State uint32

const (
	StateStarted State = 1 << iota // entry is running
	StatePend                      // blocked on a Synch
	StateDelay                     // blocked with a timeout or delay
	StateZombie                    // exited, waiting to be joined
	StateKilled                    // deleted while running
)

// Info holds the reason a thread was last resumed.
type Info uint32

const (
	InfoTimeo Info = 1 << iota // timeout elapsed
	InfoRmid                   // the Synch was deleted
	InfoBreak                  // forcibly unblocked
)

// WakeMask covers every abnormal wake reason.
const WakeMask = InfoTimeo | InfoRmid | InfoBreak

// Thread represents one schedulable real-time entity.
type Thread struct {
	id       ThreadID
	name     string
	basePrio int // priority requested by the owner
	prio     int // effective priority, may be boosted by priority inheritance
	state    State
	info     Info

	wchan *Synch              // Synch the thread is pending on
	qkey  queueKey            // position in wchan's wait queue
	owned map[*Synch]struct{} // priority-inheriting Synchs currently owned

	wake  chan struct{}
	gen   uint64 // bumped on every resume so stale timers are ignored
	timer *time.Timer

	// periodic timeline, all in ns of nucleus time
	period      int64
	nextRelease int64
	overruns    int64

	cookie any
	cancel context.CancelFunc
	done   chan struct{}
}

func newThread(id ThreadID, name string, prio int) *Thread {
	return &Thread{
		id:       id,
		name:     name,
		basePrio: prio,
		prio:     prio,
		owned:    make(map[*Synch]struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// ID returns the thread identifier.
func (t *Thread) ID() ThreadID { return t.id }

// Name returns the (not necessarily unique) thread name.
func (t *Thread) Name() string { return t.name }

// Priority returns the effective priority. Caller must hold the nucleus lock
// for a consistent read while other threads may be running.
func (t *Thread) Priority() int { return t.prio }

// BasePriority returns the priority set by the owner, ignoring boosts.
func (t *Thread) BasePriority() int { return t.basePrio }

// Period returns the release period, 0 if the thread is not periodic.
func (t *Thread) Period() time.Duration { return time.Duration(t.period) }

// Overruns returns the number of release points missed so far.
func (t *Thread) Overruns() int64 { return t.overruns }

// TestState reports whether any of the given state bits is set. Lock held.
func (t *Thread) TestState(bits State) bool { return t.state&bits != 0 }

// TestInfo reports whether any of the given wake reasons is set. Lock held.
func (t *Thread) TestInfo(bits Info) bool { return t.info&bits != 0 }

// Cookie returns the value attached by the layer that created the thread.
func (t *Thread) Cookie() any { return t.cookie }

// SetCookie attaches a value to the thread, typically the wrapper that owns it.
func (t *Thread) SetCookie(v any) { t.cookie = v }

// Done is closed once the thread has become a zombie.
func (t *Thread) Done() <-chan struct{} { return t.done }
