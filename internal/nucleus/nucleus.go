// internal/nucleus/nucleus.go

package nucleus

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"rtdm/internal/syncutil"
)

// NextTick as a periodic start date anchors the timeline on the next tick
// boundary.
const NextTick int64 = -1

// Nucleus is the real-time core the driver layer runs on: it owns the threads,
// the global lock, the clock and the trace stream.
type Nucleus struct {
	mu      syncutil.Mutex // the global lock, guards every thread and Synch
	cfg     Config
	clock   *Clock
	threads map[ThreadID]*Thread
	lastID  ThreadID
	seq     uint64 // wait queue arrival counter
	resched bool   // a resume happened under the lock
	closed  bool

	statusCh    chan StatusEvent
	traceClosed bool
	dropped     atomic.Int64
	log         *slog.Logger
}

// New creates a Nucleus instance with the given configuration.
func New(cfg Config) *Nucleus {
	cfg = cfg.clamp()
	return &Nucleus{
		cfg:      cfg,
		clock:    newClock(cfg.TickNS),
		threads:  make(map[ThreadID]*Thread),
		statusCh: make(chan StatusEvent, cfg.TraceBuffer),
		log:      slog.Default(),
	}
}

// SetLogger replaces the diagnostics logger. Must be called before any thread starts.
func (nk *Nucleus) SetLogger(l *slog.Logger) { nk.log = l }

// Logger returns the diagnostics logger.
func (nk *Nucleus) Logger() *slog.Logger { return nk.log }

// Config returns the active configuration.
func (nk *Nucleus) Config() Config { return nk.cfg }

// Clock exposes the nucleus time base.
func (nk *Nucleus) Clock() *Clock { return nk.clock }

// Now returns the current nucleus time in ns.
func (nk *Nucleus) Now() int64 { return nk.clock.Now() }

// Lock enters the global critical section.
func (nk *Nucleus) Lock() { nk.mu.Lock() }

// Unlock leaves the global critical section and yields the processor if a
// reschedule was requested while it was held.
func (nk *Nucleus) Unlock() {
	resched := nk.resched
	nk.resched = false
	nk.mu.Unlock()
	if resched {
		runtime.Gosched()
	}
}

// Schedule requests a reschedule on the next Unlock. Lock held.
func (nk *Nucleus) Schedule() { nk.resched = true }

// InitThread registers a thread that is not started yet.
func (nk *Nucleus) InitThread(name string, prio int) (*Thread, error) {
	if prio < nk.cfg.MinPriority || prio > nk.cfg.MaxPriority {
		return nil, fmt.Errorf("thread %q: priority %d out of [%d, %d]: %w",
			name, prio, nk.cfg.MinPriority, nk.cfg.MaxPriority, unix.EINVAL)
	}

	nk.Lock()
	defer nk.Unlock()

	if nk.closed {
		return nil, fmt.Errorf("thread %q: nucleus shut down: %w", name, unix.ENODEV)
	}
	nk.lastID++
	t := newThread(nk.lastID, name, prio)
	nk.threads[t.id] = t
	nk.emit(StatusCreate, t)
	return t, nil
}

// StartThread runs entry in its own goroutine, bound to t.
func (nk *Nucleus) StartThread(t *Thread, entry Entry) error {
	nk.Lock()
	defer nk.Unlock()

	if t.state&(StateStarted|StateZombie) != 0 {
		return fmt.Errorf("thread %d already started: %w", t.id, unix.EBUSY)
	}
	ctx, cancel := context.WithCancel(withThread(context.Background(), t))
	t.cancel = cancel
	t.state |= StateStarted
	nk.emit(StatusStart, t)

	go func() {
		defer nk.exitThread(t)
		entry(ctx)
	}()
	return nil
}

// exitThread turns t into a zombie once its entry has returned.
func (nk *Nucleus) exitThread(t *Thread) {
	nk.Lock()
	defer nk.Unlock()

	nk.reap(t)
	nk.emit(StatusFinish, t)
}

// reap hands over what t owns and makes it a zombie. Lock held.
func (nk *Nucleus) reap(t *Thread) {
	if t.state&StateZombie != 0 {
		return
	}
	for s := range t.owned {
		s.WakeupOne()
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.state = (t.state &^ StateStarted) | StateZombie
	delete(nk.threads, t.id)
	close(t.done)
}

// DeleteThread kills t. A thread that never started becomes a zombie at once;
// a running one is unblocked, its context cancelled, and every further
// suspension it attempts fails with InfoBreak until its entry returns.
func (nk *Nucleus) DeleteThread(t *Thread) {
	nk.Lock()
	defer nk.Unlock()

	if t.state&StateZombie != 0 {
		return
	}
	nk.emit(StatusDelete, t)
	if t.state&StateStarted == 0 {
		nk.reap(t)
		return
	}
	t.state |= StateKilled
	t.cancel()
	nk.resume(t, InfoBreak)
}

// Unblock forcibly resumes t if it is suspended. It reports whether t was.
func (nk *Nucleus) Unblock(t *Thread) bool {
	nk.Lock()
	defer nk.Unlock()

	return nk.Break(t)
}

// Break is Unblock with the lock already held.
func (nk *Nucleus) Break(t *Thread) bool {
	return nk.resume(t, InfoBreak)
}

// Zombie reports whether t has exited.
func (nk *Nucleus) Zombie(t *Thread) bool {
	nk.Lock()
	defer nk.Unlock()

	return t.state&StateZombie != 0
}

// ThreadCount returns the number of threads that are not zombies yet.
func (nk *Nucleus) ThreadCount() int {
	nk.Lock()
	defer nk.Unlock()

	return len(nk.threads)
}

// RenewPriority changes the base priority of t. A boost inherited from a
// waiter stays in effect until it is released.
func (nk *Nucleus) RenewPriority(t *Thread, prio int) error {
	if prio < nk.cfg.MinPriority || prio > nk.cfg.MaxPriority {
		return fmt.Errorf("thread %d: priority %d out of [%d, %d]: %w",
			t.id, prio, nk.cfg.MinPriority, nk.cfg.MaxPriority, unix.EINVAL)
	}

	nk.Lock()
	defer nk.Unlock()

	t.basePrio = prio
	nk.adjustPriority(t)
	nk.Schedule()
	return nil
}

// Delay suspends t for timeout ticks, 0 meaning until unblocked. Lock held.
func (nk *Nucleus) Delay(t *Thread, timeout int64) Info {
	if t.state&StateKilled != 0 {
		t.info = InfoBreak
		return t.info
	}
	return nk.suspend(t, StateDelay, timeout)
}

// suspend blocks the calling goroutine, which must be t, until resume is called
// for it. Lock held; it is released while t sleeps.
func (nk *Nucleus) suspend(t *Thread, mask State, timeout int64) Info {
	t.info &^= WakeMask
	t.state |= mask
	if timeout > 0 {
		t.state |= StateDelay
		gen := t.gen
		t.timer = time.AfterFunc(time.Duration(nk.clock.TicksToNs(timeout)), func() {
			nk.expire(t, gen)
		})
	}
	nk.emit(StatusSuspend, t)

	nk.resched = false
	nk.mu.Unlock()
	<-t.wake
	nk.mu.Lock()

	return t.info
}

// expire is the timer callback of a timed suspension.
func (nk *Nucleus) expire(t *Thread, gen uint64) {
	nk.Lock()
	defer nk.Unlock()

	if t.gen != gen {
		return
	}
	nk.resume(t, InfoTimeo)
}

// resume wakes t with reason info if it is suspended. Lock held.
func (nk *Nucleus) resume(t *Thread, info Info) bool {
	if t.state&(StatePend|StateDelay) == 0 {
		return false
	}
	if s := t.wchan; s != nil {
		s.dequeue(t)
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.state &^= StatePend | StateDelay
	t.info |= info
	t.gen++

	switch {
	case info&InfoTimeo != 0:
		nk.emit(StatusTimeout, t)
	case info&InfoBreak != 0:
		nk.emit(StatusBreak, t)
	default:
		nk.emit(StatusResume, t)
	}

	nk.resched = true
	t.wake <- struct{}{}
	return true
}

// Shutdown deletes every live thread and refuses new ones. It waits for the
// threads to exit or for ctx to be done.
func (nk *Nucleus) Shutdown(ctx context.Context) error {
	nk.Lock()
	nk.closed = true
	live := make([]*Thread, 0, len(nk.threads))
	for _, t := range nk.threads {
		live = append(live, t)
	}
	nk.Unlock()

	for _, t := range live {
		nk.DeleteThread(t)
	}
	for _, t := range live {
		select {
		case <-t.done:
		case <-ctx.Done():
			return fmt.Errorf("shutdown: thread %d (%s) still running: %w", t.id, t.name, ctx.Err())
		}
	}

	nk.Lock()
	nk.traceClosed = true
	close(nk.statusCh)
	nk.Unlock()
	return nil
}
