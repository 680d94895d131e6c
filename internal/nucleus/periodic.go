// internal/nucleus/periodic.go

package nucleus

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// SetPeriodic gives t a release timeline starting at idate (absolute ns, or
// NextTick) with the given period. A zero period makes t non-periodic again.
func (nk *Nucleus) SetPeriodic(t *Thread, idate int64, period time.Duration) error {
	if period < 0 || (period > 0 && int64(period) < nk.clock.tick) {
		return fmt.Errorf("thread %d: period %v shorter than a tick: %w", t.id, period, unix.EINVAL)
	}

	nk.Lock()
	defer nk.Unlock()

	if period == 0 {
		t.period, t.nextRelease, t.overruns = 0, 0, 0
		return nil
	}
	if idate == NextTick {
		idate = nk.clock.NextTick()
	} else if idate < nk.clock.Now() {
		return fmt.Errorf("thread %d: start date %d already passed: %w", t.id, idate, unix.ETIMEDOUT)
	}
	t.period = int64(period)
	t.nextRelease = idate
	t.overruns = 0
	return nil
}

// WaitPeriod suspends t, the caller, until its next release point. It fails
// with EWOULDBLOCK if t is not periodic, EINTR if t was unblocked, and
// ETIMEDOUT if release points were missed; the returned count says how many.
func (nk *Nucleus) WaitPeriod(t *Thread) (int64, error) {
	nk.Lock()
	defer nk.Unlock()

	if t.period == 0 {
		return 0, unix.EWOULDBLOCK
	}

	release := t.nextRelease
	now := nk.clock.Now()
	if now < release {
		info := nk.Delay(t, nk.clock.NsToTicks(release-now))
		if info&InfoBreak != 0 {
			return 0, unix.EINTR
		}
		t.nextRelease = release + t.period
		return 0, nil
	}

	// late for release: only the points after it count as missed
	missed := (now - release) / t.period
	t.nextRelease = release + (missed+1)*t.period
	if missed == 0 {
		return 0, nil
	}
	t.overruns += missed
	nk.emit(StatusOverrun, t)
	return missed, unix.ETIMEDOUT
}
