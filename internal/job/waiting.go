package job

import (
	"context"
	"errors"
	"time"

	"rtdm/internal/rtdm"
)

// SleepWork returns a task body that sleeps for the given duration in steps of
// step, stopping early if the task is unblocked or destroyed. The time actually
// slept is reported on done, if not nil.
func SleepWork(total, step time.Duration, done chan<- time.Duration) rtdm.TaskProc {
	return func(ctx context.Context, _ any) {
		start := time.Now()
		for remaining := total; remaining > 0; remaining -= step {
			if err := rtdm.Sleep(ctx, min(step, remaining)); err != nil {
				break
			}
		}
		if done != nil {
			done <- time.Since(start)
		}
	}
}

// ReadBurst waits on ev until requested signals were received, sharing a
// single timeout among all of the waits. It returns how many it got.
func ReadBurst(ctx context.Context, ev *rtdm.Event, requested int, timeout time.Duration, seq *rtdm.TimeoutSeq) (int, error) {
	received := 0
	for received < requested {
		if err := ev.TimedWait(ctx, timeout, seq); err != nil {
			return received, err
		}
		received++
	}
	return received, nil
}

// Stats summarizes one run of a periodic sampler.
type Stats struct {
	Samples  int
	Overruns int
	Timeouts int
	Err      error
}

// Sampler returns a periodic task body. On every release it reads up to burst
// signals from ev within budget and reports the outcome on out when done or
// after samples releases.
func Sampler(ev *rtdm.Event, samples, burst int, budget time.Duration, out chan<- Stats) rtdm.TaskProc {
	return func(ctx context.Context, _ any) {
		var st Stats
		defer func() { out <- st }()

		for st.Samples < samples {
			if err := rtdm.WaitPeriod(ctx); err != nil {
				if !errors.Is(err, rtdm.ErrTimedout) {
					st.Err = err
					return
				}
				st.Overruns++
			}
			seq := rtdm.NewTimeoutSeq(rtdm.TaskCurrent(ctx).Nucleus(), budget)
			_, err := ReadBurst(ctx, ev, burst, budget, &seq)
			switch {
			case errors.Is(err, rtdm.ErrTimedout):
				st.Timeouts++
			case err != nil:
				st.Err = err
				return
			}
			st.Samples++
		}
	}
}

// Counter returns a task body that increments *n rounds times under m,
// yielding inside the critical section to invite contention.
func Counter(m *rtdm.Mutex, n *int, rounds int, done chan<- error) rtdm.TaskProc {
	return func(ctx context.Context, _ any) {
		var err error
		defer func() { done <- err }()

		for i := 0; i < rounds; i++ {
			if err = m.Lock(ctx); err != nil {
				return
			}
			v := *n
			if err = rtdm.Sleep(ctx, 0); err != nil {
				_ = m.Unlock(ctx)
				return
			}
			*n = v + 1
			if err = m.Unlock(ctx); err != nil {
				return
			}
		}
	}
}

// Producer returns a task body that releases count units of sem, one every
// interval.
func Producer(sem *rtdm.Sem, count int, interval time.Duration) rtdm.TaskProc {
	return func(ctx context.Context, _ any) {
		for i := 0; i < count; i++ {
			if err := rtdm.Sleep(ctx, interval); err != nil {
				return
			}
			sem.Up()
		}
	}
}

// Consumer returns a task body that takes count units of sem, each within
// timeout, and reports how many it got.
func Consumer(sem *rtdm.Sem, count int, timeout time.Duration, got chan<- int) rtdm.TaskProc {
	return func(ctx context.Context, _ any) {
		n := 0
		defer func() { got <- n }()

		for n < count {
			if err := sem.TimedDown(ctx, timeout, nil); err != nil {
				return
			}
			n++
		}
	}
}
