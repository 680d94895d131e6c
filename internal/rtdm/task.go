package rtdm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"rtdm/internal/nucleus"
)

// TaskProc is the body of a task. ctx is bound to the task and is cancelled
// when the task is destroyed.
type TaskProc func(ctx context.Context, arg any)

// Task is a real-time task, bound one to one to a nucleus thread.
type Task struct {
	nk     *nucleus.Nucleus
	thread *nucleus.Thread
}

// NewTask creates and starts a task. A non-zero period makes it periodic,
// with its first release on the next tick boundary. On error no task is left
// behind.
func NewTask(nk *nucleus.Nucleus, name string, proc TaskProc, arg any, priority int, period time.Duration) (*Task, error) {
	th, err := nk.InitThread(name, priority)
	if err != nil {
		return nil, fmt.Errorf("init task: %w", err)
	}
	task := &Task{nk: nk, thread: th}
	th.SetCookie(task)

	if period != 0 {
		if err := nk.SetPeriodic(th, nucleus.NextTick, period); err != nil {
			nk.DeleteThread(th)
			return nil, fmt.Errorf("init task: %w", err)
		}
	}
	if err := nk.StartThread(th, func(ctx context.Context) { proc(ctx, arg) }); err != nil {
		nk.DeleteThread(th)
		return nil, fmt.Errorf("init task: %w", err)
	}
	return task, nil
}

func taskOf(th *nucleus.Thread) *Task {
	if th == nil {
		return nil
	}
	task, _ := th.Cookie().(*Task)
	return task
}

// TaskCurrent returns the task running ctx, nil outside of a task.
func TaskCurrent(ctx context.Context) *Task {
	return taskOf(nucleus.CurrentThread(ctx))
}

// Name returns the task name.
func (t *Task) Name() string { return t.thread.Name() }

// Nucleus returns the nucleus the task runs on.
func (t *Task) Nucleus() *nucleus.Nucleus { return t.nk }

// ID returns the identifier of the underlying thread.
func (t *Task) ID() nucleus.ThreadID { return t.thread.ID() }

// Priority returns the effective priority of the task.
func (t *Task) Priority() int {
	t.nk.Lock()
	defer t.nk.Unlock()

	return t.thread.Priority()
}

// Destroy deletes the task. Its context is cancelled and its blocking calls
// fail with ErrInterrupted until its body returns.
func (t *Task) Destroy() {
	t.nk.DeleteThread(t.thread)
}

// SetPriority changes the task priority.
func (t *Task) SetPriority(priority int) error {
	return t.nk.RenewPriority(t.thread, priority)
}

// SetPeriod makes the task periodic from the next tick boundary, or
// non-periodic with a zero period.
func (t *Task) SetPeriod(period time.Duration) error {
	return t.nk.SetPeriodic(t.thread, nucleus.NextTick, period)
}

// Unblock forcibly wakes the task if it is blocked. The interrupted call
// returns ErrInterrupted, except Mutex.Lock which keeps waiting. It reports
// whether the task was blocked.
func (t *Task) Unblock() bool {
	return t.nk.Unblock(t.thread)
}

// Zombie reports whether the task body has returned.
func (t *Task) Zombie() bool {
	return t.nk.Zombie(t.thread)
}

// JoinNRT waits for the task to terminate, polling every poll interval (the
// configured default when poll is 0). It does not ask the task to stop. Only
// the root context may join; ctx being done ends the wait early.
func (t *Task) JoinNRT(ctx context.Context, poll time.Duration) error {
	if !nucleus.IsRoot(ctx) {
		t.nk.Logger().Warn("join from real-time context", "task", t.Name())
		return ErrNotPermitted
	}
	if poll <= 0 {
		poll = time.Duration(t.nk.Config().JoinPollMS) * time.Millisecond
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for !t.Zombie() {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// WaitPeriod blocks the calling task until its next release point. It fails
// with ErrWouldBlock if the task is not periodic, ErrInterrupted if it was
// unblocked, and ErrTimedout if release points were missed.
func WaitPeriod(ctx context.Context) error {
	th, nk, err := blockingTask(ctx, "wait period")
	if err != nil {
		return err
	}

	missed, err := nk.WaitPeriod(th)
	if errors.Is(err, ErrTimedout) {
		nk.Logger().Debug("period overrun", "task", th.Name(), "missed", missed)
	}
	return err
}

// Sleep blocks the calling task for delay. A zero delay still gives up the
// processor for one tick.
func Sleep(ctx context.Context, delay time.Duration) error {
	th, nk, err := blockingTask(ctx, "sleep")
	if err != nil {
		return err
	}

	nk.Lock()
	defer nk.Unlock()

	ticks := nk.Clock().NsToTicks(int64(delay))
	if ticks <= 0 {
		ticks = 1
	}
	if nk.Delay(th, ticks)&nucleus.InfoBreak != 0 {
		return ErrInterrupted
	}
	return nil
}

// SleepUntil blocks the calling task until the absolute nucleus time wakeup.
// A date already passed returns at once.
func SleepUntil(ctx context.Context, wakeup int64) error {
	th, nk, err := blockingTask(ctx, "sleep until")
	if err != nil {
		return err
	}

	nk.Lock()
	defer nk.Unlock()

	delay := wakeup - nk.Now()
	if delay <= 0 {
		return nil
	}
	if nk.Delay(th, nk.Clock().NsToTicks(delay))&nucleus.InfoBreak != 0 {
		return ErrInterrupted
	}
	return nil
}

// BusySleep spins on the raw monotonic clock for delay without giving up the
// processor. Meant for short delays only; it is allowed, though discouraged,
// in interrupt context.
func BusySleep(delay time.Duration) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		for start := time.Now(); time.Since(start) < delay; {
		}
		return
	}
	wakeup := ts.Nano() + int64(delay)
	for ts.Nano() < wakeup {
		_ = unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts)
	}
}

// ClockRead returns the current nucleus time in ns.
func ClockRead(nk *nucleus.Nucleus) int64 {
	return nk.Now()
}

func blockingTask(ctx context.Context, op string) (*nucleus.Thread, *nucleus.Nucleus, error) {
	th := nucleus.CurrentThread(ctx)
	if th == nil || nucleus.InIRQ(ctx) {
		if task := taskOf(th); task != nil {
			task.nk.Logger().Warn("blocking call from unblockable context", "op", op)
		}
		return nil, nil, ErrNotPermitted
	}
	task := taskOf(th)
	if task == nil {
		return nil, nil, ErrNotPermitted
	}
	return th, task.nk, nil
}
