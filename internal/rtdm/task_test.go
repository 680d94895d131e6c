package rtdm

import (
	"context"
	"errors"
	"testing"
	"time"

	"rtdm/internal/nucleus"
)

func TestNewTaskRejectsBadPriority(t *testing.T) {
	nk := newTestNucleus(t)

	task, err := NewTask(nk, "bad", func(context.Context, any) {}, nil, 1000, 0)
	if task != nil || !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected nil task and ErrInvalid, got %v, %v", task, err)
	}
}

func TestNewTaskPeriodicFailureLeavesNothing(t *testing.T) {
	nk := newTestNucleus(t)

	ran := make(chan struct{}, 1)
	task, err := NewTask(nk, "bad period", func(context.Context, any) { ran <- struct{}{} }, nil, 10, -time.Millisecond)
	if task != nil || !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected nil task and ErrInvalid, got %v, %v", task, err)
	}
	if n := nk.ThreadCount(); n != 0 {
		t.Fatalf("%d threads left behind", n)
	}
	select {
	case <-ran:
		t.Fatal("task body ran despite the error")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestTaskArgAndCurrent(t *testing.T) {
	nk := newTestNucleus(t)

	type result struct {
		arg  any
		self *Task
	}
	out := make(chan result, 1)
	task, err := NewTask(nk, "worker", func(ctx context.Context, arg any) {
		out <- result{arg, TaskCurrent(ctx)}
	}, "payload", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	r := <-out
	if r.arg != "payload" || r.self != task {
		t.Fatalf("got arg %v task %v", r.arg, r.self)
	}
	if TaskCurrent(context.Background()) != nil {
		t.Fatal("root context has no current task")
	}
}

func TestSleep(t *testing.T) {
	nk := newTestNucleus(t)

	if err := Sleep(context.Background(), time.Millisecond); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("root sleep: expected ErrNotPermitted, got %v", err)
	}

	start := time.Now()
	_, res := spawn(t, nk, "sleeper", 10, func(ctx context.Context) error {
		if err := Sleep(ctx, 0); err != nil {
			return err
		}
		return Sleep(ctx, 15*time.Millisecond)
	})
	if err := await(t, res); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("slept only %v", elapsed)
	}
}

func TestSleepFromIRQ(t *testing.T) {
	nk := newTestNucleus(t)

	_, res := spawn(t, nk, "handler", 10, func(ctx context.Context) error {
		return Sleep(nucleus.WithIRQ(ctx), time.Millisecond)
	})
	if err := await(t, res); !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}
}

func TestSleepUnblocked(t *testing.T) {
	nk := newTestNucleus(t)

	task, res := spawn(t, nk, "sleeper", 10, func(ctx context.Context) error {
		return Sleep(ctx, time.Hour)
	})
	deadline := time.Now().Add(2 * time.Second)
	for !task.Unblock() {
		if time.Now().After(deadline) {
			t.Fatal("sleeper never blocked")
		}
		time.Sleep(time.Millisecond)
	}
	if err := await(t, res); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
}

func TestSleepUntil(t *testing.T) {
	nk := newTestNucleus(t)

	_, res := spawn(t, nk, "sleeper", 10, func(ctx context.Context) error {
		// a date in the past returns at once
		start := time.Now()
		if err := SleepUntil(ctx, ClockRead(nk)-int64(time.Second)); err != nil {
			return err
		}
		if time.Since(start) > 50*time.Millisecond {
			return errors.New("past wakeup date blocked")
		}

		wakeup := ClockRead(nk) + int64(10*time.Millisecond)
		if err := SleepUntil(ctx, wakeup); err != nil {
			return err
		}
		if now := ClockRead(nk); now < wakeup {
			return errors.New("woke up before the wakeup date")
		}
		return nil
	})
	if err := await(t, res); err != nil {
		t.Fatal(err)
	}
}

func TestBusySleep(t *testing.T) {
	start := time.Now()
	BusySleep(2 * time.Millisecond)
	if elapsed := time.Since(start); elapsed < 2*time.Millisecond {
		t.Fatalf("busy sleep returned after %v", elapsed)
	}
}

func TestWaitPeriod(t *testing.T) {
	nk := newTestNucleus(t)
	const period = 5 * time.Millisecond

	if _, res := spawn(t, nk, "aperiodic", 10, WaitPeriod); !errors.Is(await(t, res), ErrWouldBlock) {
		t.Fatal("non-periodic task must get ErrWouldBlock")
	}

	out := make(chan error, 1)
	start := time.Now()
	_, err := NewTask(nk, "periodic", func(ctx context.Context, _ any) {
		for i := 0; i < 4; i++ {
			if err := WaitPeriod(ctx); err != nil {
				out <- err
				return
			}
		}
		out <- nil
	}, nil, 10, period)
	if err != nil {
		t.Fatal(err)
	}
	if err := await(t, out); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 3*period-time.Millisecond {
		t.Fatalf("4 releases in %v, want at least %v", elapsed, 3*period)
	}
}

func TestSetPeriodAndPriority(t *testing.T) {
	nk := newTestNucleus(t)

	start := make(chan struct{})
	task, res := spawn(t, nk, "worker", 10, func(ctx context.Context) error {
		<-start
		for i := 0; i < 2; i++ {
			if err := WaitPeriod(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err := task.SetPeriod(20 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := task.SetPriority(42); err != nil {
		t.Fatal(err)
	}
	if task.Priority() != 42 {
		t.Fatalf("priority %d, want 42", task.Priority())
	}
	if err := task.SetPriority(-5); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	close(start)
	if err := await(t, res); err != nil {
		t.Fatal(err)
	}
}

func TestDestroyBlockedTask(t *testing.T) {
	nk := newTestNucleus(t)
	ev := NewEvent(nk, false)

	type result struct {
		wait, again error
		cancelled   bool
	}
	out := make(chan result, 1)
	task, err := NewTask(nk, "victim", func(ctx context.Context, _ any) {
		var r result
		r.wait = ev.Wait(ctx)
		r.again = Sleep(ctx, time.Hour)
		r.cancelled = ctx.Err() != nil
		out <- r
	}, nil, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	waitWaiters(t, ev, 1)

	task.Destroy()
	r := <-out
	if !errors.Is(r.wait, ErrInterrupted) || !errors.Is(r.again, ErrInterrupted) || !r.cancelled {
		t.Fatalf("unexpected outcome %+v", r)
	}
	if err := task.JoinNRT(context.Background(), time.Millisecond); err != nil {
		t.Fatal(err)
	}
}

func TestJoinNRT(t *testing.T) {
	nk := newTestNucleus(t)

	stop := make(chan struct{})
	task, res := spawn(t, nk, "worker", 10, func(ctx context.Context) error {
		if err := TaskCurrent(ctx).JoinNRT(ctx, time.Millisecond); !errors.Is(err, ErrNotPermitted) {
			return errors.New("join from a task must be refused")
		}
		<-stop
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := task.JoinNRT(ctx, time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("join of a live task: expected deadline, got %v", err)
	}

	close(stop)
	if err := task.JoinNRT(context.Background(), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if !task.Zombie() {
		t.Fatal("joined task is not a zombie")
	}
	if err := await(t, res); err != nil {
		t.Fatal(err)
	}
}
