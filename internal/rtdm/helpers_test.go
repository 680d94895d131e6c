package rtdm

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"rtdm/internal/nucleus"
)

func newTestNucleus(t *testing.T) *nucleus.Nucleus {
	t.Helper()
	nk := nucleus.New(nucleus.DefaultConfig())
	nk.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := nk.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return nk
}

// spawn runs fn in a new task and returns the task and fn's result.
func spawn(t *testing.T, nk *nucleus.Nucleus, name string, prio int, fn func(ctx context.Context) error) (*Task, <-chan error) {
	t.Helper()
	res := make(chan error, 1)
	task, err := NewTask(nk, name, func(ctx context.Context, _ any) { res <- fn(ctx) }, nil, prio, 0)
	if err != nil {
		t.Fatalf("new task %s: %v", name, err)
	}
	return task, res
}

func await(t *testing.T, res <-chan error) error {
	t.Helper()
	select {
	case err := <-res:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("task did not return")
	}
	return nil
}

// pending asserts that the task behind res has not returned yet.
func pending(t *testing.T, res <-chan error, d time.Duration) {
	t.Helper()
	select {
	case err := <-res:
		t.Fatalf("task returned early: %v", err)
	case <-time.After(d):
	}
}

type waitable interface{ Waiters() int }

func waitWaiters(t *testing.T, w waitable, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for w.Waiters() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d waiters, have %d", n, w.Waiters())
		}
		time.Sleep(time.Millisecond)
	}
}
