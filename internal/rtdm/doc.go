// Package rtdm is the driver-facing layer of the real-time core: tasks,
// timeout sequences, and the event, semaphore and mutex primitives drivers
// block on.
//
// Every blocking call takes the caller's context. A task receives a context
// bound to its nucleus thread; interrupt handlers receive a context marked by
// nucleus.WithIRQ; anything else is the root (non-real-time) context. Blocking
// calls fail with ErrNotPermitted unless made from a task context.
//
// Timeouts follow one convention everywhere: 0 waits forever, a negative value
// only tests for availability, a positive value bounds the wait. A TimeoutSeq
// turns a series of bounded waits into one shared deadline:
//
//	seq := rtdm.NewTimeoutSeq(nk, timeout)
//	for received < requested {
//		if err := ev.TimedWait(ctx, timeout, &seq); err != nil {
//			break // including ErrTimedout
//		}
//		// receive some data
//	}
package rtdm
