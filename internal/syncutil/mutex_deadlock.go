//go:build deadlock

// Package syncutil provides the lock type used by the nucleus, with optional
// deadlock detection. Build with -tags=deadlock to enable detection.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = true

func init() {
	// the nucleus lock is short-hold; anything near this is a real hang
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
}

// A Mutex is a mutual exclusion lock.
type Mutex struct {
	deadlock.Mutex
}
