package rtdm

import (
	"golang.org/x/sys/unix"

	"rtdm/internal/nucleus"
)

// Results of the driver API. They are errno values, so callers may also test
// against the unix constants.
var (
	ErrNotPermitted error = unix.EPERM       // caller context cannot block
	ErrWouldBlock   error = unix.EWOULDBLOCK // non-blocking test failed
	ErrTimedout     error = unix.ETIMEDOUT   // bounded wait expired
	ErrIdrm         error = unix.EIDRM       // primitive destroyed
	ErrInterrupted  error = unix.EINTR       // caller forcibly unblocked
	ErrInvalid      error = unix.EINVAL
)

// wakeError maps the reason a waiter was resumed to its result.
func wakeError(info nucleus.Info) error {
	switch {
	case info&nucleus.InfoTimeo != 0:
		return ErrTimedout
	case info&nucleus.InfoRmid != 0:
		return ErrIdrm
	case info&nucleus.InfoBreak != 0:
		return ErrInterrupted
	default:
		return nil
	}
}
