package rtdm

import (
	"time"

	"rtdm/internal/nucleus"
)

// TimeoutSeq is the absolute deadline shared by a sequence of blocking calls.
// A zero or negative value is kept as passed: infinite or non-blocking.
type TimeoutSeq int64

// NewTimeoutSeq starts a sequence with the given relative budget.
func NewTimeoutSeq(nk *nucleus.Nucleus, timeout time.Duration) TimeoutSeq {
	if timeout > 0 {
		return TimeoutSeq(nk.Now() + int64(timeout))
	}
	return TimeoutSeq(timeout)
}

// Remaining returns the budget left at the current nucleus time.
func (seq TimeoutSeq) Remaining(nk *nucleus.Nucleus) time.Duration {
	if seq <= 0 {
		return time.Duration(seq)
	}
	return time.Duration(int64(seq) - nk.Now())
}

// timeoutTicks returns the tick budget of a blocking call, 0 meaning infinite.
// With a sequence and a positive timeout the budget is what is left of the
// sequence, and a spent sequence fails the call without blocking. A sequence
// started without a deadline leaves the relative timeout in charge.
func timeoutTicks(nk *nucleus.Nucleus, timeout time.Duration, seq *TimeoutSeq) (int64, error) {
	clock := nk.Clock()
	if seq != nil && timeout > 0 && *seq > 0 {
		remaining := int64(*seq) - clock.Now()
		if remaining <= 0 {
			return 0, ErrTimedout
		}
		return clock.NsToTicks(remaining), nil
	}
	return clock.NsToTicks(int64(timeout)), nil
}
