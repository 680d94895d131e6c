package rtdm

import (
	"errors"
	"testing"
	"time"
)

func TestNewTimeoutSeq(t *testing.T) {
	nk := newTestNucleus(t)

	if seq := NewTimeoutSeq(nk, 0); seq != 0 {
		t.Fatalf("infinite timeout must be kept, got %d", seq)
	}
	if seq := NewTimeoutSeq(nk, -1); seq != -1 {
		t.Fatalf("non-blocking timeout must be kept, got %d", seq)
	}

	before := nk.Now()
	seq := NewTimeoutSeq(nk, 300*time.Millisecond)
	after := nk.Now()
	if int64(seq) < before+int64(300*time.Millisecond) || int64(seq) > after+int64(300*time.Millisecond) {
		t.Fatalf("deadline %d outside [%d, %d] + 300ms", seq, before, after)
	}
	if rem := seq.Remaining(nk); rem <= 0 || rem > 300*time.Millisecond {
		t.Fatalf("remaining %v", rem)
	}
}

func TestTimeoutTicks(t *testing.T) {
	nk := newTestNucleus(t)

	if ticks, err := timeoutTicks(nk, 0, nil); err != nil || ticks != 0 {
		t.Fatalf("infinite: %d, %v", ticks, err)
	}
	if ticks, err := timeoutTicks(nk, time.Millisecond, nil); err != nil || ticks != int64(time.Millisecond) {
		t.Fatalf("relative: %d, %v", ticks, err)
	}

	spent := NewTimeoutSeq(nk, time.Nanosecond)
	time.Sleep(time.Millisecond)
	if _, err := timeoutTicks(nk, time.Second, &spent); !errors.Is(err, ErrTimedout) {
		t.Fatalf("spent sequence: expected ErrTimedout, got %v", err)
	}
	// an infinite call ignores the sequence
	if ticks, err := timeoutTicks(nk, 0, &spent); err != nil || ticks != 0 {
		t.Fatalf("infinite with sequence: %d, %v", ticks, err)
	}

	seq := NewTimeoutSeq(nk, 50*time.Millisecond)
	ticks, err := timeoutTicks(nk, time.Hour, &seq)
	if err != nil || ticks <= 0 || ticks > int64(50*time.Millisecond) {
		t.Fatalf("sequence budget: %d, %v", ticks, err)
	}

	unbounded := NewTimeoutSeq(nk, 0)
	if ticks, err := timeoutTicks(nk, time.Millisecond, &unbounded); err != nil || ticks != int64(time.Millisecond) {
		t.Fatalf("sequence without deadline: %d, %v", ticks, err)
	}
}
