// internal/nucleus/trace.go

package nucleus

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// StatusKind represents the type of nucleus event
type StatusKind int

const (
	StatusCreate StatusKind = iota
	StatusStart
	StatusSuspend
	StatusResume
	StatusTimeout
	StatusBreak
	StatusPriority
	StatusOverrun
	StatusDelete
	StatusFinish
	StatusIRQ
)

// StatusEvent is emitted on every scheduling action
type StatusEvent struct {
	Time     time.Time
	Clock    int64 // nucleus time in ns
	Kind     StatusKind
	ThreadID ThreadID
	Name     string
	Priority int
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusCreate:
		return "Create"
	case StatusStart:
		return "Start"
	case StatusSuspend:
		return "Suspend"
	case StatusResume:
		return "Resume"
	case StatusTimeout:
		return "Timeout"
	case StatusBreak:
		return "Break"
	case StatusPriority:
		return "Priority"
	case StatusOverrun:
		return "Overrun"
	case StatusDelete:
		return "Delete"
	case StatusFinish:
		return "Finish"
	case StatusIRQ:
		return "IRQ"
	default:
		return "Unknown"
	}
}

// StatusChannel exposes the read-only event stream. It is closed by Shutdown.
func (nk *Nucleus) StatusChannel() <-chan StatusEvent { return nk.statusCh }

// Dropped returns how many events were lost because the stream was full.
func (nk *Nucleus) Dropped() int64 { return nk.dropped.Load() }

// emit queues an event without ever blocking: it runs under the lock, often
// from timer or interrupt context. Lock held.
func (nk *Nucleus) emit(kind StatusKind, t *Thread) {
	if nk.traceClosed {
		return
	}
	ev := StatusEvent{
		Time:  time.Now(),
		Clock: nk.clock.Now(),
		Kind:  kind,
	}
	if t != nil {
		ev.ThreadID = t.id
		ev.Name = t.name
		ev.Priority = t.prio
	}
	select {
	case nk.statusCh <- ev:
	default:
		if nk.dropped.Add(1) == 1 {
			nk.log.Warn("trace buffer full, dropping events", "buffer", cap(nk.statusCh))
		}
	}
}

// Tracer renders the event stream as text and optionally as CSV.
type Tracer struct {
	out       io.Writer
	csvFile   *os.File
	csvWriter *csv.Writer
}

// NewTracer creates a Tracer writing human-readable lines to out.
func NewTracer(out io.Writer) *Tracer {
	return &Tracer{out: out}
}

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before Run().
func (tr *Tracer) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace %s: %w", path, err)
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"timestamp", "clock_ns", "event", "thread_id", "name", "priority"}); err != nil {
		f.Close()
		return fmt.Errorf("write trace header: %w", err)
	}
	w.Flush()
	tr.csvFile = f
	tr.csvWriter = w
	return nil
}

// Run consumes events until the stream is closed or ctx is done.
func (tr *Tracer) Run(ctx context.Context, events <-chan StatusEvent) error {
	defer func() {
		if tr.csvFile != nil {
			tr.csvWriter.Flush()
			tr.csvFile.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := tr.handleEvent(ev); err != nil {
				return err
			}
		}
	}
}

func (tr *Tracer) handleEvent(ev StatusEvent) error {
	// suspensions are the bulk of the stream, keep them out of the console
	if ev.Kind != StatusSuspend && tr.out != nil {
		// an auxiliary function to center the event kind in the output
		center := func(str string, width int) string {
			spaces := (width - len(str)) / 2
			return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
		}

		msg := fmt.Sprintf("%s = Clock: %012d [%s] => Thread: %04d %-12s prio=%02d",
			ev.Time.Format("Jan 02 15:04:05.000"),
			ev.Clock,
			center(ev.Kind.String(), 10),
			ev.ThreadID,
			ev.Name,
			ev.Priority,
		)
		fmt.Fprintln(tr.out, msg)
	}

	// CSV output
	if tr.csvWriter != nil {
		rec := []string{
			ev.Time.Format(time.RFC3339Nano),
			strconv.FormatInt(ev.Clock, 10),
			ev.Kind.String(),
			strconv.FormatUint(uint64(ev.ThreadID), 10),
			ev.Name,
			strconv.Itoa(ev.Priority),
		}
		if err := tr.csvWriter.Write(rec); err != nil {
			return fmt.Errorf("write trace record: %w", err)
		}
		tr.csvWriter.Flush()
	}
	return nil
}
