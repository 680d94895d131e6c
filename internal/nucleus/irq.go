// internal/nucleus/irq.go

package nucleus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Handler runs in interrupt context: it must not block.
type Handler func(ctx context.Context)

// IRQLine is a simulated interrupt source. Each shot runs the handler with an
// interrupt context and counts the shot atomically.
type IRQLine struct {
	nk      *Nucleus
	name    string
	handler Handler
	count   atomic.Int64
	once    sync.Once
	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// NewIRQLine creates a line but does not start it.
func (nk *Nucleus) NewIRQLine(name string, handler Handler) *IRQLine {
	return &IRQLine{
		nk:      nk,
		name:    name,
		handler: handler,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins raising the interrupt at the given interval.
func (l *IRQLine) Start(interval time.Duration) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer close(l.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Trigger()
			case <-l.stop:
				return
			}
		}
	}()
}

// Trigger raises the interrupt once, synchronously.
func (l *IRQLine) Trigger() {
	l.count.Add(1)
	l.nk.Lock()
	l.nk.emit(StatusIRQ, nil)
	l.nk.Unlock()
	l.handler(WithIRQ(context.Background()))
}

// Stop signals the line to stop raising interrupts and waits for the last
// handler to return. Stopping twice is harmless.
func (l *IRQLine) Stop() {
	l.once.Do(func() { close(l.stop) })
	if l.started.Load() {
		<-l.done
	}
}

// Name returns the line name.
func (l *IRQLine) Name() string { return l.name }

// Count returns the number of interrupts raised so far.
func (l *IRQLine) Count() int64 {
	return l.count.Load()
}
