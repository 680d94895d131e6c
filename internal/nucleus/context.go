package nucleus

import "context"

type ctxKey int

const (
	threadKey ctxKey = iota
	irqKey
)

func withThread(ctx context.Context, t *Thread) context.Context {
	return context.WithValue(ctx, threadKey, t)
}

// CurrentThread returns the thread bound to ctx, nil in root or interrupt context.
func CurrentThread(ctx context.Context) *Thread {
	t, _ := ctx.Value(threadKey).(*Thread)
	return t
}

// WithIRQ marks ctx as an interrupt context.
func WithIRQ(ctx context.Context) context.Context {
	return context.WithValue(ctx, irqKey, true)
}

// InIRQ reports whether ctx is an interrupt context.
func InIRQ(ctx context.Context) bool {
	irq, _ := ctx.Value(irqKey).(bool)
	return irq
}

// IsRoot reports whether ctx is the non-real-time context: no thread, no interrupt.
func IsRoot(ctx context.Context) bool {
	return CurrentThread(ctx) == nil && !InIRQ(ctx)
}

// Blockable reports whether the nucleus may suspend the caller of ctx.
func Blockable(ctx context.Context) bool {
	return CurrentThread(ctx) != nil && !InIRQ(ctx)
}
