// internal/nucleus/waitqueue.go

package nucleus

import (
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/gammazero/deque"
)

// waitQueue holds back-references to the threads pending on a Synch. It never
// owns them: thread lifetime belongs to the nucleus.
type waitQueue interface {
	push(t *Thread)
	peek() *Thread
	remove(t *Thread)
	requeue(t *Thread)
	maxPrio() (int, bool)
	len() int
}

// queueKey orders waiters by priority, then by arrival.
type queueKey struct {
	prio int
	seq  uint64
}

// cmpQueueKey implements the Comparator for the red-black tree: the highest
// priority sorts first, equal priorities stay FIFO.
func cmpQueueKey(a, b any) int {
	ka, kb := a.(queueKey), b.(queueKey)
	switch {
	case ka.prio > kb.prio:
		return -1
	case ka.prio < kb.prio:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

type prioQueue struct {
	rbt *redblacktree.Tree
}

func newPrioQueue() *prioQueue {
	return &prioQueue{rbt: redblacktree.NewWith(cmpQueueKey)}
}

func (q *prioQueue) push(t *Thread) {
	t.qkey.prio = t.prio
	q.rbt.Put(t.qkey, t)
}

func (q *prioQueue) peek() *Thread {
	node := q.rbt.Left()
	if node == nil {
		return nil
	}
	return node.Value.(*Thread)
}

func (q *prioQueue) remove(t *Thread) {
	q.rbt.Remove(t.qkey)
}

// requeue moves t to the position matching its current priority, keeping its
// arrival rank among equals.
func (q *prioQueue) requeue(t *Thread) {
	q.rbt.Remove(t.qkey)
	q.push(t)
}

func (q *prioQueue) maxPrio() (int, bool) {
	if t := q.peek(); t != nil {
		return t.prio, true
	}
	return 0, false
}

func (q *prioQueue) len() int { return q.rbt.Size() }

type fifoQueue struct {
	d deque.Deque[*Thread]
}

func (q *fifoQueue) push(t *Thread) { q.d.PushBack(t) }

func (q *fifoQueue) peek() *Thread {
	if q.d.Len() == 0 {
		return nil
	}
	return q.d.Front()
}

func (q *fifoQueue) remove(t *Thread) {
	if i := q.d.Index(func(w *Thread) bool { return w == t }); i >= 0 {
		q.d.Remove(i)
	}
}

// arrival order does not depend on priority
func (q *fifoQueue) requeue(*Thread) {}

func (q *fifoQueue) maxPrio() (int, bool) {
	if q.d.Len() == 0 {
		return 0, false
	}
	best := q.d.At(0).prio
	for i := 1; i < q.d.Len(); i++ {
		if p := q.d.At(i).prio; p > best {
			best = p
		}
	}
	return best, true
}

func (q *fifoQueue) len() int { return q.d.Len() }
