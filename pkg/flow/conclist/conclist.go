package conclist

import (
	"iter"
	"sync/atomic"
)

// link is the immutable state record of one node: its successor and whether
// the node has been logically deleted. State transitions replace the whole
// record through compare-and-swap, so an insert can never attach to a node
// that was deleted concurrently - the swap fails and the caller re-reads.
type link[T any] struct {
	next    *Node[T]
	deleted bool
}

// Node is the handle returned by AddLast. Remove is O(1) and idempotent.
type Node[T any] struct {
	// Value is the element stored at this node. It is never mutated after
	// insertion.
	Value T

	// seq orders nodes by insertion; snapshots use it to exclude entries
	// appended after the snapshot was taken.
	seq uint64

	state atomic.Pointer[link[T]]
	prev  atomic.Pointer[Node[T]] // unlink hint, best-effort
}

// List is a lock-free multiset of live elements. The zero value is not
// usable; create lists with New.
type List[T any] struct {
	head *Node[T] // sentinel, never removed
	tail atomic.Pointer[Node[T]]
}

// New creates an empty list.
func New[T any]() *List[T] {
	l := &List[T]{head: &Node[T]{}}
	l.head.state.Store(&link[T]{})
	l.tail.Store(l.head)
	return l
}

// AddLast appends value and returns its node handle. It is safe under
// concurrent AddLast, Remove and Snapshot.
func (l *List[T]) AddLast(value T) *Node[T] {
	n := &Node[T]{Value: value}
	n.state.Store(&link[T]{})

	t := l.tail.Load()
	for {
		cur := t.state.Load()
		if cur.next != nil {
			t = cur.next
			continue
		}

		n.seq = t.seq + 1
		n.prev.Store(t)

		// Appending after a logically deleted last node is fine: the
		// last node is never physically unlinked (see unlink), so the
		// new node stays reachable.
		if t.state.CompareAndSwap(cur, &link[T]{next: n, deleted: cur.deleted}) {
			l.advanceTail(n)
			return n
		}
		// Lost the race: either a sibling append or a concurrent
		// deletion changed the state. Re-read and retry from t.
	}
}

func (l *List[T]) advanceTail(n *Node[T]) {
	for {
		t := l.tail.Load()
		if t.seq >= n.seq || l.tail.CompareAndSwap(t, n) {
			return
		}
	}
}

// Remove logically deletes the node and makes a best-effort attempt to
// splice it out of the chain. Calling Remove more than once is a no-op.
func (n *Node[T]) Remove() {
	for {
		cur := n.state.Load()
		if cur.deleted {
			return
		}
		if n.state.CompareAndSwap(cur, &link[T]{next: cur.next, deleted: true}) {
			n.unlink()
			return
		}
	}
}

// Removed reports whether the node has been logically deleted.
func (n *Node[T]) Removed() bool {
	return n.state.Load().deleted
}

// unlink splices a deleted node out of the chain so traversals stop
// visiting it. The last node is left linked: appends attach there and must
// not be cut off. Unlinking is a hint, not a correctness requirement -
// traversals skip deleted nodes regardless.
func (n *Node[T]) unlink() {
	st := n.state.Load()
	if st.next == nil {
		return
	}
	p := n.prev.Load()
	for p != nil {
		pc := p.state.Load()
		if pc.deleted {
			p = p.prev.Load()
			continue
		}
		if pc.next != n {
			// Already spliced out, or the hint went stale.
			return
		}
		if p.state.CompareAndSwap(pc, &link[T]{next: st.next}) {
			st.next.prev.Store(p)
		}
		return
	}
}

// Snapshot returns a lazy, weakly consistent view of the live elements.
// Elements removed before the call never appear; elements appended after
// the call are excluded; removals and appends racing the iteration may or
// may not be observed. No element is ever yielded twice.
func (l *List[T]) Snapshot() iter.Seq[T] {
	bound := l.tail.Load().seq
	return func(yield func(T) bool) {
		cur := l.head.state.Load().next
		for cur != nil {
			if cur.seq > bound {
				return
			}
			st := cur.state.Load()
			if !st.deleted && !yield(cur.Value) {
				return
			}
			cur = st.next
		}
	}
}

// Values collects a snapshot into a slice.
func (l *List[T]) Values() []T {
	var out []T
	for v := range l.Snapshot() {
		out = append(out, v)
	}
	return out
}

// Len counts the currently live elements. O(n); intended for gauges and
// tests, not hot paths.
func (l *List[T]) Len() int {
	n := 0
	for range l.Snapshot() {
		n++
	}
	return n
}
