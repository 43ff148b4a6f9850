package flow

import (
	"sync"
	"sync/atomic"

	"github.com/vnykmshr/liveflow/pkg/flow/conclist"
)

// applyEntry tracks one live participant of a join side together with the
// terminators of every pair it currently takes part in. A pair's terminator
// is recorded on both of its participants, so the pair dies when either
// side departs; the once-guard keeps the second departure a no-op.
type applyEntry[T any] struct {
	value T
	pairs *conclist.List[Terminator]

	// removed is set before the entry's pairs are drained, so a pair
	// recorded against a departing participant from a stale snapshot is
	// fired by its creator instead of leaking until close.
	removed atomic.Bool

	// claims dedupes pair creation when both sides arrive concurrently
	// and each observes the other in its snapshot. Keyed by the opposite
	// participant; only the value side carries it.
	mu     sync.Mutex
	claims map[any]bool
}

// claim reports whether the caller is first to create the pair with the
// given opposite participant.
func (e *applyEntry[T]) claim(other any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.claims == nil {
		e.claims = make(map[any]bool)
	}
	if e.claims[other] {
		return false
	}
	e.claims[other] = true
	return true
}

func (e *applyEntry[T]) terminatePairs() {
	for pair := range e.pairs.Snapshot() {
		pair()
	}
}

// ApplyTo combines a dynamic set of values and a dynamic set of functions
// into the live cross product of applications. Each currently-live
// (value, function) pair is forwarded downstream exactly once and
// terminated exactly once, when its value or its function departs or when
// the join closes.
//
// Both upstream sources are started only after both participant lists and
// callbacks are fully wired, so an early notification from one side can
// never find the other side's list absent.
func ApplyTo[T, S any](values Flow[T], funs Flow[func(T) S]) Flow[S] {
	return New(func(ctx *Context, cb Callback[S]) *Result {
		vals := conclist.New[*applyEntry[T]]()
		fns := conclist.New[*applyEntry[func(T) S]]()

		var valuesRes, funsRes *Result

		return newResult(
			func() {
				valuesRes = values.run(ctx, func(t T) Terminator {
					entry := &applyEntry[T]{value: t, pairs: conclist.New[Terminator]()}
					node := vals.AddLast(entry)

					for fe := range fns.Snapshot() {
						if !entry.claim(fe) {
							continue
						}
						pair := onceTerminator(cb(fe.value(t)))
						entry.pairs.AddLast(pair)
						fe.pairs.AddLast(pair)
						if fe.removed.Load() {
							pair()
						}
					}

					return func() {
						entry.removed.Store(true)
						node.Remove()
						entry.terminatePairs()
					}
				})

				funsRes = funs.run(ctx, func(fn func(T) S) Terminator {
					entry := &applyEntry[func(T) S]{value: fn, pairs: conclist.New[Terminator]()}
					node := fns.AddLast(entry)

					for ve := range vals.Snapshot() {
						if !ve.claim(entry) {
							continue
						}
						pair := onceTerminator(cb(fn(ve.value)))
						entry.pairs.AddLast(pair)
						ve.pairs.AddLast(pair)
						if ve.removed.Load() {
							pair()
						}
					}

					return func() {
						entry.removed.Store(true)
						node.Remove()
						entry.terminatePairs()
					}
				})

				valuesRes.Start()
				funsRes.Start()
			},
			func() error {
				// Relative order of the two closes is unspecified, but
				// both must complete before close returns.
				return combineClose(valuesRes, funsRes)
			})
	})
}
