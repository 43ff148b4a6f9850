package flow

import (
	"sync"

	"github.com/vnykmshr/liveflow/pkg/flow/conclist"
)

// SentEvent is the receipt for one injected value: the value itself plus a
// Terminate action retracting exactly that value. Terminate fires the
// underlying terminator at most once; on an event injected into a closed
// pipeline it is a safe no-op.
type SentEvent[T any] struct {
	value     T
	terminate Terminator
}

// Value returns the injected value.
func (e SentEvent[T]) Value() T {
	return e.value
}

// Terminate retracts the injected value. Repeated calls, and calls after
// the pipeline closed, are no-ops.
func (e SentEvent[T]) Terminate() {
	if e.terminate != nil {
		e.terminate()
	}
}

// Probe is a zero-input flow driven by explicit injection, used as the test
// harness for pipelines. Build the pipeline on top of Flow, run and start
// it, then push values with Inject.
type Probe[T any] struct {
	mu      sync.Mutex
	cb      Callback[T]
	started bool
	closed  bool
	live    *conclist.List[Terminator]
}

// NewProbe creates an unconnected probe.
func NewProbe[T any]() *Probe[T] {
	return &Probe[T]{live: conclist.New[Terminator]()}
}

// Flow returns the probe as a pipeline source. A probe backs a single run
// at a time.
func (p *Probe[T]) Flow() Flow[T] {
	return New(func(ctx *Context, cb Callback[T]) *Result {
		p.mu.Lock()
		p.cb = cb
		p.started = false
		p.closed = false
		p.live = conclist.New[Terminator]()
		p.mu.Unlock()

		return newResult(
			func() {
				p.mu.Lock()
				p.started = true
				p.mu.Unlock()
			},
			func() error {
				p.mu.Lock()
				p.closed = true
				live := p.live
				p.mu.Unlock()

				terms := make([]Terminator, 0)
				for t := range live.Snapshot() {
					terms = append(terms, t)
				}
				return closeTerminators(ctx.Logger, terms)
			})
	})
}

// Inject pushes a value into the pipeline and returns its SentEvent. While
// the pipeline is open the value is forwarded downstream and the event's
// Terminate retracts it; when the pipeline has not started or is already
// closed, nothing is forwarded and the event's Terminate is a no-op.
//
// An Inject racing Close may still reach the downstream stage after Close
// returns; such a value is terminated immediately, so downstream observes
// a balanced add/remove pair rather than a leak.
func (p *Probe[T]) Inject(v T) SentEvent[T] {
	p.mu.Lock()
	cb := p.cb
	live := p.live
	open := p.started && !p.closed
	p.mu.Unlock()

	if !open || cb == nil {
		return SentEvent[T]{value: v}
	}

	wrapped := onceTerminator(cb(v))
	node := live.AddLast(wrapped)

	// A close racing the injection drains the list it may have missed
	// this entry on; fire immediately so nothing leaks. The once-guard
	// absorbs the overlap with the drain.
	p.mu.Lock()
	closedNow := p.closed
	p.mu.Unlock()
	if closedNow {
		wrapped()
		node.Remove()
		return SentEvent[T]{value: v}
	}

	return SentEvent[T]{value: v, terminate: func() {
		node.Remove()
		wrapped()
	}}
}
