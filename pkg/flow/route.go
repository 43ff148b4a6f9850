package flow

import (
	"sync"
)

// Event wraps one routed value. Its pointer identity keys the value's
// outstanding downstream propagation inside the router.
type Event[T any] struct {
	value T
}

// Value returns the routed value.
func (e *Event[T]) Value() T {
	return e.value
}

// Router bridges imperative callback code into a declarative pipeline. It
// is handed to the configure function of Route before the pipeline runs;
// external code may keep a reference and push or retract values through it
// while the pipeline is open.
type Router[T any] struct {
	incoming func(*Event[T])
	leaving  func(*Event[T])
	onStart  func()
	onClose  func()

	mu       sync.Mutex
	closed   bool
	cb       Callback[T]
	outgoing map[*Event[T]]Terminator
}

// OnIncoming installs the handler invoked for each upstream add. The
// handler decides whether to Forward the event downstream. Without a
// handler every upstream add is forwarded as-is.
func (r *Router[T]) OnIncoming(fn func(*Event[T])) {
	r.incoming = fn
}

// OnLeaving installs the handler invoked when an upstream add is
// retracted. The handler is expected to Retract whatever it forwarded for
// that event. Without a handler the event is retracted directly.
func (r *Router[T]) OnLeaving(fn func(*Event[T])) {
	r.leaving = fn
}

// OnStart installs a hook invoked once emission is activated.
func (r *Router[T]) OnStart(fn func()) {
	r.onStart = fn
}

// OnClose installs a hook invoked when the pipeline closes, before
// outstanding forwards are drained.
func (r *Router[T]) OnClose(fn func()) {
	r.onClose = fn
}

// Forward pushes the event downstream. It is a no-op after close or when
// the event is already forwarded.
func (r *Router[T]) Forward(ev *Event[T]) {
	r.mu.Lock()
	if r.closed || r.cb == nil || r.outgoing[ev] != nil {
		r.mu.Unlock()
		return
	}
	cb := r.cb
	r.mu.Unlock()

	// The downstream callback may reenter the router; never hold the
	// lock across it.
	term := onceTerminator(cb(ev.value))

	r.mu.Lock()
	if r.closed || r.outgoing[ev] != nil {
		// Lost a race against close or against a concurrent Forward of
		// the same event while the lock was dropped. The freshly created
		// propagation must not dangle unreachable by Retract and the
		// drain, so retire it here.
		r.mu.Unlock()
		term()
		return
	}
	r.outgoing[ev] = term
	r.mu.Unlock()
}

// Retract takes back a previously forwarded event, invoking its
// terminator. Unknown or already-retracted events are ignored.
func (r *Router[T]) Retract(ev *Event[T]) {
	r.mu.Lock()
	term := r.outgoing[ev]
	delete(r.outgoing, ev)
	r.mu.Unlock()

	if term != nil {
		term()
	}
}

// drain retires every outstanding forward at close.
func (r *Router[T]) drain() []Terminator {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	terms := make([]Terminator, 0, len(r.outgoing))
	for _, t := range r.outgoing {
		terms = append(terms, t)
	}
	r.outgoing = map[*Event[T]]Terminator{}
	return terms
}

// Route interposes a Router between f and its downstream. configure runs
// during wiring, before any emission, and typically publishes the router to
// the imperative code that will drive it.
func (f Flow[T]) Route(configure func(*Router[T])) Flow[T] {
	return New(func(ctx *Context, cb Callback[T]) *Result {
		r := &Router[T]{
			cb:       cb,
			outgoing: map[*Event[T]]Terminator{},
		}
		if configure != nil {
			configure(r)
		}

		upstream := f.run(ctx, func(t T) Terminator {
			ev := &Event[T]{value: t}
			if r.incoming != nil {
				r.incoming(ev)
			} else {
				r.Forward(ev)
			}
			return func() {
				if r.leaving != nil {
					r.leaving(ev)
				} else {
					r.Retract(ev)
				}
			}
		})

		return newResult(
			func() {
				upstream.Start()
				if r.onStart != nil {
					r.onStart()
				}
			},
			func() error {
				err := upstream.Close()
				if r.onClose != nil {
					r.onClose()
				}
				if derr := closeTerminators(ctx.Logger, r.drain()); err == nil {
					err = derr
				}
				return err
			})
	})
}
