package flow

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Result is the lifecycle handle of one running flow instance. Running a
// Flow only wires callbacks; Start activates emission. The two-phase
// protocol lets n-ary combinators finish wiring every side before any
// notification can arrive.
//
// Start must be called exactly once, after all wiring is complete. Close is
// idempotent and safe to call concurrently with in-flight propagation; once
// it returns, no further adds are emitted and every terminator for adds
// delivered before close has been invoked.
type Result struct {
	startOnce sync.Once
	closeOnce sync.Once
	start     func()
	stop      func() error
	closed    atomic.Bool
}

func newResult(start func(), stop func() error) *Result {
	return &Result{start: start, stop: stop}
}

// Start activates emission. Subsequent calls are no-ops.
func (r *Result) Start() {
	r.startOnce.Do(r.start)
}

// Close tears the instance down, invoking every outstanding terminator.
// The first teardown failure becomes the cause of the returned error;
// repeated calls return nil.
func (r *Result) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		err = r.stop()
	})
	return err
}

// Closed reports whether Close has been called.
func (r *Result) Closed() bool {
	return r.closed.Load()
}

// onceTerminator wraps t so repeated invocations run it only once. Every
// propagated add is paired with exactly one termination, whether retracted
// upstream or torn down at close.
func onceTerminator(t Terminator) Terminator {
	var once sync.Once
	return func() { once.Do(t) }
}

// runTerminator invokes t, converting a panic into an error. Used only on
// the close path: during normal retraction, callback panics propagate to
// the notifying goroutine.
func runTerminator(t Terminator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("terminator panicked: %v", r)
		}
	}()
	t()
	return nil
}

// closeTerminators attempts every terminator even after one fails. The
// first failure becomes the cause of the aggregate error; later failures
// are logged.
func closeTerminators(logger zerolog.Logger, terms []Terminator) error {
	var first error
	extra := 0
	for _, t := range terms {
		if err := runTerminator(t); err != nil {
			if first == nil {
				first = err
				continue
			}
			extra++
			logger.Error().Err(err).Msg("teardown failure after first")
		}
	}
	if first == nil {
		return nil
	}
	if extra > 0 {
		return fmt.Errorf("teardown failed (%d further failures logged): %w", extra, first)
	}
	return fmt.Errorf("teardown failed: %w", first)
}

// combineClose closes every handle, best-effort, returning the first error.
func combineClose(results ...*Result) error {
	var first error
	for _, r := range results {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
