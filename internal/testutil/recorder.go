package testutil

import (
	"sync"
)

// Recorder tracks add and terminate notifications across goroutines.
// It is the shared harness for flow combinator and lifecycle tests: every
// observed value should eventually be terminated exactly once.
type Recorder[T comparable] struct {
	mu         sync.Mutex
	added      []T
	terminated []T
}

// NewRecorder creates an empty Recorder.
func NewRecorder[T comparable]() *Recorder[T] {
	return &Recorder[T]{}
}

// Add records an observed value and returns a terminator recording its
// retraction.
func (r *Recorder[T]) Add(v T) func() {
	r.mu.Lock()
	r.added = append(r.added, v)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		r.terminated = append(r.terminated, v)
		r.mu.Unlock()
	}
}

// Added returns a copy of all recorded adds in arrival order.
func (r *Recorder[T]) Added() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.added))
	copy(out, r.added)
	return out
}

// Terminated returns a copy of all recorded terminations in arrival order.
func (r *Recorder[T]) Terminated() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.terminated))
	copy(out, r.terminated)
	return out
}

// Live returns the multiset of values added but not yet terminated.
func (r *Recorder[T]) Live() map[T]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := make(map[T]int)
	for _, v := range r.added {
		live[v]++
	}
	for _, v := range r.terminated {
		live[v]--
		if live[v] == 0 {
			delete(live, v)
		}
	}
	return live
}

// Counts returns the number of adds and terminations recorded so far.
func (r *Recorder[T]) Counts() (added, terminated int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.added), len(r.terminated)
}
