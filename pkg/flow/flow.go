package flow

import (
	"github.com/rs/zerolog"

	"github.com/vnykmshr/liveflow/pkg/registry"
)

// Terminator undoes the effect of one specific add. Each terminator fires
// at most once; combinators guard repeated invocation.
type Terminator func()

// Callback receives one propagated value and returns the terminator for it.
type Callback[T any] func(T) Terminator

// Context carries the capabilities a flow program runs against: the
// resource registry it subscribes to and the logger used for teardown
// reporting. Contexts are shared between runs; per-run state lives inside
// each run instance.
type Context struct {
	Registry registry.Registry
	Logger   zerolog.Logger
}

// NewContext creates a Context over the given registry with a no-op logger.
func NewContext(reg registry.Registry) *Context {
	return &Context{Registry: reg, Logger: zerolog.Nop()}
}

// WithLogger returns a copy of the context using the given logger.
func (c *Context) WithLogger(logger zerolog.Logger) *Context {
	out := *c
	out.Logger = logger
	return &out
}

// Flow is an inert, re-runnable description of a pipeline stage. Running a
// Flow wires it against a context and returns a Result handle; no value is
// emitted until Result.Start is called. The same Flow may be run any number
// of times, each run holding fully isolated state.
type Flow[T any] struct {
	run func(ctx *Context, cb Callback[T]) *Result
}

// New creates a Flow from a run function. The run function must only wire
// state: emission begins when the returned Result is started.
func New[T any](run func(ctx *Context, cb Callback[T]) *Result) Flow[T] {
	return Flow[T]{run: run}
}

// Run instantiates the flow against ctx, forwarding every emitted value to
// andThen (which may be nil), and starts it. Close the returned Result to
// tear the instance down.
func (f Flow[T]) Run(ctx *Context, andThen func(T)) *Result {
	if ctx == nil {
		ctx = NewContext(nil)
	}
	res := f.run(ctx, func(t T) Terminator {
		if andThen != nil {
			andThen(t)
		}
		return func() {}
	})
	res.Start()
	return res
}

// Just emits a single value when started and retracts it on close.
func Just[T any](v T) Flow[T] {
	return New(func(ctx *Context, cb Callback[T]) *Result {
		var term Terminator
		return newResult(
			func() {
				term = cb(v)
			},
			func() error {
				if term == nil {
					return nil
				}
				return closeTerminators(ctx.Logger, []Terminator{term})
			})
	})
}

// Nothing emits no values. It is the empty sub-pipeline Filter forwards
// rejected values into.
func Nothing[T any]() Flow[T] {
	return New(func(*Context, Callback[T]) *Result {
		return newResult(func() {}, func() error { return nil })
	})
}
