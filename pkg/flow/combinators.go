package flow

// Map transforms each value through fn before forwarding it downstream.
// Add and remove timing is unchanged: the mapped value's terminator is the
// downstream terminator itself.
func Map[T, S any](f Flow[T], fn func(T) S) Flow[S] {
	return New(func(ctx *Context, cb Callback[S]) *Result {
		return f.run(ctx, func(t T) Terminator {
			return cb(fn(t))
		})
	})
}

// FlatMap runs fn(value) as a nested flow for each upstream add, forwarding
// the nested flow's own adds downstream. The nested instance lives exactly
// as long as its triggering add: it is torn down when that add is retracted
// or when the outer pipeline closes.
func FlatMap[T, S any](f Flow[T], fn func(T) Flow[S]) Flow[S] {
	return New(func(ctx *Context, cb Callback[S]) *Result {
		return f.run(ctx, func(t T) Terminator {
			inner := fn(t).run(ctx, cb)
			inner.Start()
			return func() {
				if err := inner.Close(); err != nil {
					ctx.Logger.Error().Err(err).Msg("nested flow teardown failed")
				}
			}
		})
	})
}

// Then sequences next after each value of f, discarding f's values.
func Then[T, S any](f Flow[T], next Flow[S]) Flow[S] {
	return FlatMap(f, func(T) Flow[S] { return next })
}

// Ignore discards the values of f, keeping its add/remove timing.
func Ignore[T any](f Flow[T]) Flow[struct{}] {
	return Map(f, func(T) struct{} { return struct{}{} })
}

// Filter forwards only values matching pred. A rejected value flows into an
// empty sub-pipeline: nothing is propagated and no terminator is created
// for it.
func (f Flow[T]) Filter(pred func(T) bool) Flow[T] {
	return FlatMap(f, func(t T) Flow[T] {
		if pred(t) {
			return Just(t)
		}
		return Nothing[T]()
	})
}

// Effects invokes onAdded synchronously before forwarding each value and
// folds onRemoved into the returned terminator, so every onAdded is
// eventually balanced by exactly one onRemoved. Either callback may be nil.
func (f Flow[T]) Effects(onAdded, onRemoved func(T)) Flow[T] {
	return New(func(ctx *Context, cb Callback[T]) *Result {
		return f.run(ctx, func(t T) Terminator {
			if onAdded != nil {
				onAdded(t)
			}
			term := cb(t)
			return func() {
				if onRemoved != nil {
					onRemoved(t)
				}
				term()
			}
		})
	})
}

// Foreach consumes each value with onAdded and balances it with onRemoved
// when the value is retracted. It is Effects with the values discarded.
func (f Flow[T]) Foreach(onAdded, onRemoved func(T)) Flow[struct{}] {
	return Ignore(f.Effects(onAdded, onRemoved))
}
