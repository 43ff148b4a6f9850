package flow

import (
	"sync"
)

// FromChannel bridges a Go channel into a pipeline. Every value received
// after the run starts is emitted downstream and stays live until the
// run closes; a plain channel carries no retraction signal, so use a
// Probe or a Router when values need individual lifetimes.
//
// The receive loop stops when the channel is closed or the run closes,
// whichever comes first. Close waits for the loop to exit before
// draining.
func FromChannel[T any](ch <-chan T) Flow[T] {
	return New(func(ctx *Context, cb Callback[T]) *Result {
		probe := NewProbe[T]()
		inner := probe.Flow().run(ctx, cb)

		done := make(chan struct{})
		var wg sync.WaitGroup

		return newResult(
			func() {
				inner.Start()
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						select {
						case v, ok := <-ch:
							if !ok {
								return
							}
							probe.Inject(v)
						case <-done:
							return
						}
					}
				}()
			},
			func() error {
				close(done)
				wg.Wait()
				return inner.Close()
			})
	})
}
