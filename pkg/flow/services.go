package flow

import (
	"fmt"
	"sync"

	"github.com/vnykmshr/liveflow/pkg/registry"
)

// Entries emits every registry entry matching the filter expression as an
// add, and retracts it when the registry removes the entry. A malformed
// expression is a fatal configuration error surfaced immediately at
// construction; it is never retried.
func Entries(filter string) Flow[registry.Entry] {
	return EntriesMatching(registry.MustFilter(filter))
}

// EntriesMatching is Entries over an already-parsed filter.
func EntriesMatching(f registry.Filter) Flow[registry.Entry] {
	return New(func(ctx *Context, cb Callback[registry.Entry]) *Result {
		var mu sync.Mutex
		closed := false
		live := make(map[string]Terminator)
		var sub registry.Subscription

		return newResult(
			func() {
				s, err := ctx.Registry.Subscribe(f, registry.Handler{
					OnAdd: func(e registry.Entry) {
						term := onceTerminator(cb(e))
						mu.Lock()
						if closed {
							mu.Unlock()
							term()
							return
						}
						live[e.ID] = term
						mu.Unlock()
					},
					OnRemove: func(e registry.Entry) {
						mu.Lock()
						term := live[e.ID]
						delete(live, e.ID)
						mu.Unlock()
						if term != nil {
							term()
						}
					},
				})
				if err != nil {
					panic(fmt.Errorf("subscribe %s: %w", f, err))
				}
				mu.Lock()
				sub = s
				mu.Unlock()
			},
			func() error {
				mu.Lock()
				closed = true
				s := sub
				terms := make([]Terminator, 0, len(live))
				for _, t := range live {
					terms = append(terms, t)
				}
				live = map[string]Terminator{}
				mu.Unlock()

				// Cancel delivery first so no add slips in behind the
				// drain.
				var err error
				if s != nil {
					err = s.Close()
				}
				if derr := closeTerminators(ctx.Logger, terms); err == nil {
					err = derr
				}
				return err
			})
	})
}
