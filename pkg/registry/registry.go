package registry

import (
	"github.com/google/uuid"
)

// Entry is one live resource in the registry: an opaque value plus the
// properties filters match against. Entries are immutable once published.
type Entry struct {
	// ID uniquely identifies the entry across its lifetime.
	ID string

	// Props are the entry's matchable properties.
	Props map[string]string

	// Value is the resource itself.
	Value any
}

// NewEntry creates an entry with a generated ID.
func NewEntry(value any, props map[string]string) Entry {
	return Entry{
		ID:    uuid.NewString(),
		Props: props,
		Value: value,
	}
}

// Handler receives add and remove notifications for one subscription.
// Either callback may be nil. A remove is delivered at most once per add,
// and for one entry the add always precedes its remove.
type Handler struct {
	OnAdd    func(Entry)
	OnRemove func(Entry)
}

// Subscription is the handle for one active subscription. Close cancels
// delivery; once it returns, no further notifications arrive. Close must
// not be called from inside the subscription's own handler.
type Subscription interface {
	Close() error
}

// Registry is the capability the flow engine consumes: subscribe to
// add/remove notifications for matching entries, and look entries up
// synchronously. Subscribing replays every currently-present matching
// entry as an add before new notifications flow.
type Registry interface {
	Subscribe(f Filter, h Handler) (Subscription, error)
	Lookup(f Filter) []Entry
}
