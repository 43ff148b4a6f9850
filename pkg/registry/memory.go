package registry

import (
	"fmt"
	"sync"

	errs "github.com/vnykmshr/liveflow/pkg/common/errors"
)

// Memory is an in-process Registry. Notifications are delivered
// synchronously on the goroutine calling Register or Deregister, one
// subscriber at a time; the subscriber's own lock serializes delivery
// against cancellation, so after Subscription.Close returns no further
// notifications arrive.
type Memory struct {
	mu      sync.Mutex
	closed  bool
	entries map[string]Entry
	subs    map[*memorySub]struct{}
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		subs:    make(map[*memorySub]struct{}),
	}
}

// Register publishes an entry, notifying matching subscribers before
// returning.
func (m *Memory) Register(e Entry) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("register %s: %w", e.ID, errs.ErrClosed)
	}
	if _, dup := m.entries[e.ID]; dup {
		m.mu.Unlock()
		return fmt.Errorf("register %s: %w: duplicate entry ID", e.ID, errs.ErrInvalidConfiguration)
	}
	m.entries[e.ID] = e
	subs := m.subscribers()
	m.mu.Unlock()

	for _, s := range subs {
		s.deliverAdd(e)
	}
	return nil
}

// Deregister retracts an entry by ID, notifying matching subscribers
// before returning.
func (m *Memory) Deregister(id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("deregister %s: %w", id, errs.ErrNotFound)
	}
	delete(m.entries, id)
	subs := m.subscribers()
	m.mu.Unlock()

	for _, s := range subs {
		s.deliverRemove(e)
	}
	return nil
}

// Subscribe implements Registry. Present matching entries are replayed as
// adds before Subscribe returns.
func (m *Memory) Subscribe(f Filter, h Handler) (Subscription, error) {
	s := &memorySub{registry: m, filter: f, handler: h, seen: make(map[string]bool)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("subscribe: %w", errs.ErrClosed)
	}
	m.subs[s] = struct{}{}
	replay := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		replay = append(replay, e)
	}
	m.mu.Unlock()

	for _, e := range replay {
		s.deliverAdd(e)
	}
	return s, nil
}

// Lookup implements Registry.
func (m *Memory) Lookup(f Filter) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if f.Matches(e.Props) {
			out = append(out, e)
		}
	}
	return out
}

// Close retracts every entry and cancels every subscription.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	remaining := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		remaining = append(remaining, e)
	}
	m.entries = map[string]Entry{}
	subs := m.subscribers()
	m.subs = map[*memorySub]struct{}{}
	m.mu.Unlock()

	for _, s := range subs {
		for _, e := range remaining {
			s.deliverRemove(e)
		}
		s.cancel()
	}
	return nil
}

func (m *Memory) subscribers() []*memorySub {
	out := make([]*memorySub, 0, len(m.subs))
	for s := range m.subs {
		out = append(out, s)
	}
	return out
}

type memorySub struct {
	registry *Memory
	filter   Filter
	handler  Handler

	mu       sync.Mutex
	canceled bool
	seen     map[string]bool // entries whose add this subscriber observed
}

func (s *memorySub) deliverAdd(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled || !s.filter.Matches(e.Props) || s.seen[e.ID] {
		return
	}
	s.seen[e.ID] = true
	if s.handler.OnAdd != nil {
		s.handler.OnAdd(e)
	}
}

func (s *memorySub) deliverRemove(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled || !s.seen[e.ID] {
		return
	}
	delete(s.seen, e.ID)
	if s.handler.OnRemove != nil {
		s.handler.OnRemove(e)
	}
}

func (s *memorySub) cancel() {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
}

// Close implements Subscription.
func (s *memorySub) Close() error {
	s.registry.mu.Lock()
	delete(s.registry.subs, s)
	s.registry.mu.Unlock()
	s.cancel()
	return nil
}
