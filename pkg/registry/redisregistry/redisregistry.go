package redisregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	errs "github.com/vnykmshr/liveflow/pkg/common/errors"
	"github.com/vnykmshr/liveflow/pkg/registry"
)

// RedisRegistry is a registry.Registry whose entries are shared across
// processes through Redis. Entries live in a hash for lookup and replay;
// add and remove notifications fan out over a pub/sub channel.
//
// Entry values must be JSON-serializable; an entry published by another
// process carries the decoded JSON as its value.
type RedisRegistry struct {
	config Config
	keys   map[string]string
	logger zerolog.Logger

	pubsub *redis.PubSub

	mu     sync.Mutex
	closed bool
	subs   map[*redisSub]struct{}
}

const (
	opAdd    = "add"
	opRemove = "remove"
)

// wireEntry is the JSON shape of an entry in the hash and on the channel.
type wireEntry struct {
	ID    string            `json:"id"`
	Props map[string]string `json:"props"`
	Value json.RawMessage   `json:"value,omitempty"`
}

type wireEvent struct {
	Op    string    `json:"op"`
	Entry wireEntry `json:"entry"`
}

func registryKeys(prefix string) map[string]string {
	return map[string]string{
		"entries": prefix + ":entries",
		"events":  prefix + ":events",
	}
}

// New creates a Redis-backed registry and starts listening for remote
// notifications.
func New(config Config, logger zerolog.Logger) (*RedisRegistry, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	config = applyConfigDefaults(config)

	r := &RedisRegistry{
		config: config,
		keys:   registryKeys(config.KeyPrefix),
		logger: logger.With().Str("component", "redisregistry").Logger(),
		subs:   make(map[*redisSub]struct{}),
	}

	r.pubsub = config.Redis.Subscribe(context.Background(), r.keys["events"])
	// Wait for the subscription to be confirmed so events published after
	// New returns are never missed.
	if _, err := r.pubsub.Receive(context.Background()); err != nil {
		_ = r.pubsub.Close()
		return nil, &RedisError{"subscribe", err}
	}
	go r.dispatch()

	return r, nil
}

// Register publishes an entry to the shared hash and notifies every
// process listening on the events channel, this one included.
func (r *RedisRegistry) Register(ctx context.Context, e registry.Entry) error {
	we, err := toWire(e)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(wireEvent{Op: opAdd, Entry: we})
	if err != nil {
		return fmt.Errorf("register %s: %w", e.ID, err)
	}
	raw, err := json.Marshal(we)
	if err != nil {
		return fmt.Errorf("register %s: %w", e.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.RedisTimeout)
	defer cancel()

	set, err := r.config.Redis.HSetNX(ctx, r.keys["entries"], e.ID, raw).Result()
	if err != nil {
		return &RedisError{"register", err}
	}
	if !set {
		return fmt.Errorf("register %s: %w: duplicate entry ID", e.ID, errs.ErrInvalidConfiguration)
	}

	pipe := r.config.Redis.Pipeline()
	pipe.Expire(ctx, r.keys["entries"], r.config.KeyTTL)
	pipe.Publish(ctx, r.keys["events"], payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return &RedisError{"register", err}
	}
	return nil
}

// Deregister retracts an entry by ID and notifies every listening
// process.
func (r *RedisRegistry) Deregister(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.RedisTimeout)
	defer cancel()

	raw, err := r.config.Redis.HGet(ctx, r.keys["entries"], id).Result()
	if err == redis.Nil {
		return fmt.Errorf("deregister %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return &RedisError{"deregister", err}
	}

	var we wireEntry
	if err := json.Unmarshal([]byte(raw), &we); err != nil {
		return fmt.Errorf("deregister %s: %w", id, err)
	}
	payload, err := json.Marshal(wireEvent{Op: opRemove, Entry: we})
	if err != nil {
		return fmt.Errorf("deregister %s: %w", id, err)
	}

	pipe := r.config.Redis.Pipeline()
	pipe.HDel(ctx, r.keys["entries"], id)
	pipe.Publish(ctx, r.keys["events"], payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return &RedisError{"deregister", err}
	}
	return nil
}

// Subscribe implements registry.Registry. Present matching entries are
// replayed as adds before Subscribe returns; remote notifications arrive
// on the pub/sub dispatch goroutine.
func (r *RedisRegistry) Subscribe(f registry.Filter, h registry.Handler) (registry.Subscription, error) {
	s := &redisSub{registry: r, filter: f, handler: h, seen: make(map[string]bool)}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, fmt.Errorf("subscribe: %w", errs.ErrClosed)
	}
	r.subs[s] = struct{}{}
	r.mu.Unlock()

	for _, e := range r.snapshot() {
		s.deliverAdd(e)
	}
	return s, nil
}

// Lookup implements registry.Registry.
func (r *RedisRegistry) Lookup(f registry.Filter) []registry.Entry {
	var out []registry.Entry
	for _, e := range r.snapshot() {
		if f.Matches(e.Props) {
			out = append(out, e)
		}
	}
	return out
}

// Close stops delivery to local subscribers and releases the pub/sub
// connection. Entries stay in Redis for other processes.
func (r *RedisRegistry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := make([]*redisSub, 0, len(r.subs))
	for s := range r.subs {
		subs = append(subs, s)
	}
	r.subs = map[*redisSub]struct{}{}
	r.mu.Unlock()

	for _, s := range subs {
		s.cancel()
	}
	return r.pubsub.Close()
}

func (r *RedisRegistry) snapshot() []registry.Entry {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.RedisTimeout)
	defer cancel()

	raw, err := r.config.Redis.HGetAll(ctx, r.keys["entries"]).Result()
	if err != nil {
		r.logger.Error().Err(err).Msg("entry snapshot failed")
		return nil
	}

	out := make([]registry.Entry, 0, len(raw))
	for id, v := range raw {
		var we wireEntry
		if err := json.Unmarshal([]byte(v), &we); err != nil {
			r.logger.Warn().Str("entry", id).Err(err).Msg("skipping undecodable entry")
			continue
		}
		out = append(out, fromWire(we))
	}
	return out
}

func (r *RedisRegistry) dispatch() {
	for msg := range r.pubsub.Channel() {
		var ev wireEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			r.logger.Warn().Err(err).Msg("skipping undecodable event")
			continue
		}
		e := fromWire(ev.Entry)

		r.mu.Lock()
		subs := make([]*redisSub, 0, len(r.subs))
		for s := range r.subs {
			subs = append(subs, s)
		}
		r.mu.Unlock()

		for _, s := range subs {
			switch ev.Op {
			case opAdd:
				s.deliverAdd(e)
			case opRemove:
				s.deliverRemove(e)
			default:
				r.logger.Warn().Str("op", ev.Op).Msg("unknown event op")
			}
		}
	}
}

func toWire(e registry.Entry) (wireEntry, error) {
	we := wireEntry{ID: e.ID, Props: e.Props}
	if e.Value != nil {
		raw, err := json.Marshal(e.Value)
		if err != nil {
			return wireEntry{}, fmt.Errorf("encode entry %s value: %w", e.ID, err)
		}
		we.Value = raw
	}
	return we, nil
}

func fromWire(we wireEntry) registry.Entry {
	e := registry.Entry{ID: we.ID, Props: we.Props}
	if len(we.Value) > 0 {
		var v any
		if err := json.Unmarshal(we.Value, &v); err == nil {
			e.Value = v
		}
	}
	return e
}

type redisSub struct {
	registry *RedisRegistry
	filter   registry.Filter
	handler  registry.Handler

	mu       sync.Mutex
	canceled bool
	seen     map[string]bool
}

func (s *redisSub) deliverAdd(e registry.Entry) {
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

func (s *redisSub) deliverRemove(e registry.Entry) {
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

func (s *redisSub) cancel() {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
}

// Close implements registry.Subscription.
func (s *redisSub) Close() error {
	s.registry.mu.Lock()
	delete(s.registry.subs, s)
	s.registry.mu.Unlock()
	s.cancel()
	return nil
}
