// Package cronfeed publishes registry entries on a schedule.
//
// A window names a cron expression, a duration, and an entry template:
// each time the expression fires, a fresh entry is registered, and it is
// deregistered again when the duration elapses. Pipelines observing the
// registry see the resource appear and disappear with the schedule,
// which suits resources that are only valid during maintenance windows,
// business hours, or periodic refresh cycles.
package cronfeed

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vnykmshr/liveflow/pkg/registry"
)

// Publisher is the registry surface the feed writes to. Both
// registry.Memory and the Redis-backed registry can be adapted to it.
type Publisher interface {
	Register(e registry.Entry) error
	Deregister(id string) error
}

// Config holds configuration for a cron feed.
type Config struct {
	// Publisher receives the scheduled entries.
	Publisher Publisher

	// Location is the timezone for cron expression evaluation.
	// Defaults to time.Local.
	Location *time.Location

	// Logger receives window open and close events.
	Logger zerolog.Logger
}

// DefaultConfig returns a default cron feed configuration.
func DefaultConfig() Config {
	return Config{
		Location: time.Local,
		Logger:   zerolog.Nop(),
	}
}

// validateConfig validates the feed configuration.
func validateConfig(config Config) error {
	if config.Publisher == nil {
		return &ConfigError{"publisher is required"}
	}
	return nil
}

// applyConfigDefaults sets default values for unspecified config fields.
func applyConfigDefaults(config Config) Config {
	if config.Location == nil {
		config.Location = time.Local
	}
	return config
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "cron feed config error: " + e.Message
}

// Feed schedules availability windows. Windows may be added before or
// after Start; Stop retracts every window still open.
type Feed struct {
	config Config
	cron   *cron.Cron
	logger zerolog.Logger

	mu   sync.Mutex
	open map[string]*time.Timer // entry ID -> close timer
}

// New creates a cron feed.
func New(config Config) (*Feed, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	config = applyConfigDefaults(config)

	return &Feed{
		config: config,
		cron:   cron.New(cron.WithLocation(config.Location)),
		logger: config.Logger.With().Str("component", "cronfeed").Logger(),
		open:   make(map[string]*time.Timer),
	}, nil
}

// AddWindow schedules an availability window. Each firing of the cron
// expression registers a fresh entry carrying the given properties and
// value; the entry is deregistered when the duration elapses. Supports
// the standard five-field format plus descriptors such as "@hourly" and
// "@every 30s".
func (f *Feed) AddWindow(spec string, duration time.Duration, props map[string]string, value any) (cron.EntryID, error) {
	if duration <= 0 {
		return 0, &ConfigError{"window duration must be positive"}
	}
	return f.cron.AddFunc(spec, func() {
		f.openWindow(duration, props, value)
	})
}

// RemoveWindow cancels a scheduled window. Entries from firings that
// already happened stay registered until their duration elapses.
func (f *Feed) RemoveWindow(id cron.EntryID) {
	f.cron.Remove(id)
}

// Start begins evaluating window schedules.
func (f *Feed) Start() {
	f.cron.Start()
}

// Stop cancels all schedules, waits for in-flight firings, and retracts
// every window still open.
func (f *Feed) Stop() {
	<-f.cron.Stop().Done()

	f.mu.Lock()
	timers := make(map[string]*time.Timer, len(f.open))
	for id, t := range f.open {
		timers[id] = t
	}
	f.open = make(map[string]*time.Timer)
	f.mu.Unlock()

	for id, t := range timers {
		t.Stop()
		f.close(id)
	}
}

func (f *Feed) openWindow(duration time.Duration, props map[string]string, value any) {
	e := registry.NewEntry(value, props)
	if err := f.config.Publisher.Register(e); err != nil {
		f.logger.Error().Err(err).Msg("window open failed")
		return
	}
	f.logger.Debug().Str("entry", e.ID).Dur("duration", duration).Msg("window opened")

	f.mu.Lock()
	f.open[e.ID] = time.AfterFunc(duration, func() {
		f.mu.Lock()
		_, live := f.open[e.ID]
		delete(f.open, e.ID)
		f.mu.Unlock()
		if live {
			f.close(e.ID)
		}
	})
	f.mu.Unlock()
}

func (f *Feed) close(id string) {
	if err := f.config.Publisher.Deregister(id); err != nil {
		f.logger.Error().Str("entry", id).Err(err).Msg("window close failed")
		return
	}
	f.logger.Debug().Str("entry", id).Msg("window closed")
}
