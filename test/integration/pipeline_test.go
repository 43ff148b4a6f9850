package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	tu "github.com/vnykmshr/liveflow/internal/testutil"
	"github.com/vnykmshr/liveflow/pkg/flow"
	"github.com/vnykmshr/liveflow/pkg/lifecycle"
	"github.com/vnykmshr/liveflow/pkg/metrics"
	"github.com/vnykmshr/liveflow/pkg/registry"
	"github.com/vnykmshr/liveflow/pkg/registry/cronfeed"
)

// TestServiceWiring runs a pipeline that pairs endpoints with handlers
// through a registry, verifying that every pairing formed is retracted
// exactly once as participants churn and when the unit stops.
func TestServiceWiring(t *testing.T) {
	reg := registry.NewMemory()
	ctx := flow.NewContext(reg)

	var mu sync.Mutex
	live := make(map[string]int)
	var formed, retracted int

	program := func(ctx *flow.Context) *flow.Result {
		endpoints := flow.Map(flow.Entries("(type=endpoint)"),
			func(e registry.Entry) string { return e.Props["name"] })
		handlers := flow.Map(flow.Entries("(type=handler)"),
			func(e registry.Entry) func(string) string {
				suffix := e.Props["suffix"]
				return func(name string) string { return name + suffix }
			})

		return flow.ApplyTo(endpoints, handlers).
			Effects(
				func(s string) {
					mu.Lock()
					live[s]++
					formed++
					mu.Unlock()
				},
				func(s string) {
					mu.Lock()
					live[s]--
					if live[s] == 0 {
						delete(live, s)
					}
					retracted++
					mu.Unlock()
				},
			).
			Run(ctx, nil)
	}

	unit := lifecycle.NewUnit("wiring", ctx, program)
	tu.AssertNoError(t, unit.Start())

	h := registry.NewEntry(nil, map[string]string{"type": "handler", "suffix": "-v1"})
	tu.AssertNoError(t, reg.Register(h))

	api := registry.NewEntry(nil, map[string]string{"type": "endpoint", "name": "api"})
	cache := registry.NewEntry(nil, map[string]string{"type": "endpoint", "name": "cache"})
	tu.AssertNoError(t, reg.Register(api))
	tu.AssertNoError(t, reg.Register(cache))

	mu.Lock()
	tu.AssertEqual(t, formed, 2)
	tu.AssertEqual(t, len(live), 2)
	mu.Unlock()

	// One endpoint leaves: only its pairing dies.
	tu.AssertNoError(t, reg.Deregister(api.ID))
	mu.Lock()
	tu.AssertEqual(t, retracted, 1)
	tu.AssertEqual(t, live["cache-v1"], 1)
	mu.Unlock()

	// Handler replaced: pairing is rebuilt with the new handler.
	tu.AssertNoError(t, reg.Deregister(h.ID))
	h2 := registry.NewEntry(nil, map[string]string{"type": "handler", "suffix": "-v2"})
	tu.AssertNoError(t, reg.Register(h2))

	mu.Lock()
	tu.AssertEqual(t, live["cache-v2"], 1)
	tu.AssertEqual(t, live["cache-v1"], 0)
	mu.Unlock()

	// Stopping the unit retracts everything and future churn is ignored.
	tu.AssertNoError(t, unit.Stop())
	mu.Lock()
	tu.AssertEqual(t, formed, retracted)
	tu.AssertEqual(t, len(live), 0)
	mu.Unlock()

	tu.AssertNoError(t, reg.Register(registry.NewEntry(nil,
		map[string]string{"type": "endpoint", "name": "late"})))
	mu.Lock()
	tu.AssertEqual(t, formed, retracted)
	mu.Unlock()
}

// TestScheduledAvailability drives a pipeline from a cron feed and
// checks the instrumented stage balances its adds and terminations.
func TestScheduledAvailability(t *testing.T) {
	reg := registry.NewMemory()
	mreg := metrics.NewRegistry(metrics.Config{Registry: prometheus.NewRegistry()})

	cfg := cronfeed.DefaultConfig()
	cfg.Publisher = reg
	feed, err := cronfeed.New(cfg)
	tu.AssertNoError(t, err)

	res := metrics.Instrument(flow.Entries("(type=window)"), mreg, "windows").
		Run(flow.NewContext(reg), nil)

	_, err = feed.AddWindow("@every 100ms", 80*time.Millisecond,
		map[string]string{"type": "window"}, nil)
	tu.AssertNoError(t, err)

	feed.Start()
	tu.Eventually(t, 3*time.Second, func() bool {
		return promtest.ToFloat64(mreg.PipelineTerminations.WithLabelValues("windows")) > 0
	})
	feed.Stop()
	tu.AssertNoError(t, res.Close())

	adds := promtest.ToFloat64(mreg.PipelineAdds.WithLabelValues("windows"))
	terms := promtest.ToFloat64(mreg.PipelineTerminations.WithLabelValues("windows"))
	liveGauge := promtest.ToFloat64(mreg.PipelineLive.WithLabelValues("windows"))

	tu.AssertEqual(t, adds > 0, true)
	tu.AssertEqual(t, adds, terms)
	tu.AssertEqual(t, liveGauge, 0.0)
}
