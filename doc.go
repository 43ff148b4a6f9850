/*
Package liveflow provides a Go library for building dynamic dataflow
pipelines over resources that appear and disappear at runtime.

Pipelines (pkg/flow):
  - flow: declarative pipeline values with Map, FlatMap, Filter, Effects
  - ApplyTo: live cross product of a value set and a function set
  - Route: imperative bridge for forwarding and retracting events
  - Probe: test harness for injecting values into a pipeline

Registries (pkg/registry):
  - registry: entry model, LDAP-style filters, in-memory registry
  - redisregistry: registry shared across processes through Redis
  - cronfeed: entries published on cron schedules

Supporting packages:
  - lifecycle: state machine for units hosting pipeline programs
  - metrics: Prometheus instrumentation for pipeline stages

Example usage:

	import (
		"github.com/vnykmshr/liveflow/pkg/flow"
		"github.com/vnykmshr/liveflow/pkg/registry"
	)

	reg := registry.NewMemory()
	res := flow.Map(flow.Entries("(type=endpoint)"),
		func(e registry.Entry) string { return e.Props["name"] }).
		Run(flow.NewContext(reg), func(name string) {
			log.Println("endpoint up:", name)
		})
	defer res.Close()

Every value a pipeline emits stays live until its source disappears or
the pipeline closes; teardown logic registered along the way runs
exactly once per emitted value.
*/
package liveflow
