// Package metrics provides Prometheus metrics for liveflow.
//
// The package exposes a Registry of metric vectors covering pipeline
// stages, joins, probes, and registries, plus an Instrument combinator
// that counts adds and terminations through any pipeline stage:
//
//	counted := metrics.Instrument(flow.Entries("(type=endpoint)"), nil, "endpoints")
//
// Metrics default to the "liveflow" namespace on the global Prometheus
// registerer; both can be overridden through Config.
package metrics
