// Package metrics provides Prometheus instrumentation for liveflow
// pipelines and registries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for liveflow components.
type Registry struct {
	// Pipeline metrics
	PipelineAdds         *prometheus.CounterVec
	PipelineTerminations *prometheus.CounterVec
	PipelineLive         *prometheus.GaugeVec

	// Join metrics
	JoinPairsCreated    *prometheus.CounterVec
	JoinPairsTerminated *prometheus.CounterVec

	// Probe metrics
	ProbeInjections *prometheus.CounterVec

	// Registry metrics
	RegistryEntries       *prometheus.GaugeVec
	RegistryNotifications *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by liveflow
// components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(DefaultConfig())
}

// NewRegistry creates a metrics registry with the given configuration.
func NewRegistry(cfg Config) *Registry {
	cfg = applyConfigDefaults(cfg)
	factory := promauto.With(cfg.Registry)

	return &Registry{
		PipelineAdds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   "pipeline",
				Name:        "adds_total",
				Help:        "Total number of values added to instrumented pipeline stages",
				ConstLabels: cfg.Labels,
			},
			[]string{"stage"},
		),

		PipelineTerminations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   "pipeline",
				Name:        "terminations_total",
				Help:        "Total number of values retracted from instrumented pipeline stages",
				ConstLabels: cfg.Labels,
			},
			[]string{"stage"},
		),

		PipelineLive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   "pipeline",
				Name:        "live",
				Help:        "Number of values currently live in instrumented pipeline stages",
				ConstLabels: cfg.Labels,
			},
			[]string{"stage"},
		),

		JoinPairsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   "join",
				Name:        "pairs_created_total",
				Help:        "Total number of join pairs created",
				ConstLabels: cfg.Labels,
			},
			[]string{"join"},
		),

		JoinPairsTerminated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   "join",
				Name:        "pairs_terminated_total",
				Help:        "Total number of join pairs terminated",
				ConstLabels: cfg.Labels,
			},
			[]string{"join"},
		),

		ProbeInjections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   "probe",
				Name:        "injections_total",
				Help:        "Total number of values injected through probes",
				ConstLabels: cfg.Labels,
			},
			[]string{"probe"},
		),

		RegistryEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   "registry",
				Name:        "entries",
				Help:        "Number of entries currently registered",
				ConstLabels: cfg.Labels,
			},
			[]string{"registry"},
		),

		RegistryNotifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Subsystem:   "registry",
				Name:        "notifications_total",
				Help:        "Total number of add and remove notifications delivered",
				ConstLabels: cfg.Labels,
			},
			[]string{"registry", "kind"},
		),
	}
}
