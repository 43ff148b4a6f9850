package metrics

import (
	"github.com/vnykmshr/liveflow/pkg/flow"
)

// Instrument wraps a pipeline stage so that every add and every
// termination flowing through it is counted under the given stage label,
// with a live gauge tracking the difference. Values pass through
// unchanged.
func Instrument[T any](f flow.Flow[T], reg *Registry, stage string) flow.Flow[T] {
	if reg == nil {
		reg = DefaultRegistry
	}
	adds := reg.PipelineAdds.WithLabelValues(stage)
	terms := reg.PipelineTerminations.WithLabelValues(stage)
	live := reg.PipelineLive.WithLabelValues(stage)

	return f.Effects(
		func(T) {
			adds.Inc()
			live.Inc()
		},
		func(T) {
			terms.Inc()
			live.Dec()
		},
	)
}
