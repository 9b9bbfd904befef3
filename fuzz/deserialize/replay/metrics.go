package replay

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainfuzz_invocations_total",
			Help: "Number of replayed inputs by target and outcome.",
		},
		[]string{"target", "outcome"},
	)
	inputBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chainfuzz_input_bytes_total",
			Help: "Number of replayed input bytes.",
		},
	)
	replayCollectors = []prometheus.Collector{
		invocations,
		inputBytes,
	}

	metricsOnce sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(replayCollectors...)
	})
}
