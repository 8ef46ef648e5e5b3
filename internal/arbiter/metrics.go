package arbiter

import "github.com/prometheus/client_golang/prometheus"

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "arbiter",
			Name:      "transitions_total",
			Help:      "State transitions by destination state",
		},
		[]string{"to"},
	)

	lockCountGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sentinel",
			Subsystem: "arbiter",
			Name:      "lock_count",
			Help:      "Current reference count of explicit lock holders",
		},
	)

	pausesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "arbiter",
			Name:      "pauses_total",
			Help:      "Pause commands issued to the inference service",
		},
	)

	resumesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "arbiter",
			Name:      "resumes_total",
			Help:      "Resume commands issued to the inference service",
		},
	)
)

func init() {
	prometheus.MustRegister(transitionsTotal, lockCountGauge, pausesTotal, resumesTotal)
}
