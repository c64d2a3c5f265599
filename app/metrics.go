package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	componentsRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forge_app_components_registered",
			Help: "Number of currently registered components.",
		},
	)
	componentsReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forge_app_components_ready",
			Help: "Number of components with a live instance.",
		},
	)
	componentInitFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forge_app_component_init_failures_total",
			Help: "Total number of failed component initializations.",
		},
	)
	componentInitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forge_app_component_init_duration_seconds",
			Help:    "Time taken to initialize a component.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		componentsRegistered,
		componentsReady,
		componentInitFailuresTotal,
		componentInitDuration,
	)
}
