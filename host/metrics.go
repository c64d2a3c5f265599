package host

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_host_dispatch_calls_total",
			Help: "Number of channel calls by channel.",
		},
		[]string{"channel"},
	)
	dispatchNoImplementationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_host_dispatch_no_implementation_total",
			Help: "Number of channel calls that found no compatible subscriber.",
		},
		[]string{"channel"},
	)
	dispatchExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_host_dispatch_exhausted_total",
			Help: "Number of channel calls where every candidate subscriber failed.",
		},
		[]string{"channel"},
	)
	subscriberFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_host_subscriber_failures_total",
			Help: "Number of failed subscriber attempts by channel.",
		},
		[]string{"channel"},
	)
	decoratorFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_host_decorator_failures_total",
			Help: "Number of swallowed decorator failures by channel.",
		},
		[]string{"channel"},
	)
	dispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forge_host_dispatch_duration_seconds",
			Help:    "Time taken to dispatch a channel call, including fallback.",
			Buckets: prometheus.DefBuckets,
		},
	)
	busEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forge_host_bus_events_published_total",
			Help: "Number of notifications published by topic.",
		},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(
		dispatchCallsTotal,
		dispatchNoImplementationTotal,
		dispatchExhaustedTotal,
		subscriberFailuresTotal,
		decoratorFailuresTotal,
		dispatchDuration,
		busEventsPublished,
	)
}
