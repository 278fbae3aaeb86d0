package prometheus

import (
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MakeMetrics returns the request counter and latency summary of a service,
// both labeled by method.
func MakeMetrics(namespace, subsystem string) (metrics.Counter, metrics.Histogram) {
	counter := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method"})
	latency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_latency_microseconds",
		Help:      "Total duration of requests in microseconds.",
	}, []string{"method"})

	return counter, latency
}

// CycleMetrics are the monitor loop instruments.
type CycleMetrics struct {
	// Cycles counts passes, labeled by outcome.
	Cycles metrics.Counter
	// Alerts counts confirmed processes, labeled by reason.
	Alerts      metrics.Counter
	SystemUsage metrics.Gauge
	Candidates  metrics.Gauge
	Duration    metrics.Histogram
}

func MakeCycleMetrics(namespace, subsystem string) CycleMetrics {
	return CycleMetrics{
		Cycles: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycles_total",
			Help:      "Number of monitoring cycles run.",
		}, []string{"outcome"}),
		Alerts: kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_total",
			Help:      "Number of confirmed over budget processes.",
		}, []string{"reason"}),
		SystemUsage: kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "system_cpu_usage_percent",
			Help:      "System CPU usage over the last cycle.",
		}, []string{}),
		Candidates: kitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "candidates",
			Help:      "Processes awaiting confirmation.",
		}, []string{}),
		Duration: kitprometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of monitoring cycles.",
			Buckets:   stdprometheus.DefBuckets,
		}, []string{}),
	}
}
