package fetcher

import "github.com/prometheus/client_golang/prometheus"

// Drain metrics, registered once at startup via RegisterMetrics.
var (
	drainsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "s3i_drains_total",
		Help: "Total number of drain invocations.",
	})

	drainErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "s3i_drain_errors_total",
		Help: "Drains aborted by a receive failure.",
	})

	messagesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "s3i_messages_processed_total",
		Help: "Messages handled successfully.",
	})

	messagesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "s3i_messages_failed_total",
		Help: "Messages that failed parsing or handling.",
	})
)

// RegisterMetrics registers the drain metrics with the default registry.
func RegisterMetrics() {
	prometheus.MustRegister(drainsTotal, drainErrors, messagesProcessed, messagesFailed)
}
