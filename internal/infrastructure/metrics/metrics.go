package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatkit",
			Subsystem: "chat_api",
			Name:      "requests_total",
			Help:      "Total number of dispatched protocol requests",
		},
		[]string{"request_type", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatkit",
			Subsystem: "chat_api",
			Name:      "request_duration_seconds",
			Help:      "Protocol request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"request_type"},
	)

	// Emitted stream events
	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatkit",
			Subsystem: "chat_api",
			Name:      "stream_events_total",
			Help:      "Protocol events emitted on SSE streams",
		},
		[]string{"event_type"},
	)

	// Concurrently open streams
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatkit",
			Subsystem: "chat_api",
			Name:      "active_streams",
			Help:      "Streaming responses currently in flight",
		},
	)

	// Store operation duration
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatkit",
			Subsystem: "chat_api",
			Name:      "store_op_duration_seconds",
			Help:      "Thread store operation duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"op"},
	)

	// Threads removed by the retention sweeper
	SweptThreadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chatkit",
			Subsystem: "chat_api",
			Name:      "swept_threads_total",
			Help:      "Threads removed by the retention sweeper",
		},
	)
)

// RecordRequest records one dispatched protocol request.
func RecordRequest(requestType, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(requestType, status).Inc()
	RequestDuration.WithLabelValues(requestType).Observe(durationSec)
}

// RecordStreamEvent records one emitted protocol event.
func RecordStreamEvent(eventType string) {
	StreamEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordStoreOp records one store operation.
func RecordStoreOp(op string, durationSec float64) {
	StoreOpDuration.WithLabelValues(op).Observe(durationSec)
}
