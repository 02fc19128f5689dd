package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duploctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "duploctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duploctl",
			Name:      "frames_total",
			Help:      "Inbound hub frames by message type and dispatch outcome.",
		},
		[]string{"type", "outcome"},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duploctl",
			Name:      "commands_total",
			Help:      "Commands sent to the hub by kind and status.",
		},
		[]string{"kind", "status"},
	)
	wearableEdges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duploctl",
			Name:      "wearable_edges_total",
			Help:      "Toothbrush edges acted on by the bridge.",
		},
		[]string{"edge"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, framesTotal, commandsTotal, wearableEdges)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// Frame outcomes.
const (
	OutcomeHandled  = "handled"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
)

func RecordFrame(messageType, outcome string) {
	RegisterMetrics()
	framesTotal.WithLabelValues(messageType, outcome).Inc()
}

func RecordCommand(kind string, err error) {
	RegisterMetrics()
	status := "ok"
	if err != nil {
		status = "error"
	}
	commandsTotal.WithLabelValues(kind, status).Inc()
}

func RecordWearableEdge(edge string) {
	RegisterMetrics()
	wearableEdges.WithLabelValues(edge).Inc()
}
