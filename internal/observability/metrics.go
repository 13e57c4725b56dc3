package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Datagram results recorded by the listener.
const (
	ResultOK        = "ok"
	ResultMalformed = "malformed"
	ResultOversized = "oversized"
	ResultLimited   = "limited"
	ResultUnbound   = "unbound"
	ResultError     = "error"
)

var (
	registerOnce sync.Once

	datagramsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drawsync",
			Subsystem: "listener",
			Name:      "datagrams_total",
			Help:      "Inbound datagrams by outcome.",
		},
		[]string{"peer", "result"},
	)
	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drawsync",
			Subsystem: "listener",
			Name:      "dispatch_total",
			Help:      "Messages handed to the canvas by kind.",
		},
		[]string{"peer", "kind"},
	)
	datagramsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drawsync",
			Subsystem: "link",
			Name:      "datagrams_total",
			Help:      "Outbound datagrams by kind and outcome.",
		},
		[]string{"peer", "kind", "result"},
	)
	listenerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "drawsync",
			Subsystem: "service",
			Name:      "state",
			Help:      "1 for the current service state, 0 otherwise.",
		},
		[]string{"peer", "state"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drawsync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"peer", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "drawsync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"peer", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			datagramsReceived,
			dispatches,
			datagramsSent,
			listenerState,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordDatagram(peer, result string) {
	RegisterMetrics()
	datagramsReceived.WithLabelValues(peer, result).Inc()
}

func RecordDispatch(peer, kind string) {
	RegisterMetrics()
	dispatches.WithLabelValues(peer, kind).Inc()
}

func RecordSend(peer, kind string, err error) {
	RegisterMetrics()
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	datagramsSent.WithLabelValues(peer, kind, result).Inc()
}

// RecordState marks state as the only active state among known.
func RecordState(peer, state string, known []string) {
	RegisterMetrics()
	for _, s := range known {
		v := 0.0
		if s == state {
			v = 1
		}
		listenerState.WithLabelValues(peer, s).Set(v)
	}
}

func RecordHTTPRequest(peer, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(peer, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(peer, method, path, statusLabel).Observe(duration.Seconds())
}
