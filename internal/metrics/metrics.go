// Package metrics registers the application's Prometheus metric families.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every metric family the server exports.
type Metrics struct {
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	ReactionsTotal prometheus.CounterVec
	CommentsTotal  prometheus.CounterVec

	WebSocketConnections    prometheus.GaugeVec
	WebSocketMessagesTotal  prometheus.CounterVec
	WebSocketRoomOccupancy  prometheus.GaugeVec
	WebSocketDroppedClients prometheus.CounterVec

	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

func counter(name, help string, labels ...string) prometheus.CounterVec {
	return *promauto.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func gauge(name, help string, labels ...string) prometheus.GaugeVec {
	return *promauto.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
}

// Initialize registers everything exactly once; promauto panics on
// duplicate registration, hence the sync.Once.
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: counter("http_requests_total",
				"Total number of HTTP requests", "method", "path", "status"),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: gauge("http_active_connections",
				"Number of currently active HTTP connections", "method", "path"),

			ReactionsTotal: counter("reactions_total",
				"Total number of reaction writes", "type", "action"),
			CommentsTotal: counter("comments_total",
				"Total number of comments created", "threaded"),

			WebSocketConnections: gauge("websocket_connections",
				"Number of active WebSocket connections", "state"),
			WebSocketMessagesTotal: counter("websocket_messages_total",
				"Total WebSocket messages by direction", "direction", "type"),
			WebSocketRoomOccupancy: gauge("websocket_room_occupancy",
				"Number of clients in each post room", "room"),
			WebSocketDroppedClients: counter("websocket_dropped_clients_total",
				"Clients dropped for slow consumption", "reason"),

			CacheHitsTotal: counter("cache_hits_total",
				"Total number of cache hits", "cache_name"),
			CacheMissesTotal: counter("cache_misses_total",
				"Total number of cache misses", "cache_name"),

			ErrorsTotal: counter("errors_total",
				"Total number of errors by type", "error_type", "endpoint"),
		}
	})
	return instance
}

// Get returns the singleton, initializing on first use.
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
