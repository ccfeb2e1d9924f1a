package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Engine metrics
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "water_monitor_ticks_total",
			Help: "Total number of monitoring ticks executed",
		},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_alerts_total",
			Help: "Total number of alerts raised",
		},
		[]string{"type", "parameter"},
	)

	WQI = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "water_monitor_wqi",
			Help: "Water quality index of the current reading",
		},
	)

	ParameterValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "water_monitor_parameter_value",
			Help: "Latest value of each monitored parameter",
		},
		[]string{"parameter"},
	)

	// Insight metrics
	InsightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_insight_requests_total",
			Help: "Total number of insight requests",
		},
		[]string{"kind", "outcome"}, // outcome: success, fallback, skipped
	)

	InsightDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "water_monitor_insight_duration_seconds",
			Help:    "Latency of insight requests in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "water_monitor_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "water_monitor_websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)

	// Sink metrics
	SinkPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_sink_publish_total",
			Help: "Total number of events published to outbound sinks",
		},
		[]string{"sink", "status"}, // status: success, failed
	)

	DispatchDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "water_monitor_dispatch_dropped_total",
			Help: "Tick events dropped because the dispatch queue was full",
		},
	)

	DispatchQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "water_monitor_dispatch_queue_size",
			Help: "Current number of tick events waiting for dispatch",
		},
	)

	// Downstream services
	ArchiverWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_archiver_writes_total",
			Help: "Total number of records written by the archiver",
		},
		[]string{"store", "status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_notifications_total",
			Help: "Total number of alert notifications handled",
		},
		[]string{"status"}, // status: sent, skipped, failed
	)

	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "water_monitor_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
