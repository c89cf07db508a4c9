// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger client metrics
	RPCCallLatency  *prometheus.HistogramVec
	RPCCallErrors   *prometheus.CounterVec
	WSNotifications prometheus.Counter
	WSReconnects    prometheus.Counter

	// Analysis metrics
	TraceRunsTotal      *prometheus.CounterVec
	TraceDuration       prometheus.Histogram
	TransfersDiscovered prometheus.Counter
	AddressesVisited    prometheus.Counter
	ClusterRunsTotal    *prometheus.CounterVec
	ClusterSize         prometheus.Histogram
	ScansTotal          *prometheus.CounterVec
	ScanDuration        *prometheus.HistogramVec
	HeuristicFindings   *prometheus.CounterVec

	// Watch metrics
	TransfersPublished *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulTrace prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_wallet_inspector"
	}

	return &Metrics{
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls by kind",
		}, []string{"method", "kind"}),
		WSNotifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "Total number of logs notifications received",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of websocket reconnects",
		}),

		TraceRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trace",
			Name:      "runs_total",
			Help:      "Total number of trace runs by status",
		}, []string{"status"}),
		TraceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trace",
			Name:      "duration_seconds",
			Help:      "Trace run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		TransfersDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trace",
			Name:      "transfers_discovered_total",
			Help:      "Total number of distinct transfers discovered by trace runs",
		}),
		AddressesVisited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trace",
			Name:      "addresses_visited_total",
			Help:      "Total number of address histories fetched by trace runs",
		}),
		ClusterRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cluster",
			Name:      "runs_total",
			Help:      "Total number of cluster aggregations by kind and status",
		}, []string{"kind", "status"}),
		ClusterSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cluster",
			Name:      "size",
			Help:      "Number of addresses in aggregated clusters",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heuristics",
			Name:      "scans_total",
			Help:      "Total number of heuristic scans by scanner and status",
		}, []string{"scanner", "status"}),
		ScanDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "heuristics",
			Name:      "scan_duration_seconds",
			Help:      "Heuristic scan duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"scanner"}),
		HeuristicFindings: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heuristics",
			Name:      "findings_total",
			Help:      "Total number of heuristic findings by scanner",
		}, []string{"scanner"}),

		TransfersPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "transfers_published_total",
			Help:      "Total number of watched transfers published by sink",
		}, []string{"sink"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulTrace: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_trace_timestamp",
			Help:      "Unix timestamp of last successful trace run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordRPCCall records RPC call latency. A non-empty errKind counts a failure.
func RecordRPCCall(method string, seconds float64, errKind string) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if errKind != "" {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method, errKind).Inc()
	}
}

// RecordWSNotification counts one logs notification.
func RecordWSNotification() {
	DefaultMetrics.WSNotifications.Inc()
}

// RecordWSReconnect counts one re-established websocket connection.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordTraceRun records a finished trace run.
func RecordTraceRun(duration time.Duration, events, visited int, err error) {
	DefaultMetrics.TraceRunsTotal.WithLabelValues(status(err)).Inc()
	DefaultMetrics.TraceDuration.Observe(duration.Seconds())
	DefaultMetrics.AddressesVisited.Add(float64(visited))
	if err == nil {
		DefaultMetrics.TransfersDiscovered.Add(float64(events))
		DefaultMetrics.LastSuccessfulTrace.Set(float64(time.Now().Unix()))
	}
}

// RecordClusterRun records a cluster aggregation of the given kind ("set" or "graph").
func RecordClusterRun(kind string, size int, err error) {
	DefaultMetrics.ClusterRunsTotal.WithLabelValues(kind, status(err)).Inc()
	if err == nil {
		DefaultMetrics.ClusterSize.Observe(float64(size))
	}
}

// RecordScan records a heuristic scan and its number of findings.
func RecordScan(scanner string, duration time.Duration, findings int, err error) {
	DefaultMetrics.ScansTotal.WithLabelValues(scanner, status(err)).Inc()
	DefaultMetrics.ScanDuration.WithLabelValues(scanner).Observe(duration.Seconds())
	if err == nil && findings > 0 {
		DefaultMetrics.HeuristicFindings.WithLabelValues(scanner).Add(float64(findings))
	}
}

// RecordTransferPublished counts a transfer handed to a sink.
func RecordTransferPublished(sink string) {
	DefaultMetrics.TransfersPublished.WithLabelValues(sink).Inc()
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
