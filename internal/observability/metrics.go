package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	storeWritesTotal      *prometheus.CounterVec
	snapshotsAppliedTotal *prometheus.CounterVec
	liveClients           *prometheus.GaugeVec
	eventsPublishedTotal  *prometheus.CounterVec
	boardAssignments      *prometheus.GaugeVec
)

// RegisterMetrics initialises the Prometheus collectors used by the board API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homework_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homework_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homework_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		storeWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homework_store_writes_total",
			Help: "Writes issued against the shared store.",
		}, []string{"operation", "outcome"})

		snapshotsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homework_snapshots_applied_total",
			Help: "Store snapshots applied to the local projection.",
		}, []string{"path"})

		liveClients = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "homework_live_clients",
			Help: "Connected live board clients.",
		}, []string{"transport"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homework_events_published_total",
			Help: "Board events published to the message bus.",
		}, []string{"type"})

		boardAssignments = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "homework_board_assignments",
			Help: "Assignments in the last applied snapshot.",
		}, []string{"state"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			storeWritesTotal,
			snapshotsAppliedTotal,
			liveClients,
			eventsPublishedTotal,
			boardAssignments,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// StoreWrites counts store writes by operation and outcome.
func StoreWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return storeWritesTotal
}

// SnapshotsApplied counts snapshots applied per store path.
func SnapshotsApplied() *prometheus.CounterVec {
	RegisterMetrics()
	return snapshotsAppliedTotal
}

// LiveClients tracks connected websocket and SSE clients.
func LiveClients() *prometheus.GaugeVec {
	RegisterMetrics()
	return liveClients
}

// EventsPublished counts board events sent over NATS.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// BoardAssignments reports the open and completed assignment counts.
func BoardAssignments() *prometheus.GaugeVec {
	RegisterMetrics()
	return boardAssignments
}
