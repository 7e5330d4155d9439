package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmatch_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobmatch_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	applicationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmatch_applications_created_total",
		Help: "Applications created by channel",
	}, []string{"channel"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmatch_application_transitions_total",
		Help: "Application status transitions",
	}, []string{"from", "to"})

	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmatch_orders_total",
		Help: "Orders by lifecycle step",
	}, []string{"step"})

	creditsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobmatch_credits_granted_total",
		Help: "Credits granted by paid orders",
	})

	notificationDispatch = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmatch_notification_dispatch_total",
		Help: "Chat-bot notification pushes by result",
	}, []string{"result"})

	matchComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmatch_match_computations_total",
		Help: "Seeker/job match vectors computed by caller",
	}, []string{"source"})

	maintenanceRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmatch_maintenance_runs_total",
		Help: "Scheduled maintenance runs by job and result",
	}, []string{"job", "result"})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jobmatch_ws_connections",
		Help: "Open notification websocket connections",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveApplicationCreated counts a new application
func ObserveApplicationCreated(channel string) {
	applicationsCreated.WithLabelValues(channel).Inc()
}

// ObserveTransition counts a status change
func ObserveTransition(from, to string) {
	statusTransitions.WithLabelValues(from, to).Inc()
}

// ObserveOrderCreated counts a created order.
func ObserveOrderCreated() {
	ordersTotal.WithLabelValues("created").Inc()
}

// ObserveOrderPaid counts a paid order and the credits it granted.
func ObserveOrderPaid(credits int) {
	ordersTotal.WithLabelValues("paid").Inc()
	creditsGranted.Add(float64(credits))
}

// ObserveDispatch counts a notification push attempt with its result.
func ObserveDispatch(result string) {
	notificationDispatch.WithLabelValues(result).Inc()
}

// ObserveMatch counts computed match vectors.
func ObserveMatch(source string, n int) {
	matchComputations.WithLabelValues(source).Add(float64(n))
}

// ObserveMaintenance counts a scheduled maintenance run.
func ObserveMaintenance(job, result string) {
	maintenanceRuns.WithLabelValues(job, result).Inc()
}

// WSConnected tracks websocket connection count.
func WSConnected() { wsConnections.Inc() }

// WSDisconnected tracks websocket connection count.
func WSDisconnected() { wsConnections.Dec() }
