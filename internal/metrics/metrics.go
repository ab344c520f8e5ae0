package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karyalay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "karyalay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karyalay_bookings_total",
			Help: "Total number of booking requests by outcome",
		},
		[]string{"outcome"},
	)

	BookingStatusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karyalay_booking_status_changes_total",
			Help: "Total number of booking status transitions",
		},
		[]string{"status"},
	)

	AvailabilityQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karyalay_availability_queries_total",
			Help: "Total number of availability lookups",
		},
		[]string{"kind", "result"},
	)

	MalformedIntervalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "karyalay_malformed_intervals_total",
			Help: "Booking intervals dropped because they end before they start",
		},
	)

	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karyalay_auth_attempts_total",
			Help: "Sign-in attempts by method and result",
		},
		[]string{"method", "result"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karyalay_emails_sent_total",
			Help: "Total number of emails processed",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "karyalay_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karyalay_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
		[]string{"path"},
	)

	ScheduledJobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karyalay_scheduled_job_runs_total",
			Help: "Scheduled job executions",
		},
		[]string{"job", "result"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(outcome string) {
	BookingsTotal.WithLabelValues(outcome).Inc()
}

func RecordBookingStatusChange(status string) {
	BookingStatusChangesTotal.WithLabelValues(status).Inc()
}

func RecordAvailabilityQuery(kind, result string) {
	AvailabilityQueriesTotal.WithLabelValues(kind, result).Inc()
}

func RecordMalformedInterval() {
	MalformedIntervalsTotal.Inc()
}

func RecordAuthAttempt(method, result string) {
	AuthAttemptsTotal.WithLabelValues(method, result).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordRateLimited(path string) {
	if path == "" {
		path = "unmatched"
	}
	RateLimitedTotal.WithLabelValues(path).Inc()
}

func RecordJobRun(job, result string) {
	ScheduledJobRunsTotal.WithLabelValues(job, result).Inc()
}
