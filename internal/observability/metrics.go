package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. All methods are safe on
// a nil receiver.
type Metrics struct {
	requestCount      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errorCount        *prometheus.CounterVec
	escalationsRaised *prometheus.CounterVec
	statusChanges     *prometheus.CounterVec
	comments          prometheus.Counter
	historyCache      *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	notifications     *prometheus.CounterVec
}

// NewMetrics creates collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_http_requests_total",
			Help: "Total number of HTTP requests handled",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coverage_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_http_errors_total",
			Help: "Total number of HTTP requests that returned an error envelope",
		}, []string{"method", "route", "code"}),
		escalationsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_escalations_submitted_total",
			Help: "Total number of escalations submitted",
		}, []string{"scope_level", "reason_type"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_escalation_status_changes_total",
			Help: "Total number of escalation status updates",
		}, []string{"from", "to"}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coverage_escalation_comments_total",
			Help: "Total number of comments appended to escalation history",
		}),
		historyCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_history_cache_lookups_total",
			Help: "History cache lookups by result",
		}, []string{"result"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_events_published_total",
			Help: "Escalation events forwarded to external sinks",
		}, []string{"sink", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coverage_notifications_sent_total",
			Help: "Watchlist notifications by channel and result",
		}, []string{"channel", "result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.requestCount,
			m.requestDuration,
			m.errorCount,
			m.escalationsRaised,
			m.statusChanges,
			m.comments,
			m.historyCache,
			m.eventsPublished,
			m.notifications,
		)
	}
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(method, route, code).Inc()
}

// EscalationSubmitted counts a committed submission.
func (m *Metrics) EscalationSubmitted(scopeLevel, reasonType string) {
	if m == nil {
		return
	}
	m.escalationsRaised.WithLabelValues(scopeLevel, reasonType).Inc()
}

// StatusChanged counts a committed status update.
func (m *Metrics) StatusChanged(from, to string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(from, to).Inc()
}

// CommentAdded counts a committed comment.
func (m *Metrics) CommentAdded() {
	if m == nil {
		return
	}
	m.comments.Inc()
}

// HistoryCacheLookup records "hit", "miss" or "error".
func (m *Metrics) HistoryCacheLookup(result string) {
	if m == nil {
		return
	}
	m.historyCache.WithLabelValues(result).Inc()
}

// EventPublished records the outcome of forwarding one event.
func (m *Metrics) EventPublished(sink string, err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(sink, resultLabel(err)).Inc()
}

// NotificationSent records the outcome of one notification.
func (m *Metrics) NotificationSent(channel string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
