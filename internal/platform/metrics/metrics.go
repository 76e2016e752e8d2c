// Package metrics exposes the Prometheus collectors shared by the API gateway and the
// event processor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)

	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_purchases_total",
			Help: "Data purchases by terminal outcome",
		},
		[]string{"provider", "outcome"},
	)

	PurchasesRecoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_purchases_recovered_total",
			Help: "Stale PENDING purchases finished by the recovery sweep",
		},
		[]string{"outcome"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_provider_call_duration_seconds",
			Help:    "Duration of fulfillment provider calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	LedgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_total",
			Help: "Ledger entries written, by entry type",
		},
		[]string{"type"},
	)

	AuditBalanceMatch = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_audit_balance_match",
			Help: "1 when the sum of user balances equals the liability wallet, 0 otherwise",
		},
	)

	AuditBalanceDifference = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_audit_balance_difference",
			Help: "User balance total minus liability wallet balance at the last audit",
		},
	)

	NotificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_notifications_dropped_total",
			Help: "Purchase notifications that could not be dispatched",
		},
	)

	OutboxPublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_outbox_publish_failures_total",
			Help: "Outbox messages that failed to project",
		},
		[]string{"event_type"},
	)
)

func RecordHTTPRequest(method, route, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration)
}

func RecordPurchase(provider, outcome string) {
	PurchasesTotal.WithLabelValues(provider, outcome).Inc()
}

func RecordPurchaseRecovered(outcome string) {
	PurchasesRecoveredTotal.WithLabelValues(outcome).Inc()
}

func RecordProviderCall(provider string, duration float64) {
	ProviderCallDuration.WithLabelValues(provider).Observe(duration)
}

func RecordLedgerEntry(entryType string) {
	LedgerEntriesTotal.WithLabelValues(entryType).Inc()
}

// RecordAudit stores the outcome of the last balance audit.
func RecordAudit(matches bool, difference float64) {
	if matches {
		AuditBalanceMatch.Set(1)
	} else {
		AuditBalanceMatch.Set(0)
	}
	AuditBalanceDifference.Set(difference)
}

func RecordNotificationDropped() {
	NotificationsDroppedTotal.Inc()
}

func RecordOutboxPublishFailure(eventType string) {
	OutboxPublishFailuresTotal.WithLabelValues(eventType).Inc()
}
