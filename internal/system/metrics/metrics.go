// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "consent",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// AccessAttempts counts access gate verifications by result (ok, invalid_code, link_expired, not_found).
	AccessAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "consent",
		Name:      "access_attempts_total",
		Help:      "Access code verification attempts by result.",
	}, []string{"result"})

	ConsentBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "consent",
		Name:      "batches_total",
		Help:      "Consent batch submissions by outcome.",
	}, []string{"outcome"})

	ConsentRecordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "consent",
		Name:      "records_processed_total",
		Help:      "Consent records written by successful batches.",
	})

	NotificationDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "consent",
		Name:      "notification_deliveries_total",
		Help:      "Ready-for-review delivery outcomes by sink and status.",
	}, []string{"sink", "status"})

	ClientActiveRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "consent",
		Name:      "client_active_rejections_total",
		Help:      "Staff edits refused because the client session was live.",
	})
)
