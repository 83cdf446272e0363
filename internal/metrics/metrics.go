// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSent counts outbound channel messages by tier and outcome
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "license_notification_messages_total",
		Help: "Outbound notification messages by tier and outcome.",
	}, []string{"tier", "status"})

	// Runs counts notification runs by terminal status
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "license_notification_runs_total",
		Help: "Notification runs by terminal status.",
	}, []string{"result"})

	QuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "license_notification_quota_remaining",
		Help: "Successful sends left in the current calendar month.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "license_notification_run_duration_seconds",
		Help:    "Wall time of a notification run.",
		Buckets: prometheus.DefBuckets,
	})
)
