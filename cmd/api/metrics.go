package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// Metric definitions for the scheduling API

var (
	bookingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fsv",
			Subsystem: "booking",
			Name:      "decisions_total",
			Help:      "Booking pipeline outcomes by result and priority tier",
		},
		[]string{"outcome", "tier"},
	)

	bookingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fsv",
			Subsystem: "booking",
			Name:      "decision_latency_seconds",
			Help:      "End-to-end booking decision latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"outcome"},
	)
)

// prometheusCollector adapts the metric vectors to the booking service's
// collector interface.
type prometheusCollector struct{}

func (prometheusCollector) RecordBookingDecision(ctx context.Context, outcome string, tier schedule.PriorityTier) {
	bookingDecisions.WithLabelValues(outcome, tier.String()).Inc()
}

func (prometheusCollector) RecordBookingLatency(ctx context.Context, outcome string, latency time.Duration) {
	bookingLatency.WithLabelValues(outcome).Observe(latency.Seconds())
}

// startMetricsServer exposes /metrics on its own port.
func startMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		_ = server.ListenAndServe()
	}()
	return server
}
