// Package metrics exposes Prometheus collectors for the HTTP surface and the
// ledger.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cx-tal-miterani/booking-ledger/internal/events"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
	LedgerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_total",
			Help: "Committed ledger changes by event type",
		},
		[]string{"type"},
	)
	SeatsAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_flight_seats_available",
			Help: "Seats available per flight after the last committed change",
		},
		[]string{"flight_id"},
	)
)

// ObserveRequest records one served request. path is the route template so
// ids do not explode label cardinality.
func ObserveRequest(method, path string, status int, d time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	RequestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// Publisher is an events sink that keeps the ledger collectors current
type Publisher struct{}

func (Publisher) Publish(ctx context.Context, e events.Event) error {
	LedgerEvents.WithLabelValues(string(e.Type)).Inc()
	if e.SeatsAvailable != nil {
		SeatsAvailable.WithLabelValues(e.FlightID.String()).Set(float64(*e.SeatsAvailable))
	}
	return nil
}
