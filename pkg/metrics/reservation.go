package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ReservationOutcomeReserved             = "reserved"
	ReservationOutcomeOutOfStock           = "out_of_stock"
	ReservationOutcomeQuantityExceedsStock = "quantity_exceeds_stock"
	ReservationOutcomeExhausted            = "retries_exhausted"
	ReservationOutcomeError                = "error"
)

// ReservationMetrics tracks stock reservation outcomes and compare-and-swap contention.
type ReservationMetrics struct {
	outcomes  *prometheus.CounterVec
	duration  prometheus.Histogram
	conflicts prometheus.Counter
}

func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservations_total",
		Help: "Stock reservation attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_reservation_duration_seconds",
		Help:    "Time spent reserving stock, including retries.",
		Buckets: prometheus.DefBuckets,
	})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_reservation_conflicts_total",
		Help: "Compare-and-swap conflicts observed while reserving stock.",
	})
	reg.MustRegister(outcomes, duration, conflicts)
	return &ReservationMetrics{
		outcomes:  outcomes,
		duration:  duration,
		conflicts: conflicts,
	}
}

func (r *ReservationMetrics) Observe(outcome string, elapsed time.Duration) {
	if r == nil || r.outcomes == nil {
		return
	}
	r.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
	r.duration.Observe(elapsed.Seconds())
}

func (r *ReservationMetrics) IncConflict() {
	if r == nil || r.conflicts == nil {
		return
	}
	r.conflicts.Inc()
}
