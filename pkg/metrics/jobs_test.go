package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	job := "outbox-publish"
	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncFailure(job)
	m.IncFailure("")

	if got := testutil.ToFloat64(m.success.WithLabelValues(job)); got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty job label to normalize, got %f", got)
	}
	if n := testutil.CollectAndCount(m.duration, "job_duration_seconds"); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewJobMetrics(nil).IncSuccess("x")
	NewReservationMetrics(nil).Observe(ReservationOutcomeReserved, time.Millisecond)
	NewReservationMetrics(nil).IncConflict()
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)

	var nilMetrics *ReservationMetrics
	nilMetrics.IncConflict()
}

func TestReservationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReservationMetrics(reg)
	m.Observe(ReservationOutcomeReserved, 10*time.Millisecond)
	m.Observe(ReservationOutcomeReserved, 5*time.Millisecond)
	m.Observe(ReservationOutcomeOutOfStock, time.Millisecond)
	m.IncConflict()

	if got := testutil.ToFloat64(m.outcomes.WithLabelValues(ReservationOutcomeReserved)); got != 2 {
		t.Fatalf("expected 2 reserved, got %f", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues(ReservationOutcomeOutOfStock)); got != 1 {
		t.Fatalf("expected 1 out_of_stock, got %f", got)
	}
	if got := testutil.ToFloat64(m.conflicts); got != 1 {
		t.Fatalf("expected 1 conflict, got %f", got)
	}
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/v1/catalog/facets", 200, time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/catalog/facets", "200")); got != 1 {
		t.Fatalf("expected one request, got %f", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "unknown", "404")); got != 1 {
		t.Fatalf("expected unknown route label, got %f", got)
	}
}
