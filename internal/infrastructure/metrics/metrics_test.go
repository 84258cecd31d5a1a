package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegistry(registry)

	if m.LoansBorrowed == nil || m.HTTPRequests == nil || m.AvailabilityDrift == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	// Vectors only show up once a label set is used.
	m.LendingRejections.WithLabelValues("borrow", "unavailable").Inc()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestCountersAreIndependentPerRegistry(t *testing.T) {
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())

	a.LoansBorrowed.Inc()
	a.LoansBorrowed.Inc()
	b.LoansBorrowed.Inc()

	if got := testutil.ToFloat64(a.LoansBorrowed); got != 2 {
		t.Fatalf("expected 2 borrows on a, got %v", got)
	}
	if got := testutil.ToFloat64(b.LoansBorrowed); got != 1 {
		t.Fatalf("expected 1 borrow on b, got %v", got)
	}
}
