package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("GET", "/rides", 200, 15*time.Millisecond)
	m.Observe("GET", "/rides", 404, 5*time.Millisecond)
	m.Observe("POST", "/rides", 201, 20*time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/rides", "2xx")); got != 1 {
		t.Fatalf("expected one 2xx GET, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/rides", "4xx")); got != 1 {
		t.Fatalf("expected one 4xx GET, got %v", got)
	}
}

func TestRelayMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)

	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.IncBroadcast("location_update")
	m.IncDropped()

	if got := testutil.ToFloat64(m.connections); got != 1 {
		t.Fatalf("expected 1 open connection, got %v", got)
	}
	if got := testutil.ToFloat64(m.broadcasts.WithLabelValues("location_update")); got != 1 {
		t.Fatalf("expected 1 broadcast, got %v", got)
	}
	if got := testutil.ToFloat64(m.dropped); got != 1 {
		t.Fatalf("expected 1 dropped client, got %v", got)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	m := NewHTTPMetrics(nil)
	m.Observe("GET", "/", 200, time.Millisecond)

	r := NewRelayMetrics(nil)
	r.ConnOpened()
	r.IncBroadcast("x")
}

func TestStatusLabel(t *testing.T) {
	cases := map[int]string{200: "2xx", 204: "2xx", 301: "3xx", 404: "4xx", 500: "5xx"}
	for status, want := range cases {
		if got := statusLabel(status); got != want {
			t.Fatalf("status %d: expected %s got %s", status, want, got)
		}
	}
}
