package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPRequestsCounter(t *testing.T) {
	c := HTTPRequests.WithLabelValues("/api/tasks/{userID}", "GET", "200")
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}

func TestMirrorQueueDepthGauge(t *testing.T) {
	MirrorQueueDepth.Set(3)
	if got := testutil.ToFloat64(MirrorQueueDepth); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
	MirrorQueueDepth.Set(0)
}

func TestCollectorsRegistered(t *testing.T) {
	if n := testutil.CollectAndCount(SessionsRecorded); n < 0 {
		t.Fatal("unexpected count")
	}
	SessionsRecorded.WithLabelValues("work").Inc()
	if n := testutil.CollectAndCount(SessionsRecorded); n < 1 {
		t.Fatalf("expected at least one series, got %d", n)
	}
}
