package metrics

import (
	"strings"
	"testing"
)

func TestHistogramCumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected bucket counts: %v", snap.counts)
	}
}

func TestRenderIncludesRoastCounters(t *testing.T) {
	IncRoastRequested()
	IncRoastFailed("insufficient_credit")
	ObserveUpstreamDurationMs(120)

	out := Render()
	for _, want := range []string{
		"roast_requests_total",
		`roast_failed_total{code="insufficient_credit"}`,
		`upstream_duration_ms_bucket{le="250"}`,
		`upstream_duration_ms_bucket{le="+Inf"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
