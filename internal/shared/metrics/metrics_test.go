package metrics

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	assert.Equal(t, []uint64{1, 1}, snap.counts)
	assert.Equal(t, uint64(3), snap.count)
	assert.InDelta(t, 555, snap.sum, 0.001)

}

func TestRenderIncludesReportCounters(t *testing.T) {
	IncValidated()
	IncNarrativeFallback()
	AddBackfillRows(9)
	AddBackfillRows(-1)
	ObservePipelineDurationMs(42)

	out := Render()
	for _, name := range []string{
		"reports_validated_total",
		"reports_rejected_total",
		"narrative_fallback_total",
		"backfill_rows_total",
		"pipeline_duration_ms_bucket{le=\"+Inf\"}",
	} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "# TYPE pipeline_duration_ms histogram")
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "100", formatFloat(100))
	assert.Equal(t, "2.5", formatFloat(2.5))
}

func TestObserveHTTPRequestCountsByClass(t *testing.T) {
	before5xx := httpRequests5xx.Load()
	before4xx := httpRequests4xx.Load()
	beforeCount := httpDuration.Snapshot().count

	ObserveHTTPRequest(http.StatusBadGateway, 12)
	ObserveHTTPRequest(http.StatusNotFound, -3)
	ObserveHTTPRequest(http.StatusNotModified, 1)

	assert.Equal(t, before5xx+1, httpRequests5xx.Load())
	assert.Equal(t, before4xx+1, httpRequests4xx.Load())
	assert.Equal(t, beforeCount+3, httpDuration.Snapshot().count)
	assert.Contains(t, Render(), "# TYPE http_request_duration_ms histogram")
}
