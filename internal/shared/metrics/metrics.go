package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	reportsValidatedTotal     atomic.Uint64
	reportsRejectedTotal      atomic.Uint64
	reportsCompletedTotal     atomic.Uint64
	reportsFailedTotal        atomic.Uint64
	classificationFallbackTot atomic.Uint64
	extractionFallbackTotal   atomic.Uint64
	narrativeFallbackTotal    atomic.Uint64
	backfillRowsTotal         atomic.Uint64
	jobsEnqueuedTotal         atomic.Uint64
	jobsReceivedTotal         atomic.Uint64
	jobsCompletedTotal        atomic.Uint64
	jobsFailedTotal           atomic.Uint64
	jobsDeletedUnrecoverable  atomic.Uint64

	httpRequests2xx atomic.Uint64
	httpRequests4xx atomic.Uint64
	httpRequests5xx atomic.Uint64

	httpDuration     = newHistogram([]float64{5, 25, 100, 250, 1000, 5000, 30000})
	pipelineDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncValidated counts reports accepted by the validation gate.
func IncValidated() { reportsValidatedTotal.Add(1) }

// IncRejected counts reports rejected as non-medical.
func IncRejected() { reportsRejectedTotal.Add(1) }

// IncCompleted counts reports that reached completed.
func IncCompleted() { reportsCompletedTotal.Add(1) }

// IncFailed counts reports that transitioned to failed.
func IncFailed() { reportsFailedTotal.Add(1) }

// IncClassificationFallback counts keyword-heuristic classifications.
func IncClassificationFallback() { classificationFallbackTot.Add(1) }

// IncExtractionFallback counts model outputs handled by the delimiter parser.
func IncExtractionFallback() { extractionFallbackTotal.Add(1) }

// IncNarrativeFallback counts narratives replaced by the fixed fallback text.
func IncNarrativeFallback() { narrativeFallbackTotal.Add(1) }

// AddBackfillRows counts catalogue rows appended to reach the minimum table size.
func AddBackfillRows(n int) {
	if n > 0 {
		backfillRowsTotal.Add(uint64(n))
	}
}

// IncJobsEnqueued counts analysis jobs sent to the queue.
func IncJobsEnqueued() { jobsEnqueuedTotal.Add(1) }

// IncJobsReceived counts queue messages picked up by the worker.
func IncJobsReceived() { jobsReceivedTotal.Add(1) }

// IncJobsCompleted counts queue messages processed and deleted.
func IncJobsCompleted() { jobsCompletedTotal.Add(1) }

// IncJobsFailed counts queue messages left for redelivery.
func IncJobsFailed() { jobsFailedTotal.Add(1) }

// IncJobsDeletedUnrecoverable counts malformed messages dropped without processing.
func IncJobsDeletedUnrecoverable() { jobsDeletedUnrecoverable.Add(1) }

// ObservePipelineDurationMs records a full pipeline pass in milliseconds.
func ObservePipelineDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	pipelineDuration.Observe(value)
}

// ObserveHTTPRequest counts a finished request by status class and records
// its latency. 1xx and 3xx responses only feed the histogram.
func ObserveHTTPRequest(status int, durationMs float64) {
	switch {
	case status >= 500:
		httpRequests5xx.Add(1)
	case status >= 400:
		httpRequests4xx.Add(1)
	case status >= 200 && status < 300:
		httpRequests2xx.Add(1)
	}
	if durationMs < 0 {
		durationMs = 0
	}
	httpDuration.Observe(durationMs)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "reports_validated_total", "Reports accepted as medical", reportsValidatedTotal.Load())
	writeCounter(&buf, "reports_rejected_total", "Reports rejected as non-medical", reportsRejectedTotal.Load())
	writeCounter(&buf, "reports_completed_total", "Reports analyzed to completion", reportsCompletedTotal.Load())
	writeCounter(&buf, "reports_failed_total", "Reports whose analysis failed", reportsFailedTotal.Load())
	writeCounter(&buf, "classification_fallback_total", "Classifications decided by keyword heuristic", classificationFallbackTot.Load())
	writeCounter(&buf, "extraction_fallback_parse_total", "Extractions parsed by the delimiter fallback", extractionFallbackTotal.Load())
	writeCounter(&buf, "narrative_fallback_total", "Narratives replaced by fallback text", narrativeFallbackTotal.Load())
	writeCounter(&buf, "backfill_rows_total", "Catalogue rows appended to analysis tables", backfillRowsTotal.Load())
	writeCounter(&buf, "analysis_jobs_enqueued_total", "Analysis jobs sent to the queue", jobsEnqueuedTotal.Load())
	writeCounter(&buf, "analysis_jobs_received_total", "Analysis jobs received by the worker", jobsReceivedTotal.Load())
	writeCounter(&buf, "analysis_jobs_completed_total", "Analysis jobs completed by the worker", jobsCompletedTotal.Load())
	writeCounter(&buf, "analysis_jobs_failed_total", "Analysis jobs that failed and will be retried", jobsFailedTotal.Load())
	writeCounter(&buf, "analysis_jobs_deleted_unrecoverable_total", "Malformed analysis jobs deleted", jobsDeletedUnrecoverable.Load())
	writeCounter(&buf, "http_requests_2xx_total", "HTTP requests answered with 2xx", httpRequests2xx.Load())
	writeCounter(&buf, "http_requests_4xx_total", "HTTP requests answered with 4xx", httpRequests4xx.Load())
	writeCounter(&buf, "http_requests_5xx_total", "HTTP requests answered with 5xx", httpRequests5xx.Load())
	writeHistogram(&buf, "http_request_duration_ms", "HTTP request latency in milliseconds", httpDuration.Snapshot())
	writeHistogram(&buf, "pipeline_duration_ms", "Report pipeline duration in milliseconds", pipelineDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe places value in the first bucket whose bound covers it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
