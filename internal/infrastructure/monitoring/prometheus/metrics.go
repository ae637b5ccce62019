package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the annotator records.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Segmentation
	SegmentRequestsTotal CounterVec
	SegmentTokensTotal   CounterVec
	SegmentDroppedTotal  CounterVec

	// Annotation reconciliation
	AnnotationSpansTotal         CounterVec
	AnnotationDroppedTotal       CounterVec
	AnnotationParseFailuresTotal CounterVec

	// Remote model
	LLMRequestsTotal   CounterVec
	LLMRequestDuration HistogramVec

	// Infrastructure
	CacheHitsTotal       CounterVec
	CacheMissesTotal     CounterVec
	EventsPublishedTotal CounterVec
	ErrorsTotal          CounterVec
}

var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultLLMDurationBuckets  = []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120}
)

// NewAppMetrics registers the annotator metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "path")

	m.SegmentRequestsTotal = collector.RegisterCounter("segment_requests_total", "Segmentation requests", "engine")
	m.SegmentTokensTotal = collector.RegisterCounter("segment_tokens_total", "Tokens placed in the source text", "engine")
	m.SegmentDroppedTotal = collector.RegisterCounter("segment_dropped_tokens_total", "Tokens that could not be placed in the source text", "engine")

	m.AnnotationSpansTotal = collector.RegisterCounter("annotation_spans_total", "Entity spans emitted", "label")
	m.AnnotationDroppedTotal = collector.RegisterCounter("annotation_dropped_total", "Model mentions dropped during reconciliation", "reason")
	m.AnnotationParseFailuresTotal = collector.RegisterCounter("annotation_parse_failures_total", "Model answers that were not a JSON array")

	m.LLMRequestsTotal = collector.RegisterCounter("llm_requests_total", "Remote model calls", "model", "operation", "status")
	m.LLMRequestDuration = collector.RegisterHistogram("llm_request_duration_seconds", "Remote model call duration", DefaultLLMDurationBuckets, "model", "operation")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Response cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Response cache misses", "cache")
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Annotation events published", "topic", "status")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// NewNoopAppMetrics returns AppMetrics that discard everything.
func NewNoopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNoopCollector())
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordSegmentation(m *AppMetrics, engine string, placed, dropped int) {
	m.SegmentRequestsTotal.WithLabelValues(engine).Inc()
	m.SegmentTokensTotal.WithLabelValues(engine).Add(float64(placed))
	if dropped > 0 {
		m.SegmentDroppedTotal.WithLabelValues(engine).Add(float64(dropped))
	}
}

// RecordAnnotation records emitted spans by label and dropped mentions by
// reason.  Zero counts are skipped so idle series are not created.
func RecordAnnotation(m *AppMetrics, spansByLabel map[string]int, droppedByReason map[string]int) {
	for label, n := range spansByLabel {
		if n > 0 {
			m.AnnotationSpansTotal.WithLabelValues(label).Add(float64(n))
		}
	}
	for reason, n := range droppedByReason {
		if n > 0 {
			m.AnnotationDroppedTotal.WithLabelValues(reason).Add(float64(n))
		}
	}
}

func RecordAnnotationParseFailure(m *AppMetrics) {
	m.AnnotationParseFailuresTotal.WithLabelValues().Inc()
}

func RecordLLMCall(m *AppMetrics, model, operation string, success bool, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(model, operation, status(success)).Inc()
	m.LLMRequestDuration.WithLabelValues(model, operation).Observe(duration.Seconds())
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordEventPublish(m *AppMetrics, topic string, success bool) {
	m.EventsPublishedTotal.WithLabelValues(topic, status(success)).Inc()
}

func RecordError(m *AppMetrics, component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
