// Package metrics exposes Prometheus collectors for HTTP traffic, uploads,
// exports and live sessions. A nil *Recorder is valid and records nothing,
// so callers never need to check whether metrics are enabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mobility"

// Upload and export outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFormat   = "format_error"
	OutcomeSchema   = "schema_error"
	OutcomeLoad     = "load_error"
	OutcomeBusy     = "busy"
	OutcomeTooLarge = "too_large"
	OutcomeError    = "error"
)

// Recorder owns a private registry and the collectors registered on it.
type Recorder struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	uploadTotal     *prometheus.CounterVec
	uploadRows      *prometheus.HistogramVec
	uploadDuration  *prometheus.HistogramVec
	uploadWait      prometheus.Histogram
	exportTotal     *prometheus.CounterVec
}

// New registers all collectors. sessions, when non-nil, backs the live
// session gauge.
func New(sessions func() int) *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		uploadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploaded files by flow and outcome",
		}, []string{"flow", "outcome"}),
		uploadRows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_rows",
			Help:      "Records per successfully loaded file",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}, []string{"flow"}),
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_parse_duration_seconds",
			Help:      "Time spent parsing uploaded files",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
		uploadWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_slot_wait_seconds",
			Help:      "Time spent waiting for a parsing slot",
			Buckets:   []float64{.001, .01, .1, .5, 1, 5, 10, 30},
		}),
		exportTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Rendered downloads by flow, format and outcome",
		}, []string{"flow", "format", "outcome"}),
	}

	registry.MustRegister(
		r.requestDuration, r.requestTotal,
		r.uploadTotal, r.uploadRows, r.uploadDuration, r.uploadWait,
		r.exportTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if sessions != nil {
		registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Browser sessions currently held in memory",
		}, func() float64 {
			return float64(sessions())
		}))
	}

	r.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return r
}

// Handler serves the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// ObserveHTTPRequest records one served request. route should be the
// router pattern, not the raw path, to bound label cardinality.
func (r *Recorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	code := strconv.Itoa(status)
	r.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	r.requestTotal.WithLabelValues(method, route, code).Inc()
}

// ObserveUpload records a parse attempt. rows is ignored unless the outcome
// is OutcomeOK.
func (r *Recorder) ObserveUpload(flow, outcome string, rows int, duration time.Duration) {
	if r == nil {
		return
	}
	r.uploadTotal.WithLabelValues(flow, outcome).Inc()
	r.uploadDuration.WithLabelValues(flow).Observe(duration.Seconds())
	if outcome == OutcomeOK {
		r.uploadRows.WithLabelValues(flow).Observe(float64(rows))
	}
}

// ObserveUploadWait records how long an upload waited for a parsing slot.
func (r *Recorder) ObserveUploadWait(d time.Duration) {
	if r == nil {
		return
	}
	r.uploadWait.Observe(d.Seconds())
}

// ObserveExport records one rendered (or failed) download.
func (r *Recorder) ObserveExport(flow, format string, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	r.exportTotal.WithLabelValues(flow, format, outcome).Inc()
}
