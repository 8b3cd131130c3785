// Package metrics exposes Prometheus counters and histograms for the
// signing, part-upload, and registry operations this client performs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds a self-contained registry so callers never need to touch
// the global prometheus.DefaultRegisterer.
type Metrics struct {
	reg *prometheus.Registry

	signedRequests   *prometheus.CounterVec
	signingFailures  prometheus.Counter
	partUploads      *prometheus.CounterVec
	partUploadBytes  prometheus.Counter
	partUploadTime   prometheus.Histogram
	multipartResults *prometheus.CounterVec
	registryOps      *prometheus.CounterVec
	lockContention   *prometheus.CounterVec
}

// New creates a Metrics instance with a fresh registry and registers all
// collectors against it.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		signedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "s3sig",
			Subsystem: "signing",
			Name:      "requests_total",
			Help:      "Total number of outbound requests signed, partitioned by service.",
		}, []string{"service"}),
		signingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "s3sig",
			Subsystem: "signing",
			Name:      "failures_total",
			Help:      "Total number of requests that could not be signed, usually due to missing credentials.",
		}),
		partUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "s3sig",
			Subsystem: "multipart",
			Name:      "part_uploads_total",
			Help:      "Total number of individual part PUTs attempted, partitioned by outcome.",
		}, []string{"outcome"}),
		partUploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "s3sig",
			Subsystem: "multipart",
			Name:      "part_upload_bytes_total",
			Help:      "Total bytes sent across all successfully uploaded parts.",
		}),
		partUploadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "s3sig",
			Subsystem: "multipart",
			Name:      "part_upload_duration_seconds",
			Help:      "Latency of individual part PUT requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		multipartResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "s3sig",
			Subsystem: "multipart",
			Name:      "uploads_total",
			Help:      "Total number of multipart uploads that finished, partitioned by final state.",
		}, []string{"state"}),
		registryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "s3sig",
			Subsystem: "registry",
			Name:      "operations_total",
			Help:      "Total number of crash-recovery registry operations, partitioned by op and outcome.",
		}, []string{"op", "outcome"}),
		lockContention: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "s3sig",
			Subsystem: "lock",
			Name:      "acquire_total",
			Help:      "Total number of lock acquire attempts, partitioned by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{
		m.signedRequests, m.signingFailures, m.partUploads, m.partUploadBytes,
		m.partUploadTime, m.multipartResults, m.registryOps, m.lockContention,
	} {
		_ = reg.Register(c)
	}

	return m
}

// Handler serves the registry's collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry for advanced usage.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveSignedRequest records one successfully signed request for service.
func (m *Metrics) ObserveSignedRequest(service string) {
	m.signedRequests.WithLabelValues(service).Inc()
}

// ObserveSigningFailure records a request that could not be signed.
func (m *Metrics) ObserveSigningFailure() {
	m.signingFailures.Inc()
}

// ObservePartUpload records the outcome and duration of one part PUT. On
// success, bytes should be the part's size; it is ignored otherwise.
func (m *Metrics) ObservePartUpload(success bool, bytes int, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.partUploads.WithLabelValues(outcome).Inc()
	m.partUploadTime.Observe(elapsed.Seconds())
	if success {
		m.partUploadBytes.Add(float64(bytes))
	}
}

// ObserveMultipartResult records the final state of a completed or aborted
// multipart upload, e.g. "Completed" or "Failed".
func (m *Metrics) ObserveMultipartResult(state string) {
	m.multipartResults.WithLabelValues(state).Inc()
}

// ObserveRegistryOp records one crash-recovery registry call.
func (m *Metrics) ObserveRegistryOp(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.registryOps.WithLabelValues(op, outcome).Inc()
}

// ObserveLockAcquire records one lock acquire attempt.
func (m *Metrics) ObserveLockAcquire(acquired bool) {
	outcome := "acquired"
	if !acquired {
		outcome = "contended"
	}
	m.lockContention.WithLabelValues(outcome).Inc()
}
