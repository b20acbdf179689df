// Package metrics records pipeline, provider and HTTP measurements in Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mhpenta/creatorflow"
)

// Outcome label values besides the provider error kinds.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeCanceled   = "canceled"
	OutcomeError      = "error"
)

var durationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60}

// Collector implements creatorflow.MetricsRecorder on its own registry.
type Collector struct {
	registry *prometheus.Registry

	pipelineRuns     *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	stageDuration    *prometheus.HistogramVec

	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	providerRetries  *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Ensure Collector implements MetricsRecorder.
var _ creatorflow.MetricsRecorder = (*Collector)(nil)

// NewCollector creates a Collector whose metrics are prefixed with namespace.
// Go runtime and process collectors are registered as well.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Total number of generation runs by outcome",
			},
			[]string{"outcome"},
		),
		pipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Generation run duration in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"stage", "outcome"},
		),

		providerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Total number of provider calls by outcome",
			},
			[]string{"provider", "op", "outcome"},
		),
		providerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_call_duration_seconds",
				Help:      "Provider call duration in seconds, retries included",
				Buckets:   durationBuckets,
			},
			[]string{"provider", "op"},
		),
		providerRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_retries_total",
				Help:      "Total number of provider call retries",
			},
			[]string{"provider", "op", "kind"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one pipeline stage.
func (c *Collector) ObserveStage(stage creatorflow.Stage, err error, duration time.Duration) {
	c.stageDuration.WithLabelValues(string(stage), Outcome(err)).Observe(duration.Seconds())
}

// ObservePipeline records one generation run.
func (c *Collector) ObservePipeline(err error, duration time.Duration) {
	outcome := Outcome(err)
	c.pipelineRuns.WithLabelValues(outcome).Inc()
	c.pipelineDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveProviderCall records one gateway call.
func (c *Collector) ObserveProviderCall(provider, op string, err error, duration time.Duration) {
	c.providerCalls.WithLabelValues(provider, op, Outcome(err)).Inc()
	c.providerDuration.WithLabelValues(provider, op).Observe(duration.Seconds())
}

// IncProviderRetry counts one retry.
func (c *Collector) IncProviderRetry(provider, op string, kind creatorflow.ErrorKind) {
	c.providerRetries.WithLabelValues(provider, op, kind.String()).Inc()
}

// RecordHTTPRequest records one served request. path should be the route
// pattern, not the raw URL.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Outcome maps an error to a bounded label value: "ok", "validation",
// "canceled", a provider error kind, or "error".
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case creatorflow.IsValidationError(err):
		return OutcomeValidation
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	}
	if kind := creatorflow.KindOf(err); kind != "" {
		return kind.String()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return creatorflow.KindTimeout.String()
	}
	return OutcomeError
}
