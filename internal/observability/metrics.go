package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all agent metrics implementing the golden 4 signals:
// - Latency: how long instances run and stops take
// - Traffic: job starts, restarts, event deliveries
// - Errors: failed instances, failed deliveries, forced stops
// - Saturation: running jobs, dispatcher queue depth
type Metrics struct {
	meter metric.Meter

	// Ops HTTP metrics (Latency, Traffic, Errors)
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Supervisor metrics (Latency, Traffic, Errors, Saturation)
	JobStartsTotal   metric.Int64Counter
	JobRestartsTotal metric.Int64Counter
	JobsRunning      metric.Int64UpDownCounter
	InstanceDuration metric.Float64Histogram
	StopDuration     metric.Float64Histogram
	StopForcedTotal  metric.Int64Counter

	// Dispatcher metrics (Latency, Traffic, Errors, Saturation)
	DispatcherDuration  metric.Float64Histogram
	DispatcherDelivered metric.Int64Counter
	DispatcherFailed    metric.Int64Counter
	DispatcherDropped   metric.Int64Counter
	DispatcherRequeued  metric.Int64Counter
	DispatcherQueueSize metric.Int64Gauge
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("jobhost")
	m := &Metrics{meter: meter}

	// Ops HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Supervisor metrics
	m.JobStartsTotal, err = meter.Int64Counter(
		"job_starts_total",
		metric.WithDescription("Total job starts"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobRestartsTotal, err = meter.Int64Counter(
		"job_restarts_total",
		metric.WithDescription("Total restart decisions after an instance ended"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsRunning, err = meter.Int64UpDownCounter(
		"jobs_running",
		metric.WithDescription("Number of jobs with a running instance (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.InstanceDuration, err = meter.Float64Histogram(
		"instance_duration_seconds",
		metric.WithDescription("Instance run duration in seconds by outcome"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 300, 900, 3600, 14400, 86400),
	)
	if err != nil {
		return nil, nil, err
	}

	m.StopDuration, err = meter.Float64Histogram(
		"job_stop_duration_seconds",
		metric.WithDescription("Stop latency in seconds, including forced stops"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return nil, nil, err
	}

	m.StopForcedTotal, err = meter.Int64Counter(
		"job_stop_forced_total",
		metric.WithDescription("Total stops that abandoned their worker after the stop wait"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Dispatcher metrics
	m.DispatcherDuration, err = meter.Float64Histogram(
		"dispatcher_duration_seconds",
		metric.WithDescription("Callback delivery latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherDelivered, err = meter.Int64Counter(
		"dispatcher_delivered_total",
		metric.WithDescription("Total events successfully delivered"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherFailed, err = meter.Int64Counter(
		"dispatcher_failed_total",
		metric.WithDescription("Total events failed after retries"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherDropped, err = meter.Int64Counter(
		"dispatcher_dropped_total",
		metric.WithDescription("Total events dropped (buffer full or max requeues)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherRequeued, err = meter.Int64Counter(
		"dispatcher_requeued_total",
		metric.WithDescription("Total events requeued due to open circuit"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherQueueSize, err = meter.Int64Gauge(
		"dispatcher_queue_size",
		metric.WithDescription("Current number of events in dispatcher queue (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordHTTPRequest records ops endpoint request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordJobStarted records a job start.
func (m *Metrics) RecordJobStarted(ctx context.Context, jobName string) {
	m.JobStartsTotal.Add(ctx, 1, metric.WithAttributes(jobAttr(jobName)))
}

// RecordJobRestarted records a restart decision after an instance ended.
func (m *Metrics) RecordJobRestarted(ctx context.Context, jobName string) {
	m.JobRestartsTotal.Add(ctx, 1, metric.WithAttributes(jobAttr(jobName)))
}

// RecordJobsRunning moves the running-jobs gauge.
func (m *Metrics) RecordJobsRunning(ctx context.Context, jobName string, delta int64) {
	m.JobsRunning.Add(ctx, delta, metric.WithAttributes(jobAttr(jobName)))
}

// RecordInstanceDuration records how long an instance ran and how it ended.
func (m *Metrics) RecordInstanceDuration(ctx context.Context, jobName string, seconds float64, outcome string) {
	m.InstanceDuration.Record(ctx, seconds, metric.WithAttributes(jobAttr(jobName), outcomeAttr(outcome)))
}

// RecordStopDuration records how long a stop took.
func (m *Metrics) RecordStopDuration(ctx context.Context, jobName string, seconds float64) {
	m.StopDuration.Record(ctx, seconds, metric.WithAttributes(jobAttr(jobName)))
}

// RecordStopForced records a stop that hit the stop wait and abandoned its
// worker.
func (m *Metrics) RecordStopForced(ctx context.Context, jobName string) {
	m.StopForcedTotal.Add(ctx, 1, metric.WithAttributes(jobAttr(jobName)))
}

// RecordDispatcherDelivered records a successful event delivery with its duration.
func (m *Metrics) RecordDispatcherDelivered(ctx context.Context, durationSeconds float64) {
	m.DispatcherDelivered.Add(ctx, 1)
	m.DispatcherDuration.Record(ctx, durationSeconds)
}

// RecordDispatcherFailed records a failed event delivery.
func (m *Metrics) RecordDispatcherFailed(ctx context.Context) {
	m.DispatcherFailed.Add(ctx, 1)
}

// RecordDispatcherDropped records a dropped event.
func (m *Metrics) RecordDispatcherDropped(ctx context.Context) {
	m.DispatcherDropped.Add(ctx, 1)
}

// RecordDispatcherRequeued records a requeued event.
func (m *Metrics) RecordDispatcherRequeued(ctx context.Context) {
	m.DispatcherRequeued.Add(ctx, 1)
}

// RecordDispatcherQueueSize records the current queue size.
func (m *Metrics) RecordDispatcherQueueSize(ctx context.Context, size int64) {
	m.DispatcherQueueSize.Record(ctx, size)
}
