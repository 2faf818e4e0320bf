package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests metric.Int64Counter
	HTTPDuration metric.Float64Histogram

	Runs         metric.Int64Counter
	RunDuration  metric.Float64Histogram
	Items        metric.Int64Counter
	ItemFailures metric.Int64Counter
}

func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"rrn_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"rrn_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Runs, err = meter.Int64Counter(
		"rrn_runs_total",
		metric.WithDescription("Total number of dispatcher executions"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RunDuration, err = meter.Float64Histogram(
		"rrn_run_duration_seconds",
		metric.WithDescription("Dispatcher execution duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Items, err = meter.Int64Counter(
		"rrn_items_total",
		metric.WithDescription("Total number of items processed"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ItemFailures, err = meter.Int64Counter(
		"rrn_item_failures_total",
		metric.WithDescription("Total number of failed items"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.Handler()
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordRun(ctx context.Context, operation string, succeeded bool, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", succeeded),
	)

	m.Runs.Add(ctx, 1, labels)
	m.RunDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordItem(ctx context.Context, operation string) {
	m.Items.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *Metrics) RecordItemFailure(ctx context.Context, operation string) {
	m.ItemFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
