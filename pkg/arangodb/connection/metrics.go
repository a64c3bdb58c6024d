package connection

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/diwise/arangodb-driver/pkg/arangodb/connection"

type requestMetrics struct {
	requestCounter    metric.Int64Counter
	durationHistogram metric.Float64Histogram
	failoverCounter   metric.Int64Counter
}

func newRequestMetrics(provider metric.MeterProvider) *requestMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter(instrumentationName)
	m := &requestMetrics{}

	m.requestCounter, _ = meter.Int64Counter("arangodb.client.requests",
		metric.WithUnit("{request}"),
		metric.WithDescription("Number of requests sent to the database"),
	)
	m.durationHistogram, _ = meter.Float64Histogram("arangodb.client.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of database requests"),
	)
	m.failoverCounter, _ = meter.Int64Counter("arangodb.client.failovers",
		metric.WithUnit("{failover}"),
		metric.WithDescription("Number of times a request was moved to another host"),
	)

	return m
}

func (m *requestMetrics) record(ctx context.Context, protocol Protocol, method string, status int, started time.Time) {
	if m == nil {
		return
	}

	statusText := "error"
	if status > 0 {
		statusText = strconv.Itoa(status)
	}

	attrs := metric.WithAttributes(
		attribute.String("protocol", protocol.String()),
		attribute.String("method", method),
		attribute.String("status", statusText),
	)

	if m.requestCounter != nil {
		m.requestCounter.Add(ctx, 1, attrs)
	}
	if m.durationHistogram != nil {
		m.durationHistogram.Record(ctx, time.Since(started).Seconds(), attrs)
	}
}

func (m *requestMetrics) failover(ctx context.Context, endpoint string) {
	if m == nil || m.failoverCounter == nil {
		return
	}
	m.failoverCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", endpoint)))
}
