package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/pushbulletnet/pushbullet/internal/telemetry"

// ClientMetrics holds the instruments recorded for every outbound API call.
// A nil *ClientMetrics records nothing.
type ClientMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// NewClientMetrics creates the client instruments on meter, or on the global
// meter provider when meter is nil.
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	if meter == nil {
		meter = Meter(meterName)
	}

	requestDuration, err := meter.Float64Histogram(
		"pushbullet.client.request.duration",
		metric.WithDescription("Duration of Pushbullet API requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"pushbullet.client.request.total",
		metric.WithDescription("Total number of Pushbullet API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &ClientMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// RecordRequest records one API call. status is zero when no response arrived.
func (m *ClientMetrics) RecordRequest(ctx context.Context, operation string, status int, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("pushbullet.operation", operation),
		attribute.String("http.response.status_code", strconv.Itoa(status)),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Detach from cancellation so aborted calls are still counted.
	ctx = context.WithoutCancel(ctx)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
