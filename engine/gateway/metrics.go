package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/chatstack/intentd/engine/decision"
)

// classifyMetrics are the gateway's own instruments, distinct from the
// generic HTTP middleware metrics: the canary controller keys off these.
type classifyMetrics struct {
	requestsTotal metric.Int64Counter
	successTotal  metric.Int64Counter
	timeoutTotal  metric.Int64Counter
	errorTotal    metric.Int64Counter
	unknownTotal  metric.Int64Counter
	duration      metric.Float64Histogram
}

func newClassifyMetrics(meter metric.Meter) (*classifyMetrics, error) {
	m := &classifyMetrics{}
	var err error
	if m.requestsTotal, err = meter.Int64Counter(
		"intentd_requests_total",
		metric.WithDescription("Classification requests received"),
	); err != nil {
		return nil, err
	}
	if m.successTotal, err = meter.Int64Counter(
		"intentd_success_total",
		metric.WithDescription("Classifications that produced a routed decision"),
	); err != nil {
		return nil, err
	}
	if m.timeoutTotal, err = meter.Int64Counter(
		"intentd_timeout_total",
		metric.WithDescription("Classifications aborted at the deadline"),
	); err != nil {
		return nil, err
	}
	if m.errorTotal, err = meter.Int64Counter(
		"intentd_error_total",
		metric.WithDescription("Classifications that failed unexpectedly"),
	); err != nil {
		return nil, err
	}
	if m.unknownTotal, err = meter.Int64Counter(
		"intentd_unknown_total",
		metric.WithDescription("Decisions whose effective intent was unknown"),
	); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram(
		"intentd_classify_duration_seconds",
		metric.WithDescription("End-to-end classification latency"),
		metric.WithExplicitBucketBoundaries(.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *classifyMetrics) recordRequest(ctx context.Context) {
	m.requestsTotal.Add(ctx, 1)
}

func (m *classifyMetrics) recordOutcome(ctx context.Context, d *decision.Decision, elapsed time.Duration) {
	mode := metric.WithAttributes(attribute.String("mode", string(d.Mode)))
	switch d.Reason {
	case decision.ReasonTimeout:
		m.timeoutTotal.Add(ctx, 1, mode)
	case decision.ReasonError:
		m.errorTotal.Add(ctx, 1, mode)
	default:
		m.successTotal.Add(ctx, 1, mode)
	}
	if d.Intent == decision.IntentUnknown {
		m.unknownTotal.Add(ctx, 1, mode)
	}
	m.duration.Record(ctx, elapsed.Seconds(), mode)
}

func (m *classifyMetrics) recordLatency(ctx context.Context, elapsed time.Duration) {
	m.duration.Record(ctx, elapsed.Seconds())
}
