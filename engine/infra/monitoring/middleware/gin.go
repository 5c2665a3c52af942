package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/chatstack/intentd/pkg/logger"
)

type httpInstruments struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestsInFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	requestsTotal, err := meter.Int64Counter(
		"intentd_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram(
		"intentd_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithExplicitBucketBoundaries(.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}
	requestsInFlight, err := meter.Int64UpDownCounter(
		"intentd_http_requests_in_flight",
		metric.WithDescription("Currently active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	return &httpInstruments{
		requestsTotal:    requestsTotal,
		requestDuration:  requestDuration,
		requestsInFlight: requestsInFlight,
	}, nil
}

// HTTPMetrics returns a Gin middleware that records request count,
// latency and in-flight gauge per method/path/status.
func HTTPMetrics(ctx context.Context, meter metric.Meter) gin.HandlerFunc {
	instruments, err := newHTTPInstruments(meter)
	if err != nil {
		logger.FromContext(ctx).Error("failed to create http metrics instruments", "error", err)
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		instruments.requestsInFlight.Add(ctx, 1)
		defer instruments.requestsInFlight.Add(ctx, -1)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", path),
			attribute.String("status", strconv.Itoa(c.Writer.Status())),
		)
		instruments.requestsTotal.Add(ctx, 1, attrs)
		instruments.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
