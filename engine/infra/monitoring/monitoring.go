// Package monitoring wires the OpenTelemetry metric pipeline to a
// Prometheus exporter and serves the exposition endpoint the canary
// controller scrapes.
package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/chatstack/intentd/engine/infra/monitoring/middleware"
	"github.com/chatstack/intentd/pkg/logger"
)

// Service encapsulates the metric provider, exporter and registry.
type Service struct {
	meter       metric.Meter
	provider    *sdkmetric.MeterProvider
	registry    *prom.Registry
	config      *Config
	initialized bool
}

// newDisabledService returns a no-op service so callers never branch on
// whether monitoring is enabled.
func newDisabledService(cfg *Config) *Service {
	return &Service{
		config: cfg,
		meter:  noop.NewMeterProvider().Meter("intentd"),
	}
}

// NewService creates a monitoring service with a private Prometheus
// registry and an OTel meter provider exporting into it.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Debug("monitoring disabled, using no-op meter")
		return newDisabledService(cfg), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	service := &Service{
		meter:       provider.Meter("intentd"),
		provider:    provider,
		registry:    registry,
		config:      cfg,
		initialized: true,
	}
	log.Info("monitoring service initialized", "path", cfg.Path)
	return service, nil
}

// Meter returns the OpenTelemetry meter for custom instrumentation.
func (s *Service) Meter() metric.Meter {
	return s.meter
}

// Path returns the configured exposition path.
func (s *Service) Path() string {
	return s.config.Path
}

// GinMiddleware returns the HTTP metrics middleware, or a pass-through
// when monitoring is disabled.
func (s *Service) GinMiddleware(ctx context.Context) gin.HandlerFunc {
	if !s.initialized {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.HTTPMetrics(ctx, s.meter)
}

// ExporterHandler serves the metrics exposition in the line-oriented
// Prometheus text format.
func (s *Service) ExporterHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.initialized {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("monitoring service not initialized")); err != nil {
				logger.FromContext(r.Context()).Error("failed to write response", "error", err)
			}
			return
		}
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Shutdown flushes and stops the metric provider.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	if err := s.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down meter provider: %w", err)
	}
	return nil
}
