package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	ctx := context.Background()

	t.Run("Should initialize with default config", func(t *testing.T) {
		svc, err := NewService(ctx, nil)
		require.NoError(t, err)
		require.NotNil(t, svc.Meter())
		assert.Equal(t, "/metrics", svc.Path())
		require.NoError(t, svc.Shutdown(ctx))
	})

	t.Run("Should return a no-op service when disabled", func(t *testing.T) {
		svc, err := NewService(ctx, &Config{Enabled: false})
		require.NoError(t, err)
		require.NotNil(t, svc.Meter())
		require.NoError(t, svc.Shutdown(ctx))
	})

	t.Run("Should reject an invalid exposition path", func(t *testing.T) {
		_, err := NewService(ctx, &Config{Enabled: true, Path: "metrics"})
		require.Error(t, err)
	})
}

func TestExporterHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Should expose recorded instruments in Prometheus text format", func(t *testing.T) {
		svc, err := NewService(ctx, nil)
		require.NoError(t, err)
		defer svc.Shutdown(ctx) //nolint:errcheck

		counter, err := svc.Meter().Int64Counter("intentd_test_events_total")
		require.NoError(t, err)
		counter.Add(ctx, 3)

		rec := httptest.NewRecorder()
		svc.ExporterHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "intentd_test_events_total")
	})

	t.Run("Should report unavailable when disabled", func(t *testing.T) {
		svc, err := NewService(ctx, &Config{Enabled: false})
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		svc.ExporterHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestGinMiddleware(t *testing.T) {
	ctx := context.Background()
	gin.SetMode(gin.TestMode)

	t.Run("Should record http metrics around handlers", func(t *testing.T) {
		svc, err := NewService(ctx, nil)
		require.NoError(t, err)
		defer svc.Shutdown(ctx) //nolint:errcheck

		router := gin.New()
		router.Use(svc.GinMiddleware(ctx))
		router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		expRec := httptest.NewRecorder()
		svc.ExporterHandler().ServeHTTP(expRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Contains(t, expRec.Body.String(), "intentd_http_requests_total")
	})

	t.Run("Should pass through when disabled", func(t *testing.T) {
		svc, err := NewService(ctx, &Config{Enabled: false})
		require.NoError(t, err)

		router := gin.New()
		router.Use(svc.GinMiddleware(ctx))
		router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
