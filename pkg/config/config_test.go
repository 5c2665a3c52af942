package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should load defaults when no environment overrides exist", func(t *testing.T) {
		cfg, err := NewService().Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4100, cfg.Server.Port)
		assert.Equal(t, 0.7, cfg.Classifier.ThresholdRoute)
		assert.Equal(t, 0.5, cfg.Classifier.ThresholdUnknown)
		assert.Equal(t, 2*time.Second, cfg.Classifier.Timeout)
		assert.Equal(t, 10*time.Minute, cfg.Gateway.CacheTTL)
		assert.Equal(t, []int{5, 50, 100}, cfg.Canary.Stages)
	})

	t.Run("Should apply environment overrides with the INTENTD prefix", func(t *testing.T) {
		t.Setenv("INTENTD_SERVER_PORT", "9999")
		t.Setenv("INTENTD_GATEWAY_MAX_IN_FLIGHT", "8")
		t.Setenv("INTENTD_CLASSIFIER_TIMEOUT", "500ms")
		t.Setenv("INTENTD_CANARY_GITHUB_OWNER", "chatstack")
		cfg, err := NewService().Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, 8, cfg.Gateway.MaxInFlight)
		assert.Equal(t, 500*time.Millisecond, cfg.Classifier.Timeout)
		assert.Equal(t, "chatstack", cfg.Canary.GitHub.Owner)
	})

	t.Run("Should reject inverted thresholds as a fatal configuration error", func(t *testing.T) {
		t.Setenv("INTENTD_CLASSIFIER_THRESHOLD_ROUTE", "0.4")
		t.Setenv("INTENTD_CLASSIFIER_THRESHOLD_UNKNOWN", "0.6")
		_, err := NewService().Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "threshold_route")
	})

	t.Run("Should reject equal thresholds", func(t *testing.T) {
		t.Setenv("INTENTD_CLASSIFIER_THRESHOLD_ROUTE", "0.5")
		t.Setenv("INTENTD_CLASSIFIER_THRESHOLD_UNKNOWN", "0.5")
		_, err := NewService().Load(context.Background())
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("Should reject nil configuration", func(t *testing.T) {
		svc := NewService()
		require.Error(t, svc.Validate(nil))
	})

	t.Run("Should reject non-increasing canary stages", func(t *testing.T) {
		cfg := Default()
		cfg.Canary.Stages = []int{50, 50, 100}
		require.Error(t, NewService().Validate(cfg))
	})

	t.Run("Should reject stability window shorter than violation window", func(t *testing.T) {
		cfg := Default()
		cfg.Canary.StabilityWindow = 3
		cfg.Canary.ViolationWindow = 5
		require.Error(t, NewService().Validate(cfg))
	})

	t.Run("Should accept the defaults", func(t *testing.T) {
		require.NoError(t, NewService().Validate(Default()))
	})
}

func TestTransformEnvKey(t *testing.T) {
	t.Run("Should map section-prefixed variables to koanf paths", func(t *testing.T) {
		assert.Equal(t, "gateway.max_in_flight", transformEnvKey("INTENTD_GATEWAY_MAX_IN_FLIGHT"))
		assert.Equal(t, "classifier.threshold_route", transformEnvKey("INTENTD_CLASSIFIER_THRESHOLD_ROUTE"))
		assert.Equal(t, "canary.github.release_pr", transformEnvKey("INTENTD_CANARY_GITHUB_RELEASE_PR"))
	})
}

func TestFromContext(t *testing.T) {
	t.Run("Should return attached config", func(t *testing.T) {
		cfg := Default()
		cfg.Server.Port = 1234
		ctx := ContextWithConfig(context.Background(), cfg)
		assert.Equal(t, 1234, FromContext(ctx).Server.Port)
	})

	t.Run("Should fall back to defaults", func(t *testing.T) {
		assert.Equal(t, 4100, FromContext(context.Background()).Server.Port)
	})
}
