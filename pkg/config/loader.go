package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "INTENTD_"

// Service loads and validates configuration.
type Service interface {
	Load(ctx context.Context) (*Config, error)
	Validate(cfg *Config) error
}

type loader struct {
	koanf     *koanf.Koanf
	validator *validator.Validate
}

// NewService creates a configuration service with validation support.
func NewService() Service {
	return &loader{
		koanf:     koanf.New("."),
		validator: validator.New(),
	}
}

// Load builds the configuration from defaults overridden by INTENTD_*
// environment variables, then validates it.
func (l *loader) Load(_ context.Context) (*Config, error) {
	if err := l.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := l.koanf.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key string, value string) (string, any) {
			return transformEnvKey(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	return l.unmarshalAndValidate()
}

// transformEnvKey converts environment variable names to koanf paths.
// For example: INTENTD_GATEWAY_MAX_IN_FLIGHT -> gateway.max_in_flight
func transformEnvKey(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(key)
	for _, section := range []string{
		"server", "classifier", "gateway", "redis", "canary", "runtime", "log",
	} {
		if strings.HasPrefix(key, section+"_") {
			rest := strings.TrimPrefix(key, section+"_")
			if section == "canary" && strings.HasPrefix(rest, "github_") {
				return "canary.github." + strings.TrimPrefix(rest, "github_")
			}
			return section + "." + rest
		}
	}
	return key
}

func (l *loader) unmarshalAndValidate() (*Config, error) {
	var config Config
	if err := l.koanf.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &config,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Validate checks struct tags plus cross-field rules.
func (l *loader) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := l.validator.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return validateCustom(cfg)
}

// validateCustom enforces rules struct tags cannot express. The threshold
// ordering is a fatal configuration error: the ambiguous band collapses
// or inverts without it.
func validateCustom(cfg *Config) error {
	if cfg.Classifier.ThresholdRoute <= cfg.Classifier.ThresholdUnknown {
		return fmt.Errorf(
			"classifier.threshold_route (%v) must be greater than classifier.threshold_unknown (%v)",
			cfg.Classifier.ThresholdRoute, cfg.Classifier.ThresholdUnknown,
		)
	}
	if cfg.Canary.StabilityWindow < cfg.Canary.ViolationWindow {
		return fmt.Errorf(
			"canary.stability_window (%d) must be at least canary.violation_window (%d)",
			cfg.Canary.StabilityWindow, cfg.Canary.ViolationWindow,
		)
	}
	last := -1
	for _, stage := range cfg.Canary.Stages {
		if stage <= last {
			return fmt.Errorf("canary.stages must be strictly increasing, got %v", cfg.Canary.Stages)
		}
		last = stage
	}
	return nil
}
