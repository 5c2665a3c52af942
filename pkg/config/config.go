package config

import (
	"time"
)

// Config is the root configuration for the intentd binary. Defaults are
// loaded from struct values via the koanf structs provider and overridden
// by INTENTD_* environment variables.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Gateway    GatewayConfig    `koanf:"gateway"`
	Redis      RedisConfig      `koanf:"redis"`
	Canary     CanaryConfig     `koanf:"canary"`
	Runtime    RuntimeConfig    `koanf:"runtime"`
	Log        LogConfig        `koanf:"log"`
}

type ServerConfig struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"gte=1,lte=65535"`
	// AdminToken authorizes the traffic-split control surface. Empty
	// disables the admin routes entirely.
	AdminToken string `koanf:"admin_token"`
}

type ClassifierConfig struct {
	// Thresholds for the routing policy. Route must be strictly greater
	// than Unknown; validated at load time.
	ThresholdRoute   float64       `koanf:"threshold_route"   validate:"gt=0,lt=1"`
	ThresholdUnknown float64       `koanf:"threshold_unknown" validate:"gte=0,lt=1"`
	Timeout          time.Duration `koanf:"timeout"           validate:"gt=0"`
}

type GatewayConfig struct {
	// MaxInFlight is the admission ceiling; requests beyond it are
	// rejected with 429 immediately.
	MaxInFlight   int           `koanf:"max_in_flight" validate:"gte=1"`
	MaxTextLen    int           `koanf:"max_text_len"  validate:"gte=1"`
	CacheTTL      time.Duration `koanf:"cache_ttl"     validate:"gt=0"`
	CacheSize     int           `koanf:"cache_size"    validate:"gte=1"`
	ShadowEnabled bool          `koanf:"shadow_enabled"`
	// HealthRefresh bounds how often the health smoke test re-runs.
	HealthRefresh time.Duration `koanf:"health_refresh" validate:"gt=0"`
	// HealthAccuracyBar is the minimum smoke-test accuracy before the
	// health endpoint reports failing.
	HealthAccuracyBar float64 `koanf:"health_accuracy_bar" validate:"gt=0,lte=1"`
}

type RedisConfig struct {
	// Addr empty selects the in-memory cache, flag store and event sink.
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
}

// ServiceTarget names a monitored service and where to scrape it.
type ServiceTarget struct {
	Name       string `koanf:"name"        validate:"required"`
	MetricsURL string `koanf:"metrics_url"`
}

type CanaryConfig struct {
	TickInterval    time.Duration `koanf:"tick_interval"    validate:"gt=0"`
	Retention       time.Duration `koanf:"retention"        validate:"gt=0"`
	SLOErrorRate    float64       `koanf:"slo_error_rate"   validate:"gt=0,lt=1"`
	SLOP95LatencyMS float64       `koanf:"slo_p95_ms"       validate:"gt=0"`
	// ViolationWindow is the number of consecutive bad samples that
	// triggers rollback; StabilityWindow the number of consecutive good
	// samples required before ramping.
	ViolationWindow int             `koanf:"violation_window" validate:"gte=1"`
	StabilityWindow int             `koanf:"stability_window" validate:"gte=1"`
	Stages          []int           `koanf:"stages"           validate:"min=1,dive,gte=0,lte=100"`
	Services        []ServiceTarget `koanf:"services"         validate:"dive"`
	PrometheusURL   string          `koanf:"prometheus_url"`
	// FlagAPIURL is the gateway base URL whose admin surface holds the
	// traffic-split flag.
	FlagAPIURL string       `koanf:"flag_api_url"`
	AdminToken string       `koanf:"admin_token"`
	GitHub     GitHubConfig `koanf:"github"`
}

// GitHubConfig drives the controller's side effects: workflow-dispatch
// rollback and release-PR status comments. All optional; missing values
// disable the corresponding side effect.
type GitHubConfig struct {
	Token        string `koanf:"token"`
	Owner        string `koanf:"owner"`
	Repo         string `koanf:"repo"`
	WorkflowFile string `koanf:"workflow_file"`
	ReleasePR    int    `koanf:"release_pr" validate:"gte=0"`
}

// RuntimeConfig carries test-mode knobs as explicit fields, resolved once
// at startup instead of being checked ad hoc at call sites.
type RuntimeConfig struct {
	// DeterministicIDs makes generated request ids sequential.
	DeterministicIDs bool `koanf:"deterministic_ids"`
	// RetryHintMS fixes the overload retry-after hint; zero selects a
	// jittered production hint.
	RetryHintMS int `koanf:"retry_hint_ms" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON   bool   `koanf:"json"`
	Source bool   `koanf:"source"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 4100,
		},
		Classifier: ClassifierConfig{
			ThresholdRoute:   0.7,
			ThresholdUnknown: 0.5,
			Timeout:          2000 * time.Millisecond,
		},
		Gateway: GatewayConfig{
			MaxInFlight:       64,
			MaxTextLen:        4000,
			CacheTTL:          10 * time.Minute,
			CacheSize:         4096,
			ShadowEnabled:     false,
			HealthRefresh:     30 * time.Second,
			HealthAccuracyBar: 0.85,
		},
		Redis: RedisConfig{},
		Canary: CanaryConfig{
			TickInterval:    60 * time.Second,
			Retention:       time.Hour,
			SLOErrorRate:    0.02,
			SLOP95LatencyMS: 1500,
			ViolationWindow: 5,
			StabilityWindow: 30,
			Stages:          []int{5, 50, 100},
		},
		Runtime: RuntimeConfig{},
		Log: LogConfig{
			Level: "info",
		},
	}
}
