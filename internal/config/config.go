// Package config loads the service configuration from an optional YAML file
// and the process environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/loan-decision/internal/resilience"
)

type Config struct {
	Server         ServerConfig                    `yaml:"server"`
	Model          ModelConfig                     `yaml:"model"`
	Explanation    ExplanationConfig               `yaml:"explanation"`
	Display        DisplayConfig                   `yaml:"display"`
	Cache          CacheConfig                     `yaml:"cache"`
	RateLimit      RateLimitConfig                 `yaml:"rate_limit"`
	CircuitBreaker resilience.CircuitBreakerConfig `yaml:"circuit_breaker"`
	Degradation    resilience.DegradationConfig    `yaml:"degradation"`
	Logging        LoggingConfig                   `yaml:"logging"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Mode            string        `yaml:"mode"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// Compression gzips JSON and HTML responses of at least 1 KiB
	Compression bool `yaml:"compression"`
	// HSTS should only be enabled behind TLS
	HSTS         bool   `yaml:"hsts"`
	CSPReportURI string `yaml:"csp_report_uri"`
}

type ModelConfig struct {
	Path       string `yaml:"path"`
	SchemaPath string `yaml:"schema_path"`
	// Strict refuses artifacts that carry neither feature names nor a schema fingerprint.
	Strict bool `yaml:"strict"`
}

type ExplanationConfig struct {
	Enabled             bool    `yaml:"enabled"`
	TopFeatures         int     `yaml:"top_features"`
	AdditivityTolerance float64 `yaml:"additivity_tolerance"`
}

type DisplayConfig struct {
	Decimals int    `yaml:"decimals"`
	Language string `yaml:"language"`
}

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	TTL      time.Duration `yaml:"ttl"`
	MaxItems int           `yaml:"max_items"`
}

type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	IdleTTL           time.Duration `yaml:"idle_ttl"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration that runs the shipped logistic artifact
// against the built-in schema.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			Mode:            "release",
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			CORSOrigins:     []string{"*"},
			Compression:     true,
		},
		Model: ModelConfig{
			Path: "models/loan_logistic.json",
		},
		Explanation: ExplanationConfig{
			Enabled:             true,
			AdditivityTolerance: 1e-6,
		},
		Display: DisplayConfig{
			Decimals: 4,
			Language: "en",
		},
		Cache: CacheConfig{
			Enabled:  true,
			TTL:      10 * time.Minute,
			MaxItems: 1000,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             10,
			IdleTTL:           10 * time.Minute,
		},
		CircuitBreaker: resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 1,
		},
		Degradation: resilience.DefaultDegradationConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 -- path is operator-provided config path.
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.parse(raw); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// Parse decodes YAML on top of the defaults without reading the environment
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := cfg.parse(raw); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) parse(raw []byte) error {
	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Server.Mode = getEnvOrDefault("GIN_MODE", c.Server.Mode)
	c.Model.Path = getEnvOrDefault("MODEL_PATH", c.Model.Path)
	c.Model.SchemaPath = getEnvOrDefault("SCHEMA_PATH", c.Model.SchemaPath)
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", c.Logging.Level)
}

func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be one of debug, release, test")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}

	if c.Explanation.TopFeatures < 0 {
		return fmt.Errorf("explanation.top_features must not be negative")
	}
	if c.Explanation.AdditivityTolerance < 0 {
		return fmt.Errorf("explanation.additivity_tolerance must not be negative")
	}

	if c.Display.Decimals < 2 || c.Display.Decimals > 8 {
		return fmt.Errorf("display.decimals must be between 2 and 8")
	}
	if _, err := language.Parse(c.Display.Language); err != nil {
		return fmt.Errorf("display.language %q: %w", c.Display.Language, err)
	}

	if c.Cache.Enabled && (c.Cache.TTL <= 0 || c.Cache.MaxItems <= 0) {
		return fmt.Errorf("cache.ttl and cache.max_items must be positive when cache.enabled=true")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit.requests_per_second and rate_limit.burst must be positive when rate_limit.enabled=true")
	}

	d := c.Degradation
	if !(0 < d.DegradedThreshold && d.DegradedThreshold <= d.CriticalThreshold && d.CriticalThreshold <= d.EmergencyThreshold && d.EmergencyThreshold <= 1) {
		return fmt.Errorf("degradation thresholds must satisfy 0 < degraded <= critical <= emergency <= 1")
	}

	return nil
}

// LanguageTag returns the parsed display language, falling back to English
func (d DisplayConfig) LanguageTag() language.Tag {
	tag, err := language.Parse(d.Language)
	if err != nil {
		return language.English
	}
	return tag
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
