// Package config loads gateway settings from a YAML file and environment
// variables. It covers everything a deployment tunes without code: backend
// registrations, resilience parameters, analytics field maps and pricing,
// the optional Redis usage sink, and the optional evaluator.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/aigw/core/analytics"
	"github.com/leofalp/aigw/core/cost"
	"github.com/leofalp/aigw/core/gateway/middleware"
)

// Config is the root of the YAML configuration file.
type Config struct {
	// DefaultBackend is the identifier "auto" resolves to.
	DefaultBackend string `yaml:"default_backend"`

	// Backends lists the registered backends by identifier.
	Backends map[string]BackendConfig `yaml:"backends"`

	Retry     RetryConfig     `yaml:"retry"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Timeout   TimeoutConfig   `yaml:"timeout"`

	// Pricing maps model identifiers to per-million costs for estimation.
	Pricing map[string]PricingConfig `yaml:"pricing"`

	Redis      RedisConfig      `yaml:"redis"`
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// ChunkSize is the synthetic stream content piece size in bytes.
	ChunkSize int `yaml:"chunk_size"`
}

// BackendConfig describes one backend registration. The APIKeyEnv field
// names an environment variable rather than embedding the secret.
type BackendConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`

	// Usage names the raw usage fields, feeding the analytics field map.
	Usage UsageFieldsConfig `yaml:"usage"`
}

// UsageFieldsConfig mirrors analytics.FieldMap in YAML form.
type UsageFieldsConfig struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Total    string `yaml:"total"`
	Cost     string `yaml:"cost"`
	Currency string `yaml:"currency"`
}

// RetryConfig mirrors middleware.RetryConfig in YAML form.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
	JitterFraction float64       `yaml:"jitter_fraction"`
}

// BreakerConfig mirrors middleware.BreakerConfig in YAML form.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	FailureWindow    time.Duration `yaml:"failure_window"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// RateLimitConfig mirrors middleware.RateLimitConfig in YAML form.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	WaitForSlot       bool    `yaml:"wait_for_slot"`
}

// TimeoutConfig mirrors middleware.TimeoutConfig in YAML form.
type TimeoutConfig struct {
	Call   time.Duration `yaml:"call"`
	Stream time.Duration `yaml:"stream"`
}

// PricingConfig is the per-million pricing of one model.
type PricingConfig struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// RedisConfig enables the Redis usage sink when Address is set.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
	MaxLen   int64  `yaml:"max_len"`
}

// EvaluationConfig enables post-completion scoring when Backend is set.
type EvaluationConfig struct {
	Backend         string        `yaml:"backend"`
	Model           string        `yaml:"model"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Load parses the YAML configuration at path and applies defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(content)
}

// Parse decodes YAML configuration bytes and applies defaults.
func Parse(content []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadEnv loads a dotenv file into the process environment, for API keys
// referenced by api_key_env. A missing file is not an error; deployments
// commonly set the environment directly.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: load env %s: %w", path, err)
	}
	return nil
}

// APIKey resolves the backend's API key from the environment variable
// named in its configuration.
func (b BackendConfig) APIKey() string {
	if b.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(b.APIKeyEnv)
}

func (c *Config) applyDefaults() {
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 4
	}
	if c.Retry.InitialBackoff == 0 {
		c.Retry.InitialBackoff = time.Second
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.Cooldown == 0 {
		c.Breaker.Cooldown = 30 * time.Second
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.Timeout.Call == 0 {
		c.Timeout.Call = 60 * time.Second
	}
	if c.Timeout.Stream == 0 {
		c.Timeout.Stream = 5 * time.Minute
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 64
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "aigw:usage"
	}
	if c.Evaluation.Backend != "" && c.Evaluation.MaxOutputTokens == 0 {
		c.Evaluation.MaxOutputTokens = 256
	}
}

// Stack converts the resilience sections into the middleware stack
// configuration used for every backend without a per-backend override.
func (c *Config) Stack() middleware.StackConfig {
	return middleware.StackConfig{
		Retry: middleware.RetryConfig{
			MaxAttempts:    c.Retry.MaxAttempts,
			InitialBackoff: c.Retry.InitialBackoff,
			MaxBackoff:     c.Retry.MaxBackoff,
			BackoffFactor:  c.Retry.BackoffFactor,
			JitterFraction: c.Retry.JitterFraction,
		},
		Breaker: middleware.BreakerConfig{
			FailureThreshold: c.Breaker.FailureThreshold,
			FailureWindow:    c.Breaker.FailureWindow,
			Cooldown:         c.Breaker.Cooldown,
		},
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: c.RateLimit.RequestsPerSecond,
			Burst:             c.RateLimit.Burst,
			WaitForSlot:       c.RateLimit.WaitForSlot,
		},
		Timeout: middleware.TimeoutConfig{
			CallTimeout:   c.Timeout.Call,
			StreamTimeout: c.Timeout.Stream,
		},
	}
}

// FieldMaps converts the per-backend usage sections into analytics field
// maps, skipping backends that declare none.
func (c *Config) FieldMaps() map[string]analytics.FieldMap {
	maps := make(map[string]analytics.FieldMap)
	for name, backendCfg := range c.Backends {
		usage := backendCfg.Usage
		if usage.Input == "" && usage.Output == "" {
			continue
		}
		maps[name] = analytics.FieldMap{
			Input:    usage.Input,
			Output:   usage.Output,
			Total:    usage.Total,
			Cost:     usage.Cost,
			Currency: usage.Currency,
		}
	}
	return maps
}

// PricingTable converts the pricing section into a cost table.
func (c *Config) PricingTable() cost.Table {
	if len(c.Pricing) == 0 {
		return nil
	}
	table := make(cost.Table, len(c.Pricing))
	for model, pricing := range c.Pricing {
		table[model] = cost.ModelCost{
			InputCostPerMillion:  pricing.InputPerMillion,
			OutputCostPerMillion: pricing.OutputPerMillion,
		}
	}
	return table
}
