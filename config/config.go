package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Reader    ReaderConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Batch     BatchConfig
	Stores    []string `mapstructure:"stores"`
	Units     []string `mapstructure:"units"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	APIToken       string   `mapstructure:"api_token"`
}

// ReaderConfig holds configuration for the external reader/extraction service
type ReaderConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ExtractionTimeout time.Duration `mapstructure:"extraction_timeout"`
}

// RateLimitConfig holds outbound rate limiting configuration. The effective
// requests-per-minute ceiling depends on whether a reader API key is present.
type RateLimitConfig struct {
	RPMWithKey int `mapstructure:"rpm_with_key"`
	RPMKeyless int `mapstructure:"rpm_keyless"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	GatewayTTL      time.Duration `mapstructure:"gateway_ttl"`
	GatewaySize     int           `mapstructure:"gateway_size"`
}

// BatchConfig holds batch orchestration configuration
type BatchConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	RetryEnabled   bool          `mapstructure:"retry_enabled"`
	RetryBatchSize int           `mapstructure:"retry_batch_size"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cartwise/")

	// Environment variable settings
	v.SetEnvPrefix("CARTWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	// Empty defaults so Unmarshal picks up the env-only values
	v.SetDefault("server.api_token", "")

	// Reader service defaults
	v.SetDefault("reader.api_key", "")
	v.SetDefault("reader.base_url", "https://api.reader.example.com")
	v.SetDefault("reader.timeout", "30s")
	v.SetDefault("reader.extraction_timeout", "20s")

	// Rate limit defaults (requests per minute)
	v.SetDefault("ratelimit.rpm_with_key", 200)
	v.SetDefault("ratelimit.rpm_keyless", 20)

	// Cache defaults
	v.SetDefault("cache.freshness_window", "24h")
	v.SetDefault("cache.gateway_ttl", "120s")
	v.SetDefault("cache.gateway_size", 512)

	// Batch defaults
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.retry_enabled", true)
	v.SetDefault("batch.retry_batch_size", 5)
	v.SetDefault("batch.retry_delay", "2s")

	v.SetDefault("stores", []string{
		"walmart", "target", "kroger", "meijer",
		"aldi", "safeway", "traderjoes", "99ranch",
	})
	v.SetDefault("units", []string{
		"oz", "lb", "g", "kg",
		"fl oz", "ml", "l", "gal", "qt", "pt",
		"ct", "each", "bunch", "dozen",
		"tsp", "tbsp", "cup",
	})
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.APIToken == "" {
		return fmt.Errorf("API token is required (set CARTWISE_SERVER_API_TOKEN)")
	}

	if config.RateLimit.RPMWithKey <= 0 || config.RateLimit.RPMKeyless <= 0 {
		return fmt.Errorf("rate limit RPM values must be positive")
	}

	if config.Cache.FreshnessWindow <= 0 {
		return fmt.Errorf("cache freshness window must be positive")
	}

	if len(config.Stores) == 0 {
		return fmt.Errorf("at least one store must be configured")
	}

	if config.Batch.RetryBatchSize <= 0 {
		return fmt.Errorf("retry batch size must be positive, got: %d", config.Batch.RetryBatchSize)
	}

	return nil
}
