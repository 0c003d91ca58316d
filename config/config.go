package config

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type WebServerConfig struct {
	Port            string `mapstructure:"port"`
	IP              string `mapstructure:"ip"`
	Scheme          string `mapstructure:"scheme"`
	BaseURL         string `mapstructure:"base_url"` // Public URL used in share QR codes, derived from scheme/ip/port when empty
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type BackendConfig struct {
	URL               string  `mapstructure:"url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"` // Outbound limit, 0 disables it
	Burst             int     `mapstructure:"burst"`
}

type RedisConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
	KeyPrefix        string `mapstructure:"key_prefix"`
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type DisplayConfig struct {
	FenceRequests   bool     `mapstructure:"fence_requests"` // Discard superseded responses (last issued wins)
	PageWaitSeconds int      `mapstructure:"page_wait_seconds"`
	TickCount       int      `mapstructure:"tick_count"`
	Timezones       []string `mapstructure:"timezones"` // Options of the timezone selector, "local" is the server zone
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

type Config struct {
	WebServer WebServerConfig `mapstructure:"webserver"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Display   DisplayConfig   `mapstructure:"display"`
	Log       LogConfig       `mapstructure:"log"`
}

// LoadConfig reads config.yaml from the working directory when present and
// applies RDRDASH_* environment overrides, e.g. RDRDASH_BACKEND_URL.
func LoadConfig() (Config, error) {
	var config Config

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Enable environment variable overrides
	viper.SetEnvPrefix("RDRDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Error().Err(err).Msg("Error reading config file")
			return config, err
		}
		log.Info().Msg("No config file found, using defaults and environment")
	}

	if err := viper.Unmarshal(&config); err != nil {
		log.Error().Err(err).Msg("Unable to decode into struct")
		return config, err
	}

	log.Info().Str("backend", config.Backend.URL).Msg("Configuration loaded successfully")
	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return config
}

func setDefaults() {
	// WebServer defaults
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.ip", "127.0.0.1")
	viper.SetDefault("webserver.scheme", "http")
	viper.SetDefault("webserver.base_url", "")
	viper.SetDefault("webserver.read_timeout", 15)
	viper.SetDefault("webserver.write_timeout", 30)
	viper.SetDefault("webserver.shutdown_timeout", 30)

	// Backend defaults
	viper.SetDefault("backend.url", "https://data-backend.bed.dev")
	viper.SetDefault("backend.timeout_seconds", 20)
	viper.SetDefault("backend.requests_per_second", 20.0)
	viper.SetDefault("backend.burst", 40)

	// Redis defaults
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)
	viper.SetDefault("redis.operation_timeout", 2)
	viper.SetDefault("redis.key_prefix", "rdrdash:")

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size_mb", 64)
	viper.SetDefault("cache.ttl_seconds", 30)
	viper.SetDefault("cache.counter_size", 100000)

	// RateLimit defaults
	viper.SetDefault("ratelimit.requests_per_second", 10.0)
	viper.SetDefault("ratelimit.burst", 20)

	// Display defaults
	viper.SetDefault("display.fence_requests", true)
	viper.SetDefault("display.page_wait_seconds", 5) // Must stay below backend.timeout_seconds
	viper.SetDefault("display.tick_count", 10)
	viper.SetDefault("display.timezones", []string{
		"UTC",
		"America/Los_Angeles",
		"America/New_York",
		"America/Chicago",
		"America/Phoenix",
		"local",
	})

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}
