// Package config manages the s3sig client's configuration: the SigV4
// scope it signs into, its multipart tuning, and its ambient logging,
// metrics, and registry settings. Configuration loads from an optional YAML
// file and from S3SIG_-prefixed environment variables, which always win.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete client configuration.
type Config struct {
	Signing   SigningConfig   `mapstructure:"signing"`
	Multipart MultipartConfig `mapstructure:"multipart"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// SigningConfig binds the SigV4 scope every signed request uses.
type SigningConfig struct {
	Region   string `mapstructure:"region"`
	Service  string `mapstructure:"service"`
	Endpoint string `mapstructure:"endpoint"` // "" means the default AWS endpoint suffix
}

// MultipartConfig holds part size and concurrency settings for Stream. It is
// loaded and validated; cmd/s3sig-client does not read it.
type MultipartConfig struct {
	PartSize    int64 `mapstructure:"part_size"`
	MaxInflight int   `mapstructure:"max_inflight"`
}

// LoggingConfig holds zerolog root logger settings. Level is validated;
// cmd/s3sig-client does not read this section and always logs through a
// console writer.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus endpoint settings. cmd/s3sig-client does not
// read it: /metrics is always served on the diagnostic server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// RegistryConfig selects and configures the multipart crash-recovery store.
type RegistryConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`

	// SQLitePath is used when Driver is "sqlite".
	SQLitePath string `mapstructure:"sqlite_path"`

	// PostgresDSN is used when Driver is "postgres".
	PostgresDSN string `mapstructure:"postgres_dsn"`

	// GCInterval is how often the stale-upload sweep runs.
	GCInterval time.Duration `mapstructure:"gc_interval"`

	// StaleAfter is how long a registry row may sit in StateOpen before the
	// sweep marks it aborted, on the assumption its owning process died.
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// RedisConfig configures the optional distributed lock backing concurrent
// registry access from multiple client processes.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address in host:port form.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from configPath (if non-empty) and from
// S3SIG_-prefixed environment variables, which take precedence over file
// values.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("S3SIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/s3sig")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("signing.region", "us-east-1")
	v.SetDefault("signing.service", "s3")
	v.SetDefault("signing.endpoint", "")

	v.SetDefault("multipart.part_size", 8*1024*1024)
	v.SetDefault("multipart.max_inflight", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("registry.driver", "sqlite")
	v.SetDefault("registry.sqlite_path", "./data/s3sig-registry.db")
	v.SetDefault("registry.postgres_dsn", "")
	v.SetDefault("registry.gc_interval", 5*time.Minute)
	v.SetDefault("registry.stale_after", 24*time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Validate checks required values and valid ranges.
func (c *Config) Validate() error {
	if c.Signing.Region == "" {
		return fmt.Errorf("signing.region is required")
	}
	if c.Signing.Service == "" {
		return fmt.Errorf("signing.service is required")
	}

	if c.Multipart.PartSize < 0 {
		return fmt.Errorf("multipart.part_size must not be negative")
	}
	if c.Multipart.MaxInflight < 0 {
		return fmt.Errorf("multipart.max_inflight must not be negative")
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true}
	if !validDrivers[c.Registry.Driver] {
		return fmt.Errorf("registry.driver must be 'sqlite' or 'postgres'")
	}
	if c.Registry.Driver == "sqlite" && c.Registry.SQLitePath == "" {
		return fmt.Errorf("registry.sqlite_path is required for the sqlite driver")
	}
	if c.Registry.Driver == "postgres" && c.Registry.PostgresDSN == "" {
		return fmt.Errorf("registry.postgres_dsn is required for the postgres driver")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// MustLoad loads configuration or panics on error. Intended for use during
// process startup, where there is no sensible way to continue without it.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
