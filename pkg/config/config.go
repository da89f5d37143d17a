// Package config loads and validates the pagepulse configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultResultsDir is the default directory holding per-run
	// artifact trees.
	DefaultResultsDir = "./results"

	// DefaultSQLitePath is the default relational database location.
	DefaultSQLitePath = "./pagepulse.db"

	// DefaultInfluxURL is the default time-series store endpoint.
	DefaultInfluxURL = "http://localhost:8086"

	// DefaultQueryRange is the default flux query lookback window.
	DefaultQueryRange = "-30d"

	// DefaultListen is the default API listen address.
	DefaultListen = ":8080"
)

// Config is the root configuration for pagepulse.
type Config struct {
	Global   GlobalConfig   `yaml:"global" mapstructure:"global"`
	Results  ResultsConfig  `yaml:"results" mapstructure:"results"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Influx   InfluxConfig   `yaml:"influx" mapstructure:"influx"`
	Coach    CoachConfig    `yaml:"coach" mapstructure:"coach"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ResultsConfig locates the artifact trees written by the test harness.
// Each run lives at <dir>/<test_id>/pages/<page_folder>/data/.
type ResultsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// DatabaseConfig contains relational store connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// InfluxConfig contains time-series store settings.
type InfluxConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	Token  string `yaml:"token,omitempty" mapstructure:"token"`
	Org    string `yaml:"org" mapstructure:"org"`
	Bucket string `yaml:"bucket" mapstructure:"bucket"`

	// QueryRange is the flux range start for read queries, e.g. "-30d".
	QueryRange string `yaml:"query_range,omitempty" mapstructure:"query_range"`
}

// CoachConfig contains classifier settings.
type CoachConfig struct {
	// CategoryMapFile optionally extends the built-in advice id to
	// category mapping. Ids must still resolve to exactly one category.
	CategoryMapFile string `yaml:"category_map_file,omitempty" mapstructure:"category_map_file"`
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting on the API.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute,omitempty" mapstructure:"requests_per_minute"`
}

// Load reads the configuration file and applies PAGEPULSE_* environment
// overrides. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGEPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Results.Dir == "" {
		c.Results.Dir = DefaultResultsDir
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	if c.Influx.URL == "" {
		c.Influx.URL = DefaultInfluxURL
	}

	if c.Influx.Org == "" {
		c.Influx.Org = "pagepulse"
	}

	if c.Influx.Bucket == "" {
		c.Influx.Bucket = "pagepulse"
	}

	if c.Influx.QueryRange == "" {
		c.Influx.QueryRange = DefaultQueryRange
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if !strings.HasPrefix(c.Influx.QueryRange, "-") {
		return fmt.Errorf(
			"influx query_range must be a negative duration, got %q",
			c.Influx.QueryRange,
		)
	}

	if _, err := time.ParseDuration(strings.TrimPrefix(c.Influx.QueryRange, "-")); err != nil {
		// Flux accepts day units Go does not; only reject obvious garbage.
		if !strings.HasSuffix(c.Influx.QueryRange, "d") &&
			!strings.HasSuffix(c.Influx.QueryRange, "w") {
			return fmt.Errorf("invalid influx query_range %q", c.Influx.QueryRange)
		}
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests_per_minute must be positive")
	}

	return nil
}
