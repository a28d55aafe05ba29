// Package config loads service configuration for the pagequery server.
//
// Values come from, in increasing priority:
//  1. defaults
//  2. config.yaml (., ./config, /etc/pagequery, or an explicit path)
//  3. environment variables (DATABASE_URL, SERVER_PORT, LOG_LEVEL, ...)
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/theplant/pagequery/filter"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Pagination PaginationConfig `mapstructure:"pagination"`

	// PolicyFile optionally replaces the built-in resource policies.
	PolicyFile string `mapstructure:"policy_file"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address for Port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	// LogLevel controls SQL logging: silent, error, warn or info.
	LogLevel      string        `mapstructure:"log_level"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// PaginationConfig bounds what clients may ask of list endpoints.
type PaginationConfig struct {
	DefaultItemsPerPage int                     `mapstructure:"default_items_per_page"`
	MaxItemsPerPage     int                     `mapstructure:"max_items_per_page"`
	OverlapCount        bool                    `mapstructure:"overlap_count"`
	Complexity          filter.ComplexityLimits `mapstructure:"complexity"`
}

// Load reads configuration from file and environment variables. An empty
// path searches the default locations and tolerates a missing file; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/pagequery")
	}

	// database.max_conns → DATABASE_MAX_CONNS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Pagination.DefaultItemsPerPage < 1 {
		return fmt.Errorf("pagination.default_items_per_page must be positive")
	}
	if c.Pagination.MaxItemsPerPage < c.Pagination.DefaultItemsPerPage {
		return fmt.Errorf("pagination.max_items_per_page must be at least default_items_per_page")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	switch c.Database.LogLevel {
	case "silent", "error", "warn", "info":
	default:
		return fmt.Errorf("database.log_level must be silent, error, warn or info, got %q", c.Database.LogLevel)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Database
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pagequery")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "pagequery")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_threshold", "200ms")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Pagination
	v.SetDefault("pagination.default_items_per_page", 10)
	v.SetDefault("pagination.max_items_per_page", 100)
	v.SetDefault("pagination.overlap_count", false)
	v.SetDefault("pagination.complexity.max_depth", filter.DefaultLimits.MaxDepth)
	v.SetDefault("pagination.complexity.max_total_fields", filter.DefaultLimits.MaxTotalFields)
	v.SetDefault("pagination.complexity.max_operators", filter.DefaultLimits.MaxOperators)
	v.SetDefault("pagination.complexity.max_set_size", filter.DefaultLimits.MaxSetSize)

	v.SetDefault("policy_file", "")
}
