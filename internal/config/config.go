// Package config defines the application configuration, loaded from a YAML
// file and AUDITLENS_* environment variables via viper in cmd.
package config

import (
	"fmt"
	"strings"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
}

// LoggerConfig configures the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// DatabaseConfig holds the connection details for the optional findings store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// EngineConfig configures the normalization front end.
type EngineConfig struct {
	// Workers bounds the number of report files normalized concurrently.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// ResolverConfig carries the category to service-name-variant table used when
// locating a category's payload inside an outer envelope. Empty means the
// compiled-in defaults.
type ResolverConfig struct {
	Variants map[string][]string `mapstructure:"variants" yaml:"variants"`
}

// ApplyDefaults fills zero values with sane defaults.
func (c *Config) ApplyDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}
	if c.Logger.ServiceName == "" {
		c.Logger.ServiceName = "auditlens"
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = 4
	}
}

// Validate rejects configurations the application cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logger.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.Logger.Format)
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers)
	}
	return nil
}
