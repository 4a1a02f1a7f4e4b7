// Package config loads the service configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Defaults applied to keys missing from the file.
const (
	DefaultGRPCPort        = 50051
	DefaultHTTPPort        = 8080
	DefaultTopic           = "company-events"
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = "5s"
)

// DefaultPath is where serve looks for the file when --config is not given.
const DefaultPath = "internal/company/config/config.yaml"

// Config struct for YAML configuration
type Config struct {
	GRPCPort        int      `yaml:"GRPC_PORT"`
	HTTPPort        int      `yaml:"HTTP_PORT"`
	StoreBackend    string   `yaml:"STORE_BACKEND"`
	KafkaBrokers    []string `yaml:"KAFKA_BROKERS"`
	Topic           string   `yaml:"TOPIC"`
	LogLevel        string   `yaml:"LOG_LEVEL"`
	ShutdownTimeout string   `yaml:"SHUTDOWN_TIMEOUT"`
}

// Default returns a Config with every key at its default.
func Default() *Config {
	return &Config{
		GRPCPort:        DefaultGRPCPort,
		HTTPPort:        DefaultHTTPPort,
		StoreBackend:    BackendMemory,
		Topic:           DefaultTopic,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Load reads and validates the file at path. Keys absent from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(file)
}

// Parse decodes YAML content over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid GRPC_PORT %d", c.GRPCPort)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	if c.GRPCPort != 0 && c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("GRPC_PORT and HTTP_PORT must differ, both are %d", c.GRPCPort)
	}
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.LogLevel {
	case "info", "debug":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	if len(c.KafkaBrokers) > 0 && c.Topic == "" {
		return fmt.Errorf("TOPIC is required when KAFKA_BROKERS is set")
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// ShutdownTimeoutDuration parses SHUTDOWN_TIMEOUT.
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", c.ShutdownTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: must be positive", c.ShutdownTimeout)
	}
	return d, nil
}
