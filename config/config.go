package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig        `mapstructure:"server"`
	Sandbox   SandboxConfig       `mapstructure:"sandbox"`
	Execution ExecutionConfig     `mapstructure:"execution"`
	Store     StoreConfig         `mapstructure:"store"`
	Logging   LoggingConfig       `mapstructure:"logging"`
	Languages map[string]Language `mapstructure:"languages"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// SandboxConfig holds container sandbox configuration
type SandboxConfig struct {
	DockerHost        string  `mapstructure:"docker_host"`
	MemoryMB          int     `mapstructure:"memory_mb"`
	CPUCores          float64 `mapstructure:"cpu_cores"`
	ScratchSizeMB     int     `mapstructure:"scratch_size_mb"`
	PullImages        bool    `mapstructure:"pull_images"`
	CleanupTimeoutSec int     `mapstructure:"cleanup_timeout_sec"`
}

// ExecutionConfig holds request limits and scheduling knobs
type ExecutionConfig struct {
	DefaultTimeoutSec int `mapstructure:"default_timeout_sec"`
	MaxCodeChars      int `mapstructure:"max_code_chars"`
	MaxInputChars     int `mapstructure:"max_input_chars"`
	// MaxConcurrent bounds running containers. Zero means unbounded.
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// StoreConfig holds execution record store configuration
type StoreConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
	NATS    NATSConfig    `mapstructure:"nats"`
}

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig holds the NATS JetStream key-value settings
type NATSConfig struct {
	URL    string `mapstructure:"url"`
	Bucket string `mapstructure:"bucket"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// Language holds one language profile override
type Language struct {
	Image     string `mapstructure:"image"`
	Extension string `mapstructure:"extension"`
	FileName  string `mapstructure:"file_name"`
	Command   string `mapstructure:"command"`
}

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreNATS   = "nats"
)

// New loads and validates the application configuration
func New() (*Config, error) {
	// A missing .env is the common case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("EXECBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", "http")
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("sandbox.docker_host", "")
	v.SetDefault("sandbox.memory_mb", 128)
	v.SetDefault("sandbox.cpu_cores", 0.5)
	v.SetDefault("sandbox.scratch_size_mb", 64)
	v.SetDefault("sandbox.pull_images", false)
	v.SetDefault("sandbox.cleanup_timeout_sec", 10)

	v.SetDefault("execution.default_timeout_sec", 10)
	v.SetDefault("execution.max_code_chars", 50000)
	v.SetDefault("execution.max_input_chars", 10000)
	v.SetDefault("execution.max_concurrent", 0)

	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.ttl", time.Hour)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.nats.url", "nats://localhost:4222")
	v.SetDefault("store.nats.bucket", "executions")

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Server.Transport == "http" && (c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("invalid server.http_port: %d", c.Server.HTTPPort)
	}

	if c.Sandbox.MemoryMB <= 0 {
		return fmt.Errorf("sandbox.memory_mb must be positive, got: %d", c.Sandbox.MemoryMB)
	}

	if c.Sandbox.CPUCores <= 0 {
		return fmt.Errorf("sandbox.cpu_cores must be positive, got: %v", c.Sandbox.CPUCores)
	}

	if c.Sandbox.ScratchSizeMB <= 0 {
		return fmt.Errorf("sandbox.scratch_size_mb must be positive, got: %d", c.Sandbox.ScratchSizeMB)
	}

	if c.Sandbox.CleanupTimeoutSec <= 0 {
		return fmt.Errorf("sandbox.cleanup_timeout_sec must be positive, got: %d", c.Sandbox.CleanupTimeoutSec)
	}

	if c.Execution.DefaultTimeoutSec <= 0 {
		return fmt.Errorf("execution.default_timeout_sec must be positive, got: %d", c.Execution.DefaultTimeoutSec)
	}

	if c.Execution.MaxCodeChars <= 0 {
		return fmt.Errorf("execution.max_code_chars must be positive, got: %d", c.Execution.MaxCodeChars)
	}

	if c.Execution.MaxInputChars <= 0 {
		return fmt.Errorf("execution.max_input_chars must be positive, got: %d", c.Execution.MaxInputChars)
	}

	if c.Execution.MaxConcurrent < 0 {
		return fmt.Errorf("execution.max_concurrent must not be negative, got: %d", c.Execution.MaxConcurrent)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	case StoreNATS:
		if c.Store.NATS.URL == "" || c.Store.NATS.Bucket == "" {
			return fmt.Errorf("store.nats.url and store.nats.bucket are required for the nats backend")
		}
	default:
		return fmt.Errorf("unsupported store.backend: %s", c.Store.Backend)
	}

	if c.Store.TTL <= 0 {
		return fmt.Errorf("store.ttl must be positive, got: %s", c.Store.TTL)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// GetCleanupTimeout returns the container teardown budget as a duration
func (c *Config) GetCleanupTimeout() time.Duration {
	return time.Duration(c.Sandbox.CleanupTimeoutSec) * time.Second
}
