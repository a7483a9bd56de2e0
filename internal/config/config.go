package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"taskflow/pkg/logger"

	"gopkg.in/yaml.v3"
)

const (
	ModeMock = "mock"
	ModeLive = "live"
)

// Config holds application configuration.
// Precedence: defaults, then the YAML file named by CONFIG_FILE, then environment.
type Config struct {
	Mode       string `yaml:"mode"`
	HTTPPort   string `yaml:"http_port"`
	APIBaseURL string `yaml:"api_base_url"`
	LogLevel   string `yaml:"log_level"`
	MockTotal  int    `yaml:"mock_total"`

	DatabaseURL     string   `yaml:"database_url"`
	DBPoolSize      int      `yaml:"db_pool_size"`
	RedisURL        string   `yaml:"redis_url"`
	RedisPoolSize   int      `yaml:"redis_pool_size"`
	CacheTTL        int      `yaml:"cache_ttl_sec"` // seconds
	KafkaBrokers    []string `yaml:"kafka_brokers"`
	KafkaTopic      string   `yaml:"kafka_topic"`
	KafkaPartitions int      `yaml:"kafka_partitions"`
	WorkerPoolSize  int      `yaml:"worker_pool_size"`
	JWTSecret       string   `yaml:"jwt_secret"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the application config (loads once).
func Get() *Config {
	cfgOnce.Do(func() {
		c, err := Load()
		if err != nil {
			logger.Error(context.Background(), "Config file ignored", "error", err)
			c = Default()
			c.applyEnv()
		}
		cfg = c
	})
	return cfg
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Mode:            ModeMock,
		HTTPPort:        "8080",
		APIBaseURL:      "http://localhost:8080",
		LogLevel:        "info",
		MockTotal:       1,
		DBPoolSize:      100,
		RedisURL:        "redis://localhost:6379/0",
		RedisPoolSize:   500,
		CacheTTL:        300,
		KafkaTopic:      "todo-commands",
		KafkaPartitions: 16,
		WorkerPoolSize:  4,
		OpenAIBaseURL:   "https://api.openai.com/v1",
		OpenAIModel:     "gpt-4o-mini",
	}
}

// Load builds a fresh Config without touching the memoized one.
func Load() (*Config, error) {
	c := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := c.mergeFile(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Mode = getEnv("API_MODE", c.Mode)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.APIBaseURL = getEnv("API_BASE_URL", c.APIBaseURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.MockTotal = getIntEnv("MOCK_TOTAL", c.MockTotal)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DBPoolSize = getIntEnv("DB_POOL_SIZE", c.DBPoolSize)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.RedisPoolSize = getIntEnv("REDIS_POOL_SIZE", c.RedisPoolSize)
	c.CacheTTL = getIntEnv("CACHE_TTL_SEC", c.CacheTTL)
	c.KafkaBrokers = getSliceEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopic = getEnv("KAFKA_TODO_TOPIC", c.KafkaTopic)
	c.KafkaPartitions = getIntEnv("KAFKA_PARTITIONS", c.KafkaPartitions)
	c.WorkerPoolSize = getIntEnv("WORKER_POOL_SIZE", c.WorkerPoolSize)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
}

// Validate checks that the configuration can start a server in its mode.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeMock:
		if c.MockTotal < 0 {
			return fmt.Errorf("mock_total must not be negative")
		}
	case ModeLive:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in live mode")
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in live mode")
		}
		if c.WorkerPoolSize < 1 {
			return fmt.Errorf("worker_pool_size must be at least 1")
		}
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", c.Mode, ModeMock, ModeLive)
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("http_port is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getSliceEnv(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
