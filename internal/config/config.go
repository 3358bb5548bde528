package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Events   EventsConfig   `yaml:"events"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
	RateLimit   int    `yaml:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type EventsConfig struct {
	URL string `yaml:"url"`
}

type EngineConfig struct {
	// SignificanceThreshold is the category spread, in score points,
	// above which comparisons emit strength and weakness insights.
	SignificanceThreshold float64 `yaml:"significance_threshold"`

	// DefaultGranularity buckets analytics trends when the request does
	// not specify one. Accepts day, week or month.
	DefaultGranularity string `yaml:"default_granularity"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
			RateLimit:   120,
		},
		Events: EventsConfig{
			URL: "nats://localhost:4222",
		},
		Engine: EngineConfig{
			SignificanceThreshold: 20,
			DefaultGranularity:    "month",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BIDWISE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("BIDWISE_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("BIDWISE_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("BIDWISE_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("BIDWISE_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("BIDWISE_NATS_URL"); v != "" {
		cfg.Events.URL = v
	}
	if v := os.Getenv("BIDWISE_SIGNIFICANCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.SignificanceThreshold = f
		}
	}
	if v := os.Getenv("BIDWISE_DEFAULT_GRANULARITY"); v != "" {
		cfg.Engine.DefaultGranularity = v
	}
	if v := os.Getenv("BIDWISE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
