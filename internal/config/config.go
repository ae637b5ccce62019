// Package config defines the configuration of the Guwen annotator.  No I/O
// or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/database/redis"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/llm"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/segment"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	Mode            string          `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64           `mapstructure:"max_body_size"`
	CORSOrigins     []string        `mapstructure:"cors_origins"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// LogConfig mirrors logging.LogConfig with viper tags.
type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// Logging converts to the logger's own config type.
func (l LogConfig) Logging() logging.LogConfig {
	return logging.LogConfig{Level: l.Level, Format: l.Format, OutputPaths: l.OutputPaths}
}

// CacheConfig selects the model response cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"` // "memory" | "redis"
	TTL     time.Duration `mapstructure:"ttl"`
	// Size bounds the in-memory LRU.
	Size      int               `mapstructure:"size"`
	KeyPrefix string            `mapstructure:"key_prefix"`
	Redis     redis.RedisConfig `mapstructure:"redis"`
}

// EventsConfig configures annotation events on Kafka.
type EventsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	FailedTopic  string        `mapstructure:"failed_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Async        bool          `mapstructure:"async"`
	// CreateTopics makes the API server create missing topics at startup.
	CreateTopics      bool   `mapstructure:"create_topics"`
	ReplicationFactor int    `mapstructure:"replication_factor"`
	SASLUsername      string `mapstructure:"sasl_username"`
	SASLPassword      string `mapstructure:"sasl_password"`
}

// MetricsConfig configures the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration.
type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Log       LogConfig      `mapstructure:"log"`
	LLM       llm.Config     `mapstructure:"llm"`
	Segmenter segment.Config `mapstructure:"segmenter"`
	Cache     CacheConfig    `mapstructure:"cache"`
	Events    EventsConfig   `mapstructure:"events"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.  A missing API key is not an
// error: the service starts and reports itself unconfigured.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("config: server.rate_limit.requests_per_minute must be ≥ 1, got %d", c.Server.RateLimit.RequestsPerMinute)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// LLM
	u, err := url.Parse(c.LLM.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: llm.api_url %q is not an http(s) URL", c.LLM.APIURL)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config: llm.temperature %.2f is out of range [0, 2]", c.LLM.Temperature)
	}
	if c.LLM.TopP <= 0 || c.LLM.TopP > 1 {
		return fmt.Errorf("config: llm.top_p %.2f is out of range (0, 1]", c.LLM.TopP)
	}

	// Segmenter
	switch strings.ToLower(c.Segmenter.Engine) {
	case segment.EngineGse, segment.EngineRune:
	default:
		return fmt.Errorf("config: segmenter.engine %q is invalid; expected gse|rune", c.Segmenter.Engine)
	}
	switch c.Segmenter.PinyinStyle {
	case "", "normal", "tone", "tone3":
	default:
		return fmt.Errorf("config: segmenter.pinyin_style %q is invalid; expected normal|tone|tone3", c.Segmenter.PinyinStyle)
	}

	// Cache
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "memory":
		case "redis":
			if c.Cache.Redis.Addr == "" && c.Cache.Redis.Mode != "sentinel" && c.Cache.Redis.Mode != "cluster" {
				return fmt.Errorf("config: cache.redis.addr is required")
			}
		default:
			return fmt.Errorf("config: cache.backend %q is invalid; expected memory|redis", c.Cache.Backend)
		}
	}

	// Events
	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("config: events.brokers must contain at least one broker address")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("config: events.topic is required")
		}
	}

	return nil
}
