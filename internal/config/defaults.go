package config

import (
	"time"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/segment"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort      = 5004
	DefaultServerMode      = "release"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxBodySize     = 1 << 20
	DefaultRequestsPerMin  = 120

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultCacheBackend   = "memory"
	DefaultCacheTTL       = 24 * time.Hour
	DefaultCacheSize      = 1024
	DefaultCacheKeyPrefix = "guwen:"
	DefaultRedisAddr      = "localhost:6379"

	DefaultKafkaBroker       = "localhost:9092"
	DefaultEventWriteTimeout = 5 * time.Second

	DefaultMetricsNamespace = "guwen"
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields that have already been set are left unchanged so that explicit
// configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		// Must outlive the model timeout.
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.RateLimit.RequestsPerMinute == 0 {
		cfg.Server.RateLimit.RequestsPerMinute = DefaultRequestsPerMin
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── LLM ───────────────────────────────────────────────────────────────────
	cfg.LLM.ApplyDefaults()

	// ── Segmenter ─────────────────────────────────────────────────────────────
	if cfg.Segmenter.Engine == "" {
		cfg.Segmenter.Engine = segment.EngineGse
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = DefaultCacheSize
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = DefaultRedisAddr
	}

	// ── Events ────────────────────────────────────────────────────────────────
	if len(cfg.Events.Brokers) == 0 {
		cfg.Events.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = kafka.TopicAnnotationCompleted
	}
	if cfg.Events.FailedTopic == "" {
		cfg.Events.FailedTopic = kafka.TopicAnnotationFailed
	}
	if cfg.Events.WriteTimeout == 0 {
		cfg.Events.WriteTimeout = DefaultEventWriteTimeout
	}
	if cfg.Events.ReplicationFactor == 0 {
		cfg.Events.ReplicationFactor = 1
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}
