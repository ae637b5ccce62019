package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultedConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := defaultedConfig()
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://api.deepseek.com/v1/chat/completions", cfg.LLM.APIURL)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 0.75, cfg.LLM.Temperature)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.9, cfg.LLM.TopP)
	assert.Equal(t, "gse", cfg.Segmenter.Engine)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "guwen.annotation.completed", cfg.Events.Topic)
	assert.Equal(t, "guwen", cfg.Metrics.Namespace)
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaults_KeepsExplicit(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8080}, Log: LogConfig{Level: "debug"}}
	ApplyDefaults(cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"rate limit", func(c *Config) { c.Server.RateLimit = RateLimitConfig{Enabled: true, RequestsPerMinute: -1} }, "rate_limit"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "text" }, "log.format"},
		{"api url", func(c *Config) { c.LLM.APIURL = "ftp://x" }, "llm.api_url"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"top_p", func(c *Config) { c.LLM.TopP = 1.5 }, "llm.top_p"},
		{"engine", func(c *Config) { c.Segmenter.Engine = "jieba" }, "segmenter.engine"},
		{"pinyin", func(c *Config) { c.Segmenter.PinyinStyle = "zhuyin" }, "pinyin_style"},
		{"cache backend", func(c *Config) { c.Cache.Enabled = true; c.Cache.Backend = "memcached" }, "cache.backend"},
		{"events brokers", func(c *Config) { c.Events.Enabled = true; c.Events.Brokers = nil }, "events.brokers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultedConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_MissingAPIKeyIsAllowed(t *testing.T) {
	cfg := defaultedConfig()
	cfg.LLM.APIKey = ""
	assert.NoError(t, cfg.Validate())
}

func TestLogConfig_Logging(t *testing.T) {
	lc := LogConfig{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}}.Logging()
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, "console", lc.Format)
	assert.Equal(t, []string{"stderr"}, lc.OutputPaths)
}
