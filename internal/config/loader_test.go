package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 8080
  mode: debug
log:
  level: debug
  format: console
llm:
  api_key: "sk-file"
  model: "deepseek-chat"
  timeout: 30s
segmenter:
  engine: rune
  pinyin_style: tone
cache:
  enabled: true
  backend: redis
  ttl: 1h
  redis:
    addr: "redis:6379"
events:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
metrics:
  enabled: true
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// clearEnv unsets the variables a developer shell is likely to carry.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range legacyEnv {
		if old, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, old) })
		}
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "rune", cfg.Segmenter.Engine)
	assert.Equal(t, "tone", cfg.Segmenter.PinyinStyle)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
	assert.True(t, cfg.Metrics.Enabled)
	// Defaults still apply to unset fields.
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
}

func TestLoad_ShippedConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.InDelta(t, 0.75, cfg.LLM.Temperature, 1e-9)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server: ["))
	assert.ErrorIs(t, err, ErrConfigParseError)
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server:\n  port: 70000\n"))
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestLoad_EnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("GUWEN_SERVER_PORT", "9999")
	t.Setenv("GUWEN_CACHE_REDIS_ADDR", "cache:6380")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "cache:6380", cfg.Cache.Redis.Addr)
}

func TestLoadFromEnv_LegacyVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-legacy")
	t.Setenv("DEEPSEEK_MODEL", "deepseek-reasoner")
	t.Setenv("TEMPERATURE", "0.3")
	t.Setenv("MAX_TOKENS", "512")
	t.Setenv("TOP_P", "0.5")
	t.Setenv("TIMEOUT", "45")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", cfg.LLM.APIKey)
	assert.Equal(t, "deepseek-reasoner", cfg.LLM.Model)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 512, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.5, cfg.LLM.TopP)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
}

func TestLoadFromEnv_PrefixedWinsOverLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-legacy")
	t.Setenv("GUWEN_LLM_API_KEY", "sk-prefixed")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-prefixed", cfg.LLM.APIKey)
}

func TestLoadFromEnv_SliceFromCommaList(t *testing.T) {
	clearEnv(t)
	t.Setenv("GUWEN_EVENTS_BROKERS", "a:9092,b:9092")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.Brokers)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.False(t, cfg.LLM.Configured())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("GUWEN_TEST_DOTENV=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("GUWEN_TEST_DOTENV") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("GUWEN_TEST_DOTENV"))
	assert.NoError(t, loadDotEnv(filepath.Join(dir, "absent.env")))
}

func TestSecondsToDurationHook(t *testing.T) {
	durType := reflect.TypeOf(time.Duration(0))
	strType := reflect.TypeOf("")

	out, err := secondsToDurationHook(strType, durType, "60")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, out)

	out, _ = secondsToDurationHook(reflect.TypeOf(0), durType, 2)
	assert.Equal(t, 2*time.Second, out)

	out, _ = secondsToDurationHook(strType, durType, "1m")
	assert.Equal(t, "1m", out)

	out, _ = secondsToDurationHook(strType, strType, "60")
	assert.Equal(t, "60", out)
}

func TestConfigKeys(t *testing.T) {
	keys := configKeys(reflect.TypeOf(Config{}), "")
	assert.Contains(t, keys, "server.port")
	assert.Contains(t, keys, "server.rate_limit.requests_per_minute")
	assert.Contains(t, keys, "llm.api_key")
	assert.Contains(t, keys, "cache.redis.addr")
	assert.Contains(t, keys, "events.brokers")
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	clearEnv(t)
	path := createTempConfigFile(t, validConfigYAML)

	var (
		mu  sync.Mutex
		got *Config
	)
	require.NoError(t, Watch(path, func(c *Config) {
		mu.Lock()
		got = c
		mu.Unlock()
	}, nil))

	updated := strings.Replace(validConfigYAML, "level: debug", "level: warn", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil && got.Log.Level == "warn"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_MissingFile(t *testing.T) {
	assert.Error(t, Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil))
}
