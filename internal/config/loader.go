package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "GUWEN"

var (
	ErrConfigFileNotFound = stderrors.New("config file not found")
	ErrConfigParseError   = stderrors.New("config parse error")
	ErrConfigValidation   = stderrors.New("config validation failed")
)

// legacyEnv maps keys to the unprefixed variables the first deployment of
// the service read.  GUWEN_* wins when both are set.
var legacyEnv = map[string]string{
	"llm.api_key":     "DEEPSEEK_API_KEY",
	"llm.api_url":     "DEEPSEEK_API_URL",
	"llm.model":       "DEEPSEEK_MODEL",
	"llm.temperature": "TEMPERATURE",
	"llm.max_tokens":  "MAX_TOKENS",
	"llm.top_p":       "TOP_P",
	"llm.timeout":     "TIMEOUT",
}

// newViper builds a Viper instance with YAML file type, GUWEN_ env prefix
// and a "." → "_" key replacer, so "llm.api_key" resolves to
// GUWEN_LLM_API_KEY.  Every Config key is bound explicitly; AutomaticEnv
// alone does not reach Unmarshal for keys absent from the file.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys(reflect.TypeOf(Config{}), "") {
		envName := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if legacy, ok := legacyEnv[key]; ok {
			_ = v.BindEnv(key, envName, legacy)
			continue
		}
		_ = v.BindEnv(key, envName)
	}
	return v
}

// configKeys lists the dotted mapstructure keys of every leaf field of t.
func configKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Time{}) {
			keys = append(keys, configKeys(f.Type, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// loadDotEnv loads a .env file from the working directory into the process
// environment.  Variables already set are not overridden.  A missing file is
// not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load reads .env, then the YAML file at configPath, merges GUWEN_* and
// legacy environment overrides, applies defaults and validates the result.
// An empty configPath behaves like LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("config: failed to load .env: %w", err)
	}
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) || stderrors.As(err, new(viper.ConfigFileNotFoundError)) {
				return nil, fmt.Errorf("config: %q: %w", configPath, ErrConfigFileNotFound)
			}
			return nil, fmt.Errorf("config: failed to read %q: %v: %w", configPath, err, ErrConfigParseError)
		}
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from the environment (and .env), with
// no config file.
//
//	GUWEN_<SECTION>_<FIELD>   e.g.  GUWEN_SERVER_PORT, GUWEN_CACHE_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %v: %w", err, ErrConfigParseError)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrConfigValidation)
	}
	return cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// secondsToDurationHook reads bare numbers as seconds, so TIMEOUT=60 and
// "timeout: 60" both mean one minute.
func secondsToDurationHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return time.Duration(n * float64(time.Second)), nil
		}
	}
	return data, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed
// Config whenever the file changes.  It is meant for hot-reloading safe
// settings such as the log level; callers apply only that subset.  A change
// that fails to parse or validate is passed to onError, when non-nil, and
// onChange is not called.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: watch %q: %w", configPath, err)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on any error.  For use in main().
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
