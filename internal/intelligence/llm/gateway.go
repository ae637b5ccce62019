// Package llm builds prompts for the classical-text assistant and calls an
// OpenAI-compatible chat-completions endpoint.
package llm

import (
	"context"
	"time"
)

const (
	DefaultAPIURL      = "https://api.deepseek.com/v1/chat/completions"
	DefaultModel       = "deepseek-chat"
	DefaultTemperature = 0.75
	DefaultMaxTokens   = 2000
	DefaultTopP        = 0.9
	DefaultTimeout     = 60 * time.Second
)

// Operation names the caller of a model request.  It is used as a metrics
// label and in cache keys.
type Operation string

const (
	OpAnalyze  Operation = "analyze"
	OpQA       Operation = "qa"
	OpAnnotate Operation = "annotate"
)

// Config configures the remote model endpoint.
type Config struct {
	APIKey      string        `mapstructure:"api_key"`
	APIURL      string        `mapstructure:"api_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	TopP        float64       `mapstructure:"top_p"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ApplyDefaults fills zero fields.  Temperature and TopP are only defaulted
// when both are zero, so an explicit temperature of 0 survives.
func (c *Config) ApplyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 && c.TopP == 0 {
		c.Temperature = DefaultTemperature
		c.TopP = DefaultTopP
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Configured reports whether an API key is present.
func (c Config) Configured() bool { return c.APIKey != "" }

// GenerateRequest is one prompt for the model.  An empty Model means the
// configured default.
type GenerateRequest struct {
	Prompt    string
	Model     string
	Operation Operation
}

// Gateway sends a prompt to a model and returns its trimmed answer.
type Gateway interface {
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}

// Describer is implemented by gateways that can report their endpoint for
// health output.
type Describer interface {
	Configured() bool
	Model() string
	APIURL() string
}
