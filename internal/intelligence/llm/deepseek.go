package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatClient calls an OpenAI-compatible chat-completions endpoint such as
// DeepSeek's.  It performs no retries.
type ChatClient struct {
	cfg     Config
	hc      *http.Client
	logger  logging.Logger
	metrics *prom.AppMetrics
}

type ClientOption func(*ChatClient)

// WithHTTPClient replaces the default http.Client.  The per-request timeout
// from Config is applied through the request context either way.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *ChatClient) { c.hc = hc }
}

func WithLogger(l logging.Logger) ClientOption {
	return func(c *ChatClient) { c.logger = l }
}

func WithMetrics(m *prom.AppMetrics) ClientOption {
	return func(c *ChatClient) { c.metrics = m }
}

// NewChatClient never fails.  A missing API key is reported by Generate so
// the service can start and answer health checks without one.
func NewChatClient(cfg Config, opts ...ClientOption) *ChatClient {
	cfg.ApplyDefaults()
	c := &ChatClient{
		cfg:     cfg,
		hc:      &http.Client{},
		logger:  logging.NewNopLogger(),
		metrics: prom.NewNoopAppMetrics(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *ChatClient) Configured() bool { return c.cfg.Configured() }
func (c *ChatClient) Model() string    { return c.cfg.Model }
func (c *ChatClient) APIURL() string   { return c.cfg.APIURL }

// Generate sends req.Prompt as a single user message.
func (c *ChatClient) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	if !c.cfg.Configured() {
		return "", errors.New(errors.ErrCodeModelNotConfigured, "DEEPSEEK_API_KEY is not set")
	}
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	start := time.Now()
	answer, err := c.call(ctx, model, req.Prompt)
	elapsed := time.Since(start)
	prom.RecordLLMCall(c.metrics, model, string(req.Operation), err == nil, elapsed)

	if err != nil {
		logging.ForContext(ctx, c.logger).Warn("model call failed",
			logging.String("model", model),
			logging.String("operation", string(req.Operation)),
			logging.Duration("elapsed", elapsed),
			logging.Err(err))
		return "", err
	}
	logging.ForContext(ctx, c.logger).Debug("model call done",
		logging.String("model", model),
		logging.String("operation", string(req.Operation)),
		logging.Duration("elapsed", elapsed),
		logging.Int("answer_bytes", len(answer)))
	return answer, nil
}

func (c *ChatClient) call(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(&chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        c.cfg.TopP,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode chat request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Upstream(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", errors.Upstream(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", errors.Upstream(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(slurp))))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeModelBadResponse, "unexpected response shape")
	}
	if len(out.Choices) == 0 {
		return "", errors.New(errors.ErrCodeModelBadResponse, "unexpected response shape")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
