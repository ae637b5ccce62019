package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func chatAnswer(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestChatClient_Generate_Success(t *testing.T) {
	var got chatRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(chatAnswer("  学习并时常温习。 \n")))
	})

	c := NewChatClient(Config{APIKey: "sk-test", APIURL: srv.URL})
	answer, err := c.Generate(context.Background(), &GenerateRequest{Prompt: "hello", Operation: OpAnalyze})
	require.NoError(t, err)
	assert.Equal(t, "学习并时常温习。", answer)

	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, DefaultTemperature, got.Temperature)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, DefaultTopP, got.TopP)
}

func TestChatClient_Generate_ModelOverride(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(chatAnswer(req.Model)))
	})
	c := NewChatClient(Config{APIKey: "k", APIURL: srv.URL})
	answer, err := c.Generate(context.Background(), &GenerateRequest{Prompt: "p", Model: "deepseek-reasoner"})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-reasoner", answer)
}

func TestChatClient_Generate_NotConfigured(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	c := NewChatClient(Config{APIURL: srv.URL})
	assert.False(t, c.Configured())
	_, err := c.Generate(context.Background(), &GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotConfigured))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestChatClient_Generate_Non2xx(t *testing.T) {
	var calls int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"insufficient balance"}`, http.StatusPaymentRequired)
	})
	c := NewChatClient(Config{APIKey: "k", APIURL: srv.URL})
	_, err := c.Generate(context.Background(), &GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelCallFailed))
	assert.True(t, errors.IsUpstream(err))
	assert.Contains(t, err.Error(), "failed to call remote model")
	assert.Contains(t, err.Error(), "402")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retries")
}

func TestChatClient_Generate_NoChoices(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	c := NewChatClient(Config{APIKey: "k", APIURL: srv.URL})
	_, err := c.Generate(context.Background(), &GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelBadResponse))
	assert.Contains(t, err.Error(), "unexpected response shape")
}

func TestChatClient_Generate_BadJSON(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	c := NewChatClient(Config{APIKey: "k", APIURL: srv.URL})
	_, err := c.Generate(context.Background(), &GenerateRequest{Prompt: "p"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelBadResponse))
}

func TestChatClient_Generate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := NewChatClient(Config{APIKey: "k", APIURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Generate(context.Background(), &GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelTimeout))
	assert.True(t, errors.IsTimeout(err))
}

func TestChatClient_Generate_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewChatClient(Config{APIKey: "k", APIURL: url})
	_, err := c.Generate(context.Background(), &GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelCallFailed))
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	assert.Equal(t, DefaultAPIURL, c.APIURL)
	assert.Equal(t, DefaultModel, c.Model)
	assert.Equal(t, DefaultTemperature, c.Temperature)
	assert.Equal(t, DefaultTopP, c.TopP)
	assert.Equal(t, DefaultMaxTokens, c.MaxTokens)
	assert.Equal(t, DefaultTimeout, c.Timeout)

	explicit := Config{Temperature: 0, TopP: 0.5}
	explicit.ApplyDefaults()
	assert.Equal(t, 0.0, explicit.Temperature)
	assert.Equal(t, 0.5, explicit.TopP)
}
