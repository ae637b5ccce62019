package client

import (
	"context"

	"github.com/turtacn/Guwen-Annotator/pkg/types/text"
)

type SegmentResponse struct {
	Tokens []text.TokenSpan  `json:"tokens"`
	Stats  text.SegmentStats `json:"stats"`
	Engine string            `json:"engine"`
}

type AnnotateResponse struct {
	Annotations []text.EntitySpan    `json:"annotations"`
	Stats       text.AnnotationStats `json:"stats"`
}

type AIHealth struct {
	Status     string `json:"status"`
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
	APIURL     string `json:"api_url"`
}

type resultResponse struct {
	Result string `json:"result"`
}

// Segment calls POST /api/segment.
func (c *Client) Segment(ctx context.Context, passage string, pinyin bool) (*SegmentResponse, error) {
	var out SegmentResponse
	body := map[string]interface{}{"text": passage, "pinyin": pinyin}
	if err := c.post(ctx, "/api/segment", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze calls POST /api/analyze.  An empty model uses the server default.
func (c *Client) Analyze(ctx context.Context, passage, model string) (string, error) {
	var out resultResponse
	body := map[string]string{"text": passage}
	if model != "" {
		body["model"] = model
	}
	if err := c.post(ctx, "/api/analyze", body, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

// Ask calls POST /api/qa.
func (c *Client) Ask(ctx context.Context, passage, question, model string) (string, error) {
	var out resultResponse
	body := map[string]string{"text": passage, "question": question}
	if model != "" {
		body["model"] = model
	}
	if err := c.post(ctx, "/api/qa", body, &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

// AutoAnnotate calls POST /api/auto-annotate.
func (c *Client) AutoAnnotate(ctx context.Context, passage string) (*AnnotateResponse, error) {
	var out AnnotateResponse
	if err := c.post(ctx, "/api/auto-annotate", map[string]string{"text": passage}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AIHealth calls GET /api/ai/health.
func (c *Client) AIHealth(ctx context.Context) (*AIHealth, error) {
	var out AIHealth
	if err := c.get(ctx, "/api/ai/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
