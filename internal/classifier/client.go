// Package classifier calls the external AI service that produces resource
// metadata and tag suggestions. The model itself is opaque; this package
// only owns the HTTP contract.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"curatehub.io/curatehub/internal/config"
)

// Input is the resource content handed to the classifier.
type Input struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Result is the structured classification for one resource.
type Result struct {
	Summary     string   `json:"summary"`
	Difficulty  string   `json:"difficulty"`
	ContentType string   `json:"content_type"`
	Tags        []string `json:"tags"`
}

// Metadata flattens the result into the resource metadata map. Empty values
// are omitted so a partial classification never erases existing keys on
// merge.
func (r Result) Metadata() map[string]string {
	out := map[string]string{}
	if r.Summary != "" {
		out["ai_summary"] = r.Summary
	}
	if r.Difficulty != "" {
		out["ai_difficulty"] = r.Difficulty
	}
	if r.ContentType != "" {
		out["ai_content_type"] = r.ContentType
	}
	return out
}

// Classifier is the contract the batch worker consumes.
type Classifier interface {
	Classify(ctx context.Context, in Input) (*Result, error)
}

const systemPrompt = `You classify developer learning resources. ` +
	`Reply with a single JSON object: {"summary": one sentence, ` +
	`"difficulty": "beginner"|"intermediate"|"advanced", ` +
	`"content_type": e.g. "article"|"tool"|"course"|"video", ` +
	`"tags": up to five lowercase topic tags}. No prose around the JSON.`

// Client implements Classifier against an OpenAI-compatible
// chat-completions endpoint.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

var _ Classifier = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.EnrichmentConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify posts the resource content and parses the JSON classification.
// A timeout counts as a failure for the caller's retry accounting.
func (c *Client) Classify(ctx context.Context, in Input) (*Result, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("classifier client misconfigured")
	}

	userPayload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal classifier input: %w", err)
	}
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": string(userPayload)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal classifier payload: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("classifier error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	return parseResult(chat.Choices[0].Message.Content)
}

// parseResult extracts the JSON object from the model reply, tolerating
// code fences around it.
func parseResult(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}
	var res Result
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}
	return &res, nil
}
