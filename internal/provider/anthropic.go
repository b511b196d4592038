package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const anthropicBaseURL = "https://api.anthropic.com"

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	opts       Options
	httpClient *http.Client
}

func NewAnthropicClient(opts Options) *AnthropicClient {
	opts.defaults(anthropicBaseURL, "claude-sonnet-4-5")
	return &AnthropicClient{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

type cacheControl struct {
	Type string `json:"type"`
}

type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      []systemBlock      `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens              int64 `json:"input_tokens"`
		OutputTokens             int64 `json:"output_tokens"`
		CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) Name() string { return "anthropic" }

// Model returns the default model.
func (c *AnthropicClient) Model() string { return c.opts.Model }

// Stats returns the client's latency and usage tracker.
func (c *AnthropicClient) Stats() *Stats { return c.opts.Stats }

// Ask sends one request, retrying transient failures.
func (c *AnthropicClient) Ask(ctx context.Context, req Request) (string, error) {
	return withRetry(ctx, &c.opts, func(ctx context.Context, full bool) (string, error) {
		return c.ask(ctx, req, full)
	})
}

func (c *AnthropicClient) buildRequest(req Request, full bool) anthropicRequest {
	model := req.Model
	if model == "" {
		model = c.opts.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.opts.MaxTokens
	}

	var cc *cacheControl
	if full && c.opts.CacheContext {
		cc = &cacheControl{Type: "ephemeral"}
	}
	var system []systemBlock
	if req.System != "" {
		system = append(system, systemBlock{Type: "text", Text: req.System, CacheControl: cc})
	}
	if req.Context != "" {
		system = append(system, systemBlock{Type: "text", Text: req.Context, CacheControl: cc})
	}

	user := req.User
	if len(req.Schema) > 0 {
		user += "\n\nRespond with JSON only, matching this schema:\n" + string(req.Schema)
	}

	out := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: user}},
	}
	if full {
		out.Temperature = req.Temperature
	}
	return out
}

func (c *AnthropicClient) ask(ctx context.Context, req Request, full bool) (string, error) {
	body, err := json.Marshal(c.buildRequest(req, full))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	requestID := uuid.NewString()
	phase := phaseOf(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.opts.BaseURL, "/")+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.opts.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.opts.Stats.AddUsage(phase, Usage{Errors: 1})
		return "", fmt.Errorf("anthropic api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	elapsed := time.Since(start)
	c.opts.Stats.Record(phase, elapsed)
	c.opts.Logger.Debug("provider call", "provider", c.Name(), "request_id", requestID, "phase", phase,
		"status", resp.StatusCode, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if err := statusError("anthropic", resp.StatusCode, respBody); err != nil {
		c.opts.Stats.AddUsage(phase, Usage{Errors: 1})
		return "", err
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	c.opts.Stats.AddUsage(phase, Usage{
		Calls:            1,
		InputTokens:      apiResp.Usage.InputTokens,
		OutputTokens:     apiResp.Usage.OutputTokens,
		CacheReadTokens:  apiResp.Usage.CacheReadInputTokens,
		CacheWriteTokens: apiResp.Usage.CacheCreationInputTokens,
	})

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// Close releases resources.
func (c *AnthropicClient) Close() {
	c.httpClient.CloseIdleConnections()
}

var featureHints = []string{"cache_control", "temperature", "response_format", "json_schema", "structured"}

// statusError maps a non-200 status to an error: transient statuses are
// retryable and a 400 naming an optional feature wraps ErrFeatureRejected.
func statusError(name string, status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return &RetryableError{StatusCode: status, Message: string(body)}
	}
	if status == http.StatusBadRequest {
		lower := strings.ToLower(string(body))
		for _, hint := range featureHints {
			if strings.Contains(lower, hint) {
				return fmt.Errorf("%s api status %d: %w: %s", name, status, ErrFeatureRejected, truncate(string(body), 200))
			}
		}
	}
	return fmt.Errorf("%s api status %d: %s", name, status, truncate(string(body), 500))
}
