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

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	opts       Options
	httpClient *http.Client
}

func NewOpenAIClient(opts Options) *OpenAIClient {
	opts.defaults(openAIBaseURL, "gpt-4o-mini")
	return &OpenAIClient{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	MaxTokens      int             `json:"max_tokens"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens        int64 `json:"prompt_tokens"`
		CompletionTokens    int64 `json:"completion_tokens"`
		PromptTokensDetails struct {
			CachedTokens int64 `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Name() string { return "openai" }

// Model returns the default model.
func (c *OpenAIClient) Model() string { return c.opts.Model }

// Stats returns the client's latency and usage tracker.
func (c *OpenAIClient) Stats() *Stats { return c.opts.Stats }

// Ask sends one request, retrying transient failures.
func (c *OpenAIClient) Ask(ctx context.Context, req Request) (string, error) {
	return withRetry(ctx, &c.opts, func(ctx context.Context, full bool) (string, error) {
		return c.ask(ctx, req, full)
	})
}

func (c *OpenAIClient) buildRequest(req Request, full bool) chatRequest {
	model := req.Model
	if model == "" {
		model = c.opts.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.opts.MaxTokens
	}

	var msgs []chatMessage
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	// The book context is its own leading message so its prefix is stable.
	if req.Context != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.Context})
	}
	user := req.User
	if len(req.Schema) > 0 && !full {
		user += "\n\nRespond with JSON only, matching this schema:\n" + string(req.Schema)
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: user})

	out := chatRequest{Model: model, MaxTokens: maxTokens, Messages: msgs}
	if full {
		out.Temperature = req.Temperature
		if len(req.Schema) > 0 {
			out.ResponseFormat = &responseFormat{
				Type:       "json_schema",
				JSONSchema: &jsonSchemaFormat{Name: "answer", Schema: req.Schema},
			}
		}
	}
	return out
}

func (c *OpenAIClient) ask(ctx context.Context, req Request, full bool) (string, error) {
	body, err := json.Marshal(c.buildRequest(req, full))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	requestID := uuid.NewString()
	phase := phaseOf(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.opts.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.opts.Stats.AddUsage(phase, Usage{Errors: 1})
		return "", fmt.Errorf("openai api: %w", err)
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

	if err := statusError("openai", resp.StatusCode, respBody); err != nil {
		c.opts.Stats.AddUsage(phase, Usage{Errors: 1})
		return "", err
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("openai error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	c.opts.Stats.AddUsage(phase, Usage{
		Calls:           1,
		InputTokens:     apiResp.Usage.PromptTokens,
		OutputTokens:    apiResp.Usage.CompletionTokens,
		CacheReadTokens: apiResp.Usage.PromptTokensDetails.CachedTokens,
	})
	if len(apiResp.Choices) == 0 {
		return "", nil
	}
	return apiResp.Choices[0].Message.Content, nil
}

// Close releases resources.
func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}
