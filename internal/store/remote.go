package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteStore mirrors artifacts to a pathstore-style KV HTTP API, one key
// per artifact under a run prefix.
type RemoteStore struct {
	baseURL    string
	apiKey     string
	prefix     string
	httpClient *http.Client
}

func NewRemoteStore(baseURL, apiKey, prefix string) *RemoteStore {
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		prefix:  strings.Trim(prefix, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value      any    `json:"value"`
	MemoryType string `json:"memory_type,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Source     string `json:"source,omitempty"`
}

// NodeResponse is the response from GET /kv/{key}.
type NodeResponse struct {
	Key      string `json:"key_path"`
	Value    any    `json:"value"`
	Encoding string `json:"encoding,omitempty"`
}

func (c *RemoteStore) key(a Artifact) string {
	return c.prefix + "/" + strings.ReplaceAll(string(a), ".", "_")
}

// Put stores an artifact. Binary artifacts are sent base64 encoded.
func (c *RemoteStore) Put(ctx context.Context, a Artifact, data []byte) error {
	req := NodeRequest{Value: string(data), MemoryType: "artifact", Source: "docgen"}
	if !a.Markdown() {
		req.Value = base64.StdEncoding.EncodeToString(data)
		req.Encoding = "base64"
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	key := c.key(a)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/kv/"+key, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("put node %s: status %d: %s", key, resp.StatusCode, string(respBody))
	}
	return nil
}

// Get retrieves an artifact by name.
func (c *RemoteStore) Get(ctx context.Context, a Artifact) ([]byte, error) {
	key := c.key(a)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/kv/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("get node %s: status %d: %s", key, resp.StatusCode, string(respBody))
	}

	var node NodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	s, ok := node.Value.(string)
	if !ok {
		return nil, fmt.Errorf("node %s: value is %T, not a string", key, node.Value)
	}
	if node.Encoding == "base64" {
		return base64.StdEncoding.DecodeString(s)
	}
	return []byte(s), nil
}

// Close releases idle connections.
func (c *RemoteStore) Close() {
	c.httpClient.CloseIdleConnections()
}
