package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docgen/internal/pipeline"
	"github.com/dgallion1/docgen/internal/provider"
	"github.com/dgallion1/docgen/internal/store"
)

type fakeLLM struct{ stats *provider.Stats }

func (f fakeLLM) Model() string          { return "test-model" }
func (f fakeLLM) Stats() *provider.Stats { return f.stats }

func newTestServer(t *testing.T, token string) (*httptest.Server, *store.FileStore, *pipeline.Run) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	run := pipeline.NewRun("", "Book", fs.Dir())
	stats := provider.NewStats(time.Hour)
	stats.Record(provider.PhaseDetail, 120*time.Millisecond)
	stats.AddUsage(provider.PhaseDetail, provider.Usage{Calls: 1, InputTokens: 10, OutputTokens: 20})

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(fs, run, fakeLLM{stats: stats}, token, log))
	t.Cleanup(srv.Close)
	return srv, fs, run
}

func get(t *testing.T, url, token string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, "secret")
	resp, body := get(t, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Fatalf("expected 200 ok, got %d %s", resp.StatusCode, body)
	}
}

func TestRunSnapshot(t *testing.T) {
	srv, _, run := newTestServer(t, "")
	run.SetStatus(pipeline.StatusContent, "content")
	run.SetTotal(5)
	run.IncrNodesDone()

	resp, body := get(t, srv.URL+"/api/run", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var snap pipeline.RunSnapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Status != pipeline.StatusContent || snap.Progress.NodesDone != 1 || snap.Progress.NodesTotal != 5 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestLLMStats(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	_, body := get(t, srv.URL+"/api/stats/llm", "")
	var got struct {
		Model string                 `json:"model"`
		Stats provider.StatsSnapshot `json:"stats"`
		Usage provider.Usage         `json:"usage"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Model != "test-model" || got.Usage.OutputTokens != 20 {
		t.Errorf("unexpected stats: %+v", got)
	}
	detail := got.Stats.Phases[provider.PhaseDetail]
	if got.Stats.Count != 1 || detail.MaxMs != 120 || detail.Usage.InputTokens != 10 {
		t.Errorf("expected detail phase breakdown, got %+v", got.Stats)
	}
}

func TestStatsUnavailable(t *testing.T) {
	fs, _ := store.NewFileStore(t.TempDir(), nil)
	srv := httptest.NewServer(NewServer(fs, nil, nil, "", nil))
	defer srv.Close()

	if resp, _ := get(t, srv.URL+"/api/stats/llm", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	if resp, _ := get(t, srv.URL+"/api/run", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPreviewAndRaw(t *testing.T) {
	srv, fs, _ := newTestServer(t, "")
	md := "# Book\n\n## 1 Intro\n\nSome **text**.\n"
	if err := fs.Put(context.Background(), store.Manuscript, []byte(md)); err != nil {
		t.Fatal(err)
	}

	resp, body := get(t, srv.URL+"/preview/manuscript.md", "")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("expected html preview, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(body, "<strong>text</strong>") {
		t.Errorf("expected rendered markdown, got:\n%s", body)
	}

	resp, body = get(t, srv.URL+"/raw/manuscript.md", "")
	if resp.StatusCode != http.StatusOK || body != md {
		t.Errorf("expected raw markdown, got %d %q", resp.StatusCode, body)
	}
}

func TestArtifactErrors(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	if resp, _ := get(t, srv.URL+"/raw/secrets.txt", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown artifact, got %d", resp.StatusCode)
	}
	resp, body := get(t, srv.URL+"/preview/diagram_suggestions.md", "")
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(body, "not been written") {
		t.Errorf("expected 404 for missing artifact, got %d %s", resp.StatusCode, body)
	}
	if resp, _ := get(t, srv.URL+"/preview/manuscript.docx", ""); resp.StatusCode != http.StatusFound {
		t.Errorf("expected docx preview to redirect, got %d", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	srv, _, _ := newTestServer(t, "secret")
	if resp, _ := get(t, srv.URL+"/api/run", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp, _ := get(t, srv.URL+"/api/run", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", resp.StatusCode)
	}
	if resp, _ := get(t, srv.URL+"/api/run", "secret"); resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestPreviewQueryTokenSetsCookie(t *testing.T) {
	srv, fs, _ := newTestServer(t, "secret")
	if err := fs.Put(context.Background(), store.Manuscript, []byte("# Book\n")); err != nil {
		t.Fatal(err)
	}

	if resp, _ := get(t, srv.URL+"/preview/manuscript.md?token=wrong", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong query token, got %d", resp.StatusCode)
	}

	resp, _ := get(t, srv.URL+"/preview/manuscript.md?token=secret", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", resp.StatusCode)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == previewCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("expected http-only preview cookie, got %v", resp.Cookies())
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/raw/manuscript.md", nil)
	req.AddCookie(cookie)
	cresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	cresp.Body.Close()
	if cresp.StatusCode != http.StatusOK {
		t.Errorf("expected cookie to authorize follow-up request, got %d", cresp.StatusCode)
	}
}

func TestPreviewResponsesAreNotCached(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	resp, _ := get(t, srv.URL+"/api/run", "")
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("expected no-store, got %q", got)
	}
}
