package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOCGEN_PROVIDER", "")
	t.Setenv("DOCGEN_DETAIL_WORDS", "")
	cfg := Load()
	if cfg.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %q", cfg.Provider)
	}
	if cfg.DetailWords != 800 || cfg.MaxTokens != 4096 {
		t.Errorf("expected default budgets, got %d words / %d tokens", cfg.DetailWords, cfg.MaxTokens)
	}
	if !cfg.Diagrams || !cfg.DOCX || !cfg.Beautify {
		t.Error("expected diagrams, docx and beautify on by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DOCGEN_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DOCGEN_DETAIL_WORDS", "1500")
	t.Setenv("DOCGEN_TIMEOUT", "45s")
	t.Setenv("DOCGEN_TEMPERATURE", "0.3")
	t.Setenv("DOCGEN_DIAGRAMS", "false")
	cfg := Load()

	if cfg.Provider != "openai" || cfg.APIKey() != "sk-test" {
		t.Errorf("expected openai with its key, got %q / %q", cfg.Provider, cfg.APIKey())
	}
	if cfg.DetailWords != 1500 {
		t.Errorf("expected 1500 detail words, got %d", cfg.DetailWords)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", cfg.Timeout)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", cfg.Temperature)
	}
	if cfg.Diagrams {
		t.Error("expected diagrams disabled")
	}
}

func TestZeroDetailWordsMeansUnbounded(t *testing.T) {
	t.Setenv("DOCGEN_DETAIL_WORDS", "0")
	if cfg := Load(); cfg.DetailWords != 0 {
		t.Errorf("expected 0 detail words, got %d", cfg.DetailWords)
	}
	t.Setenv("DOCGEN_DETAIL_WORDS", "-10")
	if cfg := Load(); cfg.DetailWords != 0 {
		t.Errorf("expected negative detail words to clamp to 0, got %d", cfg.DetailWords)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("DOCGEN_MAX_TOKENS", "lots")
	t.Setenv("DOCGEN_SUMMARY_WORDS", "-5")
	cfg := Load()
	if cfg.MaxTokens != 4096 {
		t.Errorf("expected fallback 4096, got %d", cfg.MaxTokens)
	}
	if cfg.SummaryWords != 60 {
		t.Errorf("expected default 60 for negative value, got %d", cfg.SummaryWords)
	}
}

func TestLoadFileOverlaysEnv(t *testing.T) {
	t.Setenv("DOCGEN_TITLE", "From env")
	t.Setenv("DOCGEN_AUDIENCE", "Env audience")
	cfg := Load()

	path := filepath.Join(t.TempDir(), "docgen.yaml")
	yml := "title: From file\nprovider: openai\ndetail-words: 300\ntimeout: 10s\nstrip-links: true\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Title != "From file" {
		t.Errorf("expected file to win, got %q", cfg.Title)
	}
	if cfg.Audience != "Env audience" {
		t.Errorf("expected env value kept for absent key, got %q", cfg.Audience)
	}
	if cfg.Provider != "openai" || cfg.DetailWords != 300 || cfg.Timeout != 10*time.Second || !cfg.StripLinks {
		t.Errorf("unexpected overlay result: %+v", cfg)
	}
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Load()
	if err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("title: [unclosed"), 0o644)
	if err := LoadFile(path, &cfg); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Provider: "anthropic", AnthropicAPIKey: "k", LogLevel: "info"}
	}
	hot := 3.0

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown provider", func(c *Config) { c.Provider = "bard" }, "unknown provider"},
		{"missing key", func(c *Config) { c.AnthropicAPIKey = "" }, "ANTHROPIC_API_KEY"},
		{"missing key in dry run", func(c *Config) { c.AnthropicAPIKey = ""; c.DryRun = true }, ""},
		{"openai key", func(c *Config) { c.Provider = "openai" }, "OPENAI_API_KEY"},
		{"temperature", func(c *Config) { c.Temperature = &hot }, "temperature"},
		{"pathstore key", func(c *Config) { c.PathstoreURL = "http://ps" }, "PATHSTORE_API_KEY"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	if got := (Config{LogLevel: "DEBUG"}).SlogLevel(); got != slog.LevelDebug {
		t.Errorf("expected debug, got %v", got)
	}
	if got := (Config{LogLevel: "nope"}).SlogLevel(); got != slog.LevelInfo {
		t.Errorf("expected info fallback, got %v", got)
	}
}
