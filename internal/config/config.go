package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Content provider
	Provider        string        `yaml:"provider"`
	AnthropicAPIKey string        `yaml:"anthropic-api-key"`
	OpenAIAPIKey    string        `yaml:"openai-api-key"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"base-url"`
	MaxTokens       int           `yaml:"max-tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	Temperature     *float64      `yaml:"temperature"`
	CacheContext    bool          `yaml:"cache-context"`

	// Document brief
	Title       string `yaml:"title"`
	Audience    string `yaml:"audience"`
	Topic       string `yaml:"topic"`
	OutlinePath string `yaml:"outline"`

	// Generation
	DryRun        bool `yaml:"dry-run"`
	DemoMode      bool `yaml:"demo"`
	DetailWords   int  `yaml:"detail-words"`
	OverviewWords int  `yaml:"overview-words"`
	SummaryWords  int  `yaml:"summary-words"`
	Diagrams      bool `yaml:"diagrams"`

	// Normalization and output
	Beautify       bool   `yaml:"beautify"`
	Reflow         bool   `yaml:"reflow"`
	StripLinks     bool   `yaml:"strip-links"`
	TrustNumbering bool   `yaml:"trust-numbering"`
	DOCX           bool   `yaml:"docx"`
	OutputDir      string `yaml:"output-dir"`

	// Remote artifact store
	PathstoreURL    string `yaml:"pathstore-url"`
	PathstoreAPIKey string `yaml:"pathstore-api-key"`
	PathstorePrefix string `yaml:"pathstore-prefix"`

	// Preview server
	PreviewAddr  string `yaml:"preview-addr"`
	PreviewToken string `yaml:"preview-token"`

	// Provider latency stats window
	StatsWindow time.Duration `yaml:"stats-window"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf-fallback-pdftotext"`

	LogLevel string `yaml:"log-level"`
}

func Load() Config {
	cfg := Config{
		Provider:        envOr("DOCGEN_PROVIDER", "anthropic"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		Model:           os.Getenv("DOCGEN_MODEL"),
		BaseURL:         os.Getenv("DOCGEN_BASE_URL"),
		MaxTokens:       envInt("DOCGEN_MAX_TOKENS", 4096),
		Timeout:         envDuration("DOCGEN_TIMEOUT", 2*time.Minute),
		Temperature:     envFloat("DOCGEN_TEMPERATURE"),
		CacheContext:    envBool("DOCGEN_CACHE_CONTEXT", true),

		Title:       os.Getenv("DOCGEN_TITLE"),
		Audience:    os.Getenv("DOCGEN_AUDIENCE"),
		Topic:       os.Getenv("DOCGEN_TOPIC"),
		OutlinePath: os.Getenv("DOCGEN_OUTLINE"),

		DryRun:        envBool("DOCGEN_DRY_RUN", false),
		DemoMode:      envBool("DOCGEN_DEMO", false),
		DetailWords:   envInt("DOCGEN_DETAIL_WORDS", 800),
		OverviewWords: envInt("DOCGEN_OVERVIEW_WORDS", 200),
		SummaryWords:  envInt("DOCGEN_SUMMARY_WORDS", 60),
		Diagrams:      envBool("DOCGEN_DIAGRAMS", true),

		Beautify:       envBool("DOCGEN_BEAUTIFY", true),
		Reflow:         envBool("DOCGEN_REFLOW", true),
		StripLinks:     envBool("DOCGEN_STRIP_LINKS", false),
		TrustNumbering: envBool("DOCGEN_TRUST_NUMBERING", true),
		DOCX:           envBool("DOCGEN_DOCX", true),
		OutputDir:      envOr("DOCGEN_OUTPUT_DIR", "output"),

		PathstoreURL:    os.Getenv("PATHSTORE_URL"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),
		PathstorePrefix: envOr("PATHSTORE_PREFIX", "docgen"),

		PreviewAddr:  envOr("DOCGEN_PREVIEW_ADDR", "127.0.0.1:8090"),
		PreviewToken: os.Getenv("DOCGEN_PREVIEW_TOKEN"),

		StatsWindow: envDuration("DOCGEN_STATS_WINDOW", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}
	cfg.applyDefaults()
	return cfg
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	// Zero detail words means no explicit length target.
	if c.DetailWords < 0 {
		c.DetailWords = 0
	}
	if c.OverviewWords <= 0 {
		c.OverviewWords = 200
	}
	if c.SummaryWords <= 0 {
		c.SummaryWords = 60
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = 1 * time.Hour
	}
}

// APIKey returns the key for the configured provider.
func (c Config) APIKey() string {
	if c.Provider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unknown provider %q (want anthropic or openai)", c.Provider)
	}
	if c.APIKey() == "" && !c.DryRun {
		if c.Provider == "openai" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", *c.Temperature)
	}
	if c.DetailWords > 20000 {
		return fmt.Errorf("detail words %d exceeds 20000", c.DetailWords)
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string) *float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
