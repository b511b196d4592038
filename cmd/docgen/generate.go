package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/dgallion1/docgen/internal/api"
	"github.com/dgallion1/docgen/internal/config"
	"github.com/dgallion1/docgen/internal/doctree"
	"github.com/dgallion1/docgen/internal/outline"
	"github.com/dgallion1/docgen/internal/pipeline"
	"github.com/dgallion1/docgen/internal/provider"
	"github.com/dgallion1/docgen/internal/render"
	"github.com/dgallion1/docgen/internal/store"
	"github.com/dgallion1/docgen/internal/ux"
)

func generateCmd() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate a manuscript",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Document title"},
			&cli.StringFlag{Name: "audience", Usage: "Target audience"},
			&cli.StringFlag{Name: "topic", Usage: "Topic or scope"},
			&cli.StringFlag{Name: "outline", Usage: "Outline file (.md, .txt, .html, .docx, .pdf, .csv)"},
			&cli.StringFlag{Name: "provider", Usage: "Content provider: anthropic or openai"},
			&cli.StringFlag{Name: "model", Usage: "Model override"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Directory that receives run directories"},
			&cli.IntFlag{Name: "detail-words", Usage: "Target words per leaf section"},
			&cli.IntFlag{Name: "max-tokens", Usage: "Max output tokens per request"},
			&cli.FloatFlag{Name: "temperature", Usage: "Sampling temperature"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Plan the document without generating content"},
			&cli.BoolFlag{Name: "demo", Usage: "Use the built-in demo outline when none is given"},
			&cli.BoolFlag{Name: "diagrams", Usage: "Run the diagram pass"},
			&cli.BoolFlag{Name: "docx", Usage: "Export manuscript.docx"},
			&cli.BoolFlag{Name: "beautify", Usage: "Apply inline hash, colon spacing and list fixes"},
			&cli.BoolFlag{Name: "reflow", Usage: "Reflow headings and paragraphs"},
			&cli.BoolFlag{Name: "strip-links", Usage: "Replace Markdown links with their text"},
			&cli.BoolFlag{Name: "trust-numbering", Usage: "Trust outline numbering when re-leveling headings"},
			&cli.BoolFlag{Name: "serve", Usage: "Serve a live preview while generating"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Mirror the JSON log to stderr"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyGenerateFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Title == "" && cfg.OutlinePath == "" && !cfg.DemoMode {
				return fmt.Errorf("--title is required unless an outline or --demo is given")
			}
			if cfg.OutlinePath != "" {
				if err := outline.CheckPath(cfg.OutlinePath); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return generate(ctx, cfg, cmd.Bool("serve"), cmd.Bool("verbose"), cmd.Root().Writer)
		},
	}
}

func applyGenerateFlags(cmd *cli.Command, cfg *config.Config) {
	strs := map[string]*string{
		"title":    &cfg.Title,
		"audience": &cfg.Audience,
		"topic":    &cfg.Topic,
		"outline":  &cfg.OutlinePath,
		"provider": &cfg.Provider,
		"model":    &cfg.Model,
		"output":   &cfg.OutputDir,
	}
	for name, dst := range strs {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	bools := map[string]*bool{
		"dry-run":         &cfg.DryRun,
		"demo":            &cfg.DemoMode,
		"diagrams":        &cfg.Diagrams,
		"docx":            &cfg.DOCX,
		"beautify":        &cfg.Beautify,
		"reflow":          &cfg.Reflow,
		"strip-links":     &cfg.StripLinks,
		"trust-numbering": &cfg.TrustNumbering,
	}
	for name, dst := range bools {
		if cmd.IsSet(name) {
			*dst = cmd.Bool(name)
		}
	}
	if cmd.IsSet("detail-words") {
		cfg.DetailWords = int(cmd.Int("detail-words"))
	}
	if cmd.IsSet("max-tokens") {
		cfg.MaxTokens = int(cmd.Int("max-tokens"))
	}
	if cmd.IsSet("temperature") {
		t := cmd.Float("temperature")
		cfg.Temperature = &t
	}
	cfg.Provider = strings.ToLower(cfg.Provider)
}

// runLabel names the run directory when no title is known yet.
func runLabel(cfg config.Config) string {
	switch {
	case cfg.Title != "":
		return cfg.Title
	case cfg.OutlinePath != "":
		base := filepath.Base(cfg.OutlinePath)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return "demo"
}

func generate(ctx context.Context, cfg config.Config, serve, verbose bool, out io.Writer) error {
	run := pipeline.NewRun("", cfg.Title, "")
	dir := filepath.Join(cfg.OutputDir, pipeline.RunDirName(run.ID, runLabel(cfg)))
	run.Dir = dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	logFile, err := os.Create(filepath.Join(dir, "run.log"))
	if err != nil {
		return fmt.Errorf("create run log: %w", err)
	}
	defer logFile.Close()
	var logOut io.Writer = logFile
	if verbose {
		logOut = io.MultiWriter(logFile, os.Stderr)
	}
	log := newLogger(logOut, cfg.SlogLevel()).With("run_id", run.ID)

	fs, err := store.NewFileStore(dir, log)
	if err != nil {
		return err
	}
	stores := store.Multi{fs}
	if cfg.PathstoreURL != "" {
		remote := store.NewRemoteStore(cfg.PathstoreURL, cfg.PathstoreAPIKey, cfg.PathstorePrefix+"/"+run.ID)
		defer remote.Close()
		stores = append(stores, remote)
	}

	renderer := render.New(stores, render.Options{
		Normalize:       normalizeOptions(cfg),
		PromoteSections: !cfg.TrustNumbering,
		DOCX:            cfg.DOCX,
	}, log)

	stats := provider.NewStats(cfg.StatsWindow)
	p, llm, closeProvider := newProvider(cfg, stats, log)
	defer closeProvider()

	console := ux.New(out)
	if serve {
		srv := api.NewServer(fs, run, llm, cfg.PreviewToken, log)
		go func() {
			if err := serveHTTP(ctx, cfg.PreviewAddr, srv, log); err != nil {
				log.Error("preview server error", "error", err)
				console.Error("preview server: " + err.Error())
			}
		}()
		console.Info("Preview at http://" + cfg.PreviewAddr)
	}

	gen := pipeline.NewGenerator(p, renderer, console, run, pipeline.Options{
		OutlinePath:   cfg.OutlinePath,
		PDFFallback:   cfg.PDFFallbackPdftotext,
		DemoMode:      cfg.DemoMode,
		DryRun:        cfg.DryRun,
		Diagrams:      cfg.Diagrams,
		DetailWords:   cfg.DetailWords,
		OverviewWords: cfg.OverviewWords,
		SummaryWords:  cfg.SummaryWords,
		MaxTokens:     cfg.MaxTokens,
		Model:         cfg.Model,
		Temperature:   cfg.Temperature,
	}, log)

	book := &doctree.Book{Title: cfg.Title, Audience: cfg.Audience, Topic: cfg.Topic}
	log.Info("run started", "dir", dir, "provider", cfg.Provider, "dry_run", cfg.DryRun)
	start := time.Now()
	err = gen.Run(ctx, book)
	elapsed := time.Since(start)

	console.Usage(elapsed, stats.Usage(), stats.PhaseUsage())
	log.Info("run finished", "elapsed_ms", elapsed.Milliseconds(), "usage", stats.Usage(), "phases", stats.PhaseUsage())
	if err != nil {
		var ce *pipeline.ContentError
		if errors.As(err, &ce) {
			console.Error(fmt.Sprintf("Generation stopped at section %s %s", ce.Number, ce.Title))
		}
		console.Error(err.Error())
		return err
	}

	var written []string
	for _, a := range store.Artifacts {
		if _, err := os.Stat(fs.Path(a)); err == nil {
			written = append(written, string(a))
		}
	}
	console.Section("Done", fmt.Sprintf("Run %s wrote %s to %s", run.ID, strings.Join(written, ", "), dir))

	if serve {
		console.Info("Still serving the preview, press Ctrl-C to stop")
		<-ctx.Done()
	}
	return nil
}

// newProvider builds the configured client. Without an API key it returns a
// nil provider, which only dry runs accept.
func newProvider(cfg config.Config, stats *provider.Stats, log *slog.Logger) (provider.Provider, api.StatsSource, func()) {
	if cfg.APIKey() == "" {
		return nil, nil, func() {}
	}
	opts := provider.Options{
		APIKey:       cfg.APIKey(),
		Model:        cfg.Model,
		BaseURL:      cfg.BaseURL,
		MaxTokens:    cfg.MaxTokens,
		Timeout:      cfg.Timeout,
		CacheContext: cfg.CacheContext,
		Logger:       log,
		Stats:        stats,
	}
	if cfg.Provider == "openai" {
		c := provider.NewOpenAIClient(opts)
		return c, c, c.Close
	}
	c := provider.NewAnthropicClient(opts)
	return c, c, c.Close
}
