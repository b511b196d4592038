package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/dgallion1/docgen/internal/config"
	"github.com/dgallion1/docgen/internal/mdnorm"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "docgen",
		Usage: "Generate long structured Markdown documents from a brief and an outline",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file overlaid on the environment"},
		},
		Commands: []*cli.Command{
			generateCmd(),
			outlineCmd(),
			normalizeCmd(),
			serveCmd(),
		},
	}
}

// loadConfig reads the environment and overlays --config when given.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Load()
	if path := cmd.String("config"); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func normalizeOptions(cfg config.Config) mdnorm.Options {
	return mdnorm.Options{
		Reflow:        cfg.Reflow,
		InlineHash:    cfg.Beautify,
		ColonSpacing:  cfg.Beautify,
		BeautifyLists: cfg.Beautify,
		StripLinks:    cfg.StripLinks,
	}
}

// serveHTTP runs handler on addr until ctx is done, then shuts down.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting preview server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
