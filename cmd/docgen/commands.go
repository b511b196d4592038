package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/dgallion1/docgen/internal/api"
	"github.com/dgallion1/docgen/internal/doctree"
	"github.com/dgallion1/docgen/internal/mdnorm"
	"github.com/dgallion1/docgen/internal/outline"
	"github.com/dgallion1/docgen/internal/store"
)

func outlineCmd() *cli.Command {
	return &cli.Command{
		Name:      "outline",
		Usage:     "Ingest an outline file and print the numbered table of contents",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("outline file argument is required")
			}
			if err := outline.CheckPath(path); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			raw, err := outline.LoadFile(path, cfg.PDFFallbackPdftotext)
			if err != nil {
				return err
			}
			o, err := outline.Ingest(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			doctree.Renumber(o.Nodes)

			w := cmd.Root().Writer
			if o.Title != "" {
				fmt.Fprintf(w, "# %s\n\n", o.Title)
			}
			fmt.Fprint(w, doctree.TOCString(o.Nodes))
			fmt.Fprintf(w, "\n%d sections, depth %d, strategy %s\n", doctree.Count(o.Nodes), doctree.MaxDepth(o.Nodes), o.Strategy)
			return nil
		},
	}
}

func normalizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "normalize",
		Usage:     "Run the Markdown normalization pipeline over a file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
			&cli.BoolFlag{Name: "beautify", Usage: "Apply inline hash, colon spacing and list fixes"},
			&cli.BoolFlag{Name: "reflow", Usage: "Reflow headings and paragraphs"},
			&cli.BoolFlag{Name: "strip-links", Usage: "Replace Markdown links with their text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("markdown file argument is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			for name, dst := range map[string]*bool{"beautify": &cfg.Beautify, "reflow": &cfg.Reflow, "strip-links": &cfg.StripLinks} {
				if cmd.IsSet(name) {
					*dst = cmd.Bool(name)
				}
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out := mdnorm.Normalize(string(data), normalizeOptions(cfg))
			if dst := cmd.String("output"); dst != "" {
				return os.WriteFile(dst, []byte(out), 0o644)
			}
			_, err = fmt.Fprint(cmd.Root().Writer, out)
			return err
		},
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Preview the artifacts of a finished run directory",
		ArgsUsage: "<run dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return fmt.Errorf("run directory argument is required")
			}
			if _, err := os.Stat(dir); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("addr") {
				cfg.PreviewAddr = cmd.String("addr")
			}

			log := newLogger(os.Stderr, cfg.SlogLevel())
			fs, err := store.NewFileStore(dir, log)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.Root().Writer, "Serving %s at http://%s\n", dir, cfg.PreviewAddr)
			return serveHTTP(ctx, cfg.PreviewAddr, api.NewServer(fs, nil, nil, cfg.PreviewToken, log), log)
		},
	}
}
