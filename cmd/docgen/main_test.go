package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docgen/internal/config"
	"github.com/dgallion1/docgen/internal/outline"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(context.Background(), append([]string{"docgen"}, args...))
	return buf.String(), err
}

func TestOutlineCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.md")
	os.WriteFile(path, []byte("# Guide\n\n## Setup\n### Install\n## Usage\n"), 0o644)

	out, err := runApp(t, "outline", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"# Guide", "1 Setup", "  1.1 Install", "2 Usage", "3 sections, depth 2, strategy headings"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestOutlineCommandNoStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(path, []byte("just a sentence\n"), 0o644)
	if _, err := runApp(t, "outline", path); err == nil {
		t.Fatal("expected error for unstructured outline")
	}
}

func TestOutlineCommandUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outline.rtf")
	os.WriteFile(path, []byte("## A\n"), 0o644)
	_, err := runApp(t, "outline", path)
	if !errors.Is(err, outline.ErrUnsupportedExtension) {
		t.Fatalf("expected unsupported extension error, got %v", err)
	}
}

func TestGenerateRejectsUnsupportedOutline(t *testing.T) {
	t.Setenv("DOCGEN_PROVIDER", "anthropic")
	out := t.TempDir()
	path := filepath.Join(t.TempDir(), "plan.odt")
	os.WriteFile(path, []byte("## A\n"), 0o644)
	_, err := runApp(t, "generate", "--dry-run", "--outline", path, "-o", out)
	if !errors.Is(err, outline.ErrUnsupportedExtension) {
		t.Fatalf("expected unsupported extension error, got %v", err)
	}
	if entries, _ := os.ReadDir(out); len(entries) != 0 {
		t.Errorf("expected no run directory, got %d entries", len(entries))
	}
}

func TestNormalizeCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	out := filepath.Join(dir, "out.md")
	os.WriteFile(in, []byte("# T\nText with [a link](http://x.example).\n```\ncode\n```\nafter"), 0o644)

	if _, err := runApp(t, "normalize", "--strip-links", "-o", out, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if strings.Contains(got, "](http") {
		t.Errorf("expected links stripped, got:\n%s", got)
	}
	if !strings.Contains(got, "```\n\nafter") {
		t.Errorf("expected blank line after fence, got:\n%s", got)
	}
}

func TestGenerateRequiresTitle(t *testing.T) {
	t.Setenv("DOCGEN_DRY_RUN", "true")
	t.Setenv("DOCGEN_TITLE", "")
	t.Setenv("DOCGEN_OUTLINE", "")
	t.Setenv("DOCGEN_DEMO", "")
	_, err := runApp(t, "generate")
	if err == nil || !strings.Contains(err.Error(), "--title") {
		t.Fatalf("expected title error, got %v", err)
	}
}

func TestGenerateDemoDryRun(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("DOCGEN_PROVIDER", "anthropic")
	out := t.TempDir()
	if _, err := runApp(t, "generate", "--demo", "--dry-run", "--title", "Field Guide", "-o", out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(out)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one run directory, got %v (%v)", entries, err)
	}
	name := entries[0].Name()
	if !strings.HasSuffix(name, "-field-guide") {
		t.Errorf("expected slugged run dir, got %q", name)
	}
	manuscript, err := os.ReadFile(filepath.Join(out, name, "manuscript.md"))
	if err != nil {
		t.Fatalf("expected preview manuscript: %v", err)
	}
	if !strings.Contains(string(manuscript), "1.2 Getting Started") {
		t.Errorf("expected demo outline in manuscript, got:\n%s", manuscript)
	}
	if _, err := os.Stat(filepath.Join(out, name, "run.log")); err != nil {
		t.Errorf("expected run.log: %v", err)
	}
}

func TestNormalizeOptionsFromBeautify(t *testing.T) {
	opts := normalizeOptions(config.Config{Beautify: true})
	if !opts.InlineHash || !opts.ColonSpacing || !opts.BeautifyLists || opts.Reflow || opts.StripLinks {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestRunLabel(t *testing.T) {
	if got := runLabel(config.Config{OutlinePath: "/x/plan.v2.md"}); got != "plan.v2" {
		t.Errorf("expected %q, got %q", "plan.v2", got)
	}
	if got := runLabel(config.Config{}); got != "demo" {
		t.Errorf("expected demo, got %q", got)
	}
}
