// Package render assembles the manuscript artifacts from a document tree.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docgen/internal/doctree"
	"github.com/dgallion1/docgen/internal/mdnorm"
	"github.com/dgallion1/docgen/internal/store"
)

// MaxHeadingLevel is the deepest level a node heading is rendered at.
const MaxHeadingLevel = 4

// NoDiagramSuggestions replaces an empty diagram suggestions document.
const NoDiagramSuggestions = "(No diagram suggestions were generated)"

// Options configure rendering.
type Options struct {
	Normalize mdnorm.Options
	// PromoteSections is set when outline numbering is not trusted.
	PromoteSections bool
	DOCX            bool
}

// Renderer writes the manuscript artifacts to a store. Persistence errors
// are logged, never returned.
type Renderer struct {
	store  store.Store
	opts   Options
	logger *slog.Logger
}

func New(s store.Store, opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{store: s, opts: opts, logger: logger}
}

// HeadingLevel is the Markdown heading level of a node at the given depth.
func HeadingLevel(depth int) int {
	return min(max(depth, 1)+1, MaxHeadingLevel)
}

// Save renders and persists the manuscript. Non-final saves write the raw
// assembly as a preview; the final save runs the global pipeline and writes
// every variant.
func (r *Renderer) Save(ctx context.Context, b *doctree.Book, final bool) {
	manuscript := r.Manuscript(b)
	if !final {
		r.put(ctx, store.Manuscript, []byte(manuscript))
		return
	}

	manuscript = mdnorm.Normalize(manuscript, r.opts.Normalize)
	r.put(ctx, store.Manuscript, []byte(manuscript))

	chapters := mdnorm.Normalize(r.Chapters(b), r.opts.Normalize)
	r.put(ctx, store.ManuscriptChapters, []byte(chapters))

	if r.opts.DOCX {
		var buf bytes.Buffer
		if err := WriteDOCX(&buf, mdnorm.StripLinks(chapters)); err != nil {
			r.logger.Error("docx export failed", "error", err)
			return
		}
		r.put(ctx, store.ManuscriptDOCX, buf.Bytes())
	}
}

// SaveDiagrams normalizes and persists the diagram suggestions document.
func (r *Renderer) SaveDiagrams(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		text = NoDiagramSuggestions
	}
	r.put(ctx, store.DiagramSuggestions, []byte(mdnorm.Normalize(text, r.opts.Normalize)))
}

func (r *Renderer) put(ctx context.Context, a store.Artifact, data []byte) {
	if err := r.store.Put(ctx, a, data); err != nil {
		r.logger.Error("save artifact failed", "artifact", a, "error", err)
	}
}

// Manuscript assembles the full document: header, introduction, table of
// contents, section summaries and content.
func (r *Renderer) Manuscript(b *doctree.Book) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", b.Title)
	if s := strings.TrimSpace(b.ManualSummary); s != "" {
		sb.WriteString(s + "\n\n")
	}
	if b.Audience != "" {
		fmt.Fprintf(&sb, "**Audience:** %s\n\n", b.Audience)
	}
	if b.Topic != "" {
		fmt.Fprintf(&sb, "**Topic:** %s\n\n", b.Topic)
	}
	r.writeIntroduction(&sb, b)

	sb.WriteString("## Table of Contents\n\n")
	doctree.Walk(b.TOC, func(n, _ *doctree.Node) bool {
		fmt.Fprintf(&sb, "%s- %s\n", strings.Repeat("  ", n.Level-1), n.Label())
		return true
	})
	sb.WriteString("\n")

	sb.WriteString("## Section Summaries\n\n")
	doctree.Walk(b.TOC, func(n, _ *doctree.Node) bool {
		fmt.Fprintf(&sb, "### %s\n\n", n.Label())
		if s := strings.TrimSpace(n.Summary); s != "" {
			sb.WriteString(s + "\n\n")
		}
		return true
	})

	sb.WriteString("---\n\n")
	r.writeContent(&sb, b)
	return sb.String()
}

// Chapters assembles the chapters-only variant: title, introduction and
// content.
func (r *Renderer) Chapters(b *doctree.Book) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", b.Title)
	r.writeIntroduction(&sb, b)
	r.writeContent(&sb, b)
	return sb.String()
}

func (r *Renderer) writeIntroduction(sb *strings.Builder, b *doctree.Book) {
	if s := strings.TrimSpace(b.Introduction); s != "" {
		sb.WriteString("## Introduction\n\n" + s + "\n\n")
	}
}

func (r *Renderer) writeContent(sb *strings.Builder, b *doctree.Book) {
	doctree.Walk(b.TOC, func(n, _ *doctree.Node) bool {
		level := HeadingLevel(n.Level)
		fmt.Fprintf(sb, "%s %s\n\n", strings.Repeat("#", level), n.Label())
		content := mdnorm.PrepareNode(n.Content, mdnorm.NodeOptions{
			Number:          n.Number,
			Title:           n.Title,
			HeadingLevel:    level,
			Leaf:            n.IsLeaf(),
			PromoteSections: r.opts.PromoteSections,
		})
		content = appendDiagramMarkers(content, n.Diagrams)
		if strings.TrimSpace(content) != "" {
			sb.WriteString(content + "\n\n")
		}
		return true
	})
}

// appendDiagramMarkers adds one marker paragraph per diagram after the
// node's content, in plan order.
func appendDiagramMarkers(content string, diagrams []doctree.Diagram) string {
	if len(diagrams) == 0 {
		return content
	}
	out := make([]string, 0, len(diagrams)+1)
	if strings.TrimSpace(content) != "" {
		out = append(out, strings.TrimRight(content, "\n"))
	}
	for _, d := range diagrams {
		out = append(out, d.Marker())
	}
	return strings.Join(out, "\n\n")
}
