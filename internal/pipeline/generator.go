// Package pipeline drives a generation run: it establishes the outline,
// plans summaries and writes every section in document order.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docgen/internal/doctree"
	"github.com/dgallion1/docgen/internal/outline"
	"github.com/dgallion1/docgen/internal/prompt"
	"github.com/dgallion1/docgen/internal/provider"
)

// Renderer persists the manuscript. Implementations log their own failures.
type Renderer interface {
	Save(ctx context.Context, b *doctree.Book, final bool)
	SaveDiagrams(ctx context.Context, text string)
}

// Narrator reports progress to the user.
type Narrator interface {
	Step(msg string)
	Info(msg string)
	Warn(msg string)
}

// Options configure a Generator.
type Options struct {
	OutlinePath string
	PDFFallback bool
	DemoMode    bool
	DryRun      bool
	Diagrams    bool

	DetailWords   int // 0 means no explicit length target
	OverviewWords int
	SummaryWords  int
	IntroWords    int
	MaxTokens     int

	Model       string
	Temperature *float64
}

func (o *Options) defaults() {
	if o.DetailWords < 0 {
		o.DetailWords = 0
	}
	if o.OverviewWords <= 0 {
		o.OverviewWords = 200
	}
	if o.SummaryWords <= 0 {
		o.SummaryWords = 60
	}
	if o.IntroWords <= 0 {
		o.IntroWords = 150
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 4096
	}
}

// Generator runs the generation phases against one provider. Calls are made
// one at a time in document order.
type Generator struct {
	provider provider.Provider
	renderer Renderer
	console  Narrator
	run      *Run
	log      *slog.Logger
	opts     Options

	bookCtx string
}

// NewGenerator builds a Generator. p may be nil when the outline comes from a
// file or the demo tree and the run is a dry run.
func NewGenerator(p provider.Provider, r Renderer, console Narrator, run *Run, opts Options, logger *slog.Logger) *Generator {
	opts.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if run == nil {
		run = NewRun("", "", "")
	}
	return &Generator{
		provider: p,
		renderer: r,
		console:  console,
		run:      run,
		log:      logger.With("run_id", run.ID),
		opts:     opts,
	}
}

// Status returns the run tracker.
func (g *Generator) Status() *Run { return g.run }

// Run executes every phase. Only outline, content and cancellation
// failures are returned; the other passes degrade to warnings.
func (g *Generator) Run(ctx context.Context, b *doctree.Book) error {
	if err := g.generate(ctx, b); err != nil {
		g.run.Fail(err)
		g.log.Error("run failed", "error", err)
		return err
	}
	return nil
}

func (g *Generator) generate(ctx context.Context, b *doctree.Book) error {
	g.run.SetStatus(StatusOutline, "outline")
	g.console.Step("Establishing the outline")
	if err := g.establishOutline(ctx, b); err != nil {
		return err
	}
	doctree.Renumber(b.TOC)
	g.run.SetTitle(b.Title)
	g.run.SetTotal(doctree.Count(b.TOC))
	g.bookCtx = prompt.BookContext(b)
	g.log.Info("outline ready", "nodes", doctree.Count(b.TOC), "depth", doctree.MaxDepth(b.TOC))

	g.run.SetStatus(StatusPlanning, "introduction")
	g.introduction(ctx, b)
	g.run.SetStatus(StatusPlanning, "summaries")
	g.summaries(ctx, b)
	g.run.SetStatus(StatusPlanning, "manual overview")
	g.manualOverview(ctx, b)
	g.renderer.Save(ctx, b, false)

	if g.opts.DryRun {
		g.console.Info("Dry run: stopping before content generation")
		g.run.SetStatus(StatusDryRun, "done")
		return nil
	}

	g.run.SetStatus(StatusContent, "content")
	if err := g.generateNodes(ctx, b, b.TOC, nil); err != nil {
		return err
	}
	g.renderer.Save(ctx, b, true)

	if g.opts.Diagrams {
		g.diagrams(ctx, b)
	}
	g.run.SetStatus(StatusCompleted, "done")
	g.log.Info("run completed")
	return nil
}

// establishOutline fills b.TOC from the outline file, the demo tree or a
// provider proposal, in that order.
func (g *Generator) establishOutline(ctx context.Context, b *doctree.Book) error {
	if len(b.TOC) > 0 {
		return nil
	}
	if g.opts.OutlinePath != "" {
		raw, err := outline.LoadFile(g.opts.OutlinePath, g.opts.PDFFallback)
		if err != nil {
			return fmt.Errorf("load outline: %w", err)
		}
		o, err := outline.Ingest(raw)
		switch {
		case err == nil:
			applyOutline(b, o)
			g.log.Info("outline ingested", "strategy", o.Strategy, "path", g.opts.OutlinePath)
			return nil
		case errors.Is(err, outline.ErrNoStructure):
			g.warn("outline file has no recognizable structure", err)
		default:
			return fmt.Errorf("ingest outline: %w", err)
		}
	}

	if g.opts.DemoMode {
		g.console.Info("Using the demo outline")
		b.TOC = outline.DemoTOC()
		return nil
	}
	if g.provider == nil {
		return ErrNoOutline
	}

	g.console.Step("Asking for an outline proposal")
	raw, err := g.ask(ctx, provider.PhaseOutline, prompt.Index(b), 0, nil)
	if err != nil {
		return fmt.Errorf("propose outline: %w", err)
	}
	nodes, err := outline.ParseProposal(raw)
	if err != nil {
		g.warn("outline proposal unusable, using the demo outline", err)
		b.TOC = outline.DemoTOC()
		return nil
	}
	b.TOC = nodes
	return nil
}

func applyOutline(b *doctree.Book, o *outline.Outline) {
	b.TOC = o.Nodes
	if strings.TrimSpace(b.Title) == "" {
		b.Title = o.Title
	}
	summary := strings.TrimSpace(o.Summary)
	if summary == "" {
		return
	}
	if strings.TrimSpace(b.Topic) == "" {
		b.Topic, _, _ = strings.Cut(summary, "\n")
	}
	if strings.TrimSpace(b.ManualSummary) == "" {
		b.ManualSummary = summary
	}
}

func (g *Generator) introduction(ctx context.Context, b *doctree.Book) {
	if strings.TrimSpace(b.Introduction) != "" {
		return
	}
	g.console.Step("Writing the introduction")
	text, err := g.ask(ctx, provider.PhaseIntroduction, prompt.Introduction(b), g.opts.IntroWords, nil)
	if err != nil {
		g.warn("introduction failed", err)
		return
	}
	b.Introduction = strings.TrimSpace(text)
}

// summaries asks for the summaries of each top-level chapter and its
// descendants in one call. Only blank summaries are filled.
func (g *Generator) summaries(ctx context.Context, b *doctree.Book) {
	previous := prompt.None
	for _, ch := range b.TOC {
		if err := ctx.Err(); err != nil {
			return
		}
		g.console.Step("Summarizing " + ch.Label())
		nodes := doctree.Count([]*doctree.Node{ch})
		raw, err := g.ask(ctx, provider.PhaseSummaries, prompt.Summaries(b, ch, previous, g.opts.SummaryWords),
			g.opts.SummaryWords*nodes, prompt.SummariesSchema)
		if err != nil {
			g.warn("summaries failed for "+ch.Label(), err)
		} else if filled, err := applySummaries(ch, raw); err != nil {
			g.warn("summaries unreadable for "+ch.Label(), err)
		} else {
			g.log.Debug("summaries applied", "chapter", ch.Number, "filled", filled)
		}
		if s := strings.TrimSpace(ch.Summary); s != "" {
			previous = s
		}
	}
}

// applySummaries fills blank summaries of chapter and its descendants from a
// JSON object keyed by section number. Non-string values are ignored.
func applySummaries(chapter *doctree.Node, raw string) (int, error) {
	var byNumber map[string]any
	if err := provider.DecodeObject(raw, &byNumber); err != nil {
		return 0, err
	}
	filled := 0
	doctree.Walk([]*doctree.Node{chapter}, func(n, _ *doctree.Node) bool {
		if strings.TrimSpace(n.Summary) != "" {
			return true
		}
		if s, ok := byNumber[n.Number].(string); ok && strings.TrimSpace(s) != "" {
			n.Summary = strings.TrimSpace(s)
			filled++
		}
		return true
	})
	return filled, nil
}

func (g *Generator) manualOverview(ctx context.Context, b *doctree.Book) {
	if strings.TrimSpace(b.ManualSummary) != "" {
		return
	}
	g.console.Step("Writing the document overview")
	text, err := g.ask(ctx, provider.PhaseManual, prompt.ManualOverview(b, g.opts.OverviewWords), g.opts.OverviewWords, nil)
	if err != nil {
		g.warn("document overview failed", err)
		return
	}
	b.ManualSummary = strings.TrimSpace(text)
}

// generateNodes writes nodes in pre-order. parent is nil for top-level nodes.
func (g *Generator) generateNodes(ctx context.Context, b *doctree.Book, nodes []*doctree.Node, parent *doctree.Node) error {
	for i, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		contextSummary := g.contextFor(b, nodes, i, parent)
		log := g.log.With("node", n.Number)

		if n.IsLeaf() {
			g.console.Step("Writing " + n.Label())
			if err := g.detail(ctx, b, n, contextSummary); err != nil {
				return err
			}
		} else {
			g.console.Step("Overview of " + n.Label())
			if err := g.overview(ctx, b, n, contextSummary, log); err != nil {
				return err
			}
		}
		g.run.IncrNodesDone()
		g.renderer.Save(ctx, b, false)
		log.Debug("node generated", "chars", len(n.Content))

		if !n.IsLeaf() {
			if err := g.generateNodes(ctx, b, n.Children, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// contextFor is the surrounding summary handed to a node: the parent's
// summary, else its top-level chapter's. Top-level nodes get the previous
// chapter's summary.
func (g *Generator) contextFor(b *doctree.Book, siblings []*doctree.Node, i int, parent *doctree.Node) string {
	if parent == nil {
		if i > 0 {
			if s := strings.TrimSpace(siblings[i-1].Summary); s != "" {
				return s
			}
		}
		return prompt.None
	}
	if s := strings.TrimSpace(parent.Summary); s != "" {
		return s
	}
	if top := doctree.TopLevel(b.TOC, parent.Number); top != nil {
		if s := strings.TrimSpace(top.Summary); s != "" {
			return s
		}
	}
	return prompt.None
}

func (g *Generator) overview(ctx context.Context, b *doctree.Book, n *doctree.Node, contextSummary string, log *slog.Logger) error {
	p := prompt.Overview(b, n, contextSummary, g.opts.OverviewWords)
	text, err := g.ask(ctx, provider.PhaseOverview, p, g.opts.OverviewWords, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn("overview failed, retrying", "error", err)
		text = ""
	}

	if IsOverviewWeak(text, n) {
		g.run.IncrOverviewRetries()
		log.Info("weak overview, retrying once")
		g.console.Info("Overview of " + n.Label() + " is weak, retrying once")
		text, err = g.ask(ctx, provider.PhaseOverview, p+prompt.WeakOverviewAmendment, g.opts.OverviewWords, nil)
		if err != nil {
			return &ContentError{Number: n.Number, Title: n.Title, Err: err}
		}
	}

	n.Content = text
	if strings.TrimSpace(n.Summary) == "" {
		n.Summary = strings.TrimSpace(text)
	}
	return nil
}

func (g *Generator) detail(ctx context.Context, b *doctree.Book, n *doctree.Node, parentSummary string) error {
	text, err := g.ask(ctx, provider.PhaseDetail, prompt.Detail(b, n, parentSummary, g.opts.DetailWords), g.opts.DetailWords, nil)
	if err != nil {
		return &ContentError{Number: n.Number, Title: n.Title, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return &ContentError{Number: n.Number, Title: n.Title, Err: ErrEmptyContent}
	}
	n.Content = text
	return nil
}

func (g *Generator) ask(ctx context.Context, phase, user string, words int, schema json.RawMessage) (string, error) {
	if g.provider == nil {
		return "", ErrNoProvider
	}
	return g.provider.Ask(ctx, provider.Request{
		System:      prompt.SystemPrompt,
		Context:     g.bookCtx,
		User:        user,
		Model:       g.opts.Model,
		MaxTokens:   prompt.TokenBudget(words, g.opts.MaxTokens),
		Schema:      schema,
		Temperature: g.opts.Temperature,
		Phase:       phase,
	})
}

func (g *Generator) warn(msg string, err error) {
	g.log.Warn(msg, "error", err)
	g.run.AddWarning(fmt.Sprintf("%s: %v", msg, err))
	g.console.Warn(msg)
}
