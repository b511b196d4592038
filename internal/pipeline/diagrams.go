package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/docgen/internal/doctree"
	"github.com/dgallion1/docgen/internal/prompt"
	"github.com/dgallion1/docgen/internal/provider"
	"github.com/dgallion1/docgen/internal/render"
)

// MaxGlobalSources bounds the URLs taken from a section without a sources block.
const MaxGlobalSources = 5

// sourcesBudget is how many lines after a sources marker are scanned.
const sourcesBudget = 40

var (
	sourcesHeadingRe = regexp.MustCompile(`(?i)^\s*#{1,6}\s+(?:sources|references)\b`)
	sourcesLabelRe   = regexp.MustCompile(`(?i)^\s*(?:sources|references)\s*:?\s*$`)
	anyHeadingRe     = regexp.MustCompile(`^\s*#{1,6}\s+`)
	sourceURLRe      = regexp.MustCompile(`(?i)https?://[^\s\)\]]+`)
)

type diagramPlan struct {
	Diagrams []struct {
		SectionNumber string `json:"section_number"`
		Name          string `json:"name"`
		Purpose       string `json:"purpose"`
		Format        string `json:"format"`
		Placement     string `json:"placement"`
		Code          string `json:"code"`
	} `json:"diagrams"`
}

// ApplyDiagramPlan decodes a diagram plan and appends each entry to the
// diagram list of the node it names. Entries without a section or name, or
// naming an unknown section, are skipped. It returns the number applied.
func ApplyDiagramPlan(b *doctree.Book, raw string) (int, error) {
	var plan diagramPlan
	if err := provider.DecodeObject(raw, &plan); err != nil {
		return 0, err
	}
	applied := 0
	for _, d := range plan.Diagrams {
		number := strings.TrimSuffix(strings.TrimSpace(d.SectionNumber), ".")
		name := strings.TrimSpace(d.Name)
		if number == "" || name == "" {
			continue
		}
		n, _ := doctree.Find(b.TOC, number)
		if n == nil {
			continue
		}
		n.Diagrams = append(n.Diagrams, doctree.Diagram{
			Name:      name,
			Purpose:   strings.TrimSpace(d.Purpose),
			Format:    doctree.ParseFormat(d.Format),
			Placement: doctree.ParsePlacement(d.Placement),
			Code:      d.Code,
		})
		applied++
	}
	return applied, nil
}

// ExtractSources finds the URLs a section cites. A "Sources" heading or
// label starts a bounded scan that ends at the next heading; without one,
// the first few URLs anywhere in the content are used. Duplicates are
// dropped case-insensitively, keeping first-seen order.
func ExtractSources(content string) []string {
	lines := strings.Split(content, "\n")
	seen := make(map[string]bool)
	var urls []string
	add := func(line string) {
		for _, u := range sourceURLRe.FindAllString(line, -1) {
			u = strings.TrimRight(u, ".,;:")
			key := strings.ToLower(u)
			if !seen[key] {
				seen[key] = true
				urls = append(urls, u)
			}
		}
	}

	for i, line := range lines {
		if !sourcesHeadingRe.MatchString(line) && !sourcesLabelRe.MatchString(line) {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+sourcesBudget; j++ {
			if anyHeadingRe.MatchString(lines[j]) {
				break
			}
			add(lines[j])
		}
		if len(urls) > 0 {
			return urls
		}
	}

	for _, line := range lines {
		add(line)
		if len(urls) >= MaxGlobalSources {
			return urls[:MaxGlobalSources]
		}
	}
	return urls
}

// SourcesAppendix lists cited URLs per section, or "" when none are cited.
func SourcesAppendix(b *doctree.Book) string {
	var sb strings.Builder
	doctree.Walk(b.TOC, func(n, _ *doctree.Node) bool {
		urls := ExtractSources(n.Content)
		if len(urls) == 0 {
			return true
		}
		fmt.Fprintf(&sb, "- %s\n", n.Label())
		for _, u := range urls {
			fmt.Fprintf(&sb, "  - %s\n", u)
		}
		return true
	})
	if sb.Len() == 0 {
		return ""
	}
	return "## Appendix: Sources cited by section\n\n" + sb.String()
}

// SuggestionsDocument joins the suggestions text and the sources appendix.
func SuggestionsDocument(b *doctree.Book, suggestions string) string {
	if strings.TrimSpace(suggestions) == "" {
		suggestions = render.NoDiagramSuggestions
	}
	doc := strings.TrimSpace(suggestions)
	if appendix := SourcesAppendix(b); appendix != "" {
		doc += "\n\n" + appendix
	}
	return doc
}

// diagrams runs the optional diagram pass. Both steps are best-effort.
func (g *Generator) diagrams(ctx context.Context, b *doctree.Book) {
	g.run.SetStatus(StatusDiagrams, "diagram plan")
	g.console.Step("Planning diagrams")

	raw, err := g.ask(ctx, provider.PhaseDiagrams, prompt.DiagramPlan(b), 0, prompt.DiagramPlanSchema)
	if err != nil {
		g.warn("diagram plan failed", err)
	} else if n, err := ApplyDiagramPlan(b, raw); err != nil {
		g.warn("diagram plan unreadable", err)
	} else if n > 0 {
		g.log.Info("diagrams planned", "count", n)
		g.renderer.Save(ctx, b, true)
	}

	g.run.SetStatus(StatusDiagrams, "diagram suggestions")
	g.console.Step("Writing diagram suggestions")
	text, err := g.ask(ctx, provider.PhaseDiagrams, prompt.DiagramSuggestions(b), 0, nil)
	if err != nil {
		g.warn("diagram suggestions failed", err)
		text = ""
	}
	g.renderer.SaveDiagrams(ctx, SuggestionsDocument(b, text))
}
