package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dgallion1/docgen/internal/doctree"
)

func sampleBook() *doctree.Book {
	b := &doctree.Book{
		Title:    "Go Services",
		Audience: "Backend engineers",
		Topic:    "Building HTTP services",
		TOC: []*doctree.Node{
			{Title: "Basics", Summary: "Foundations.", Children: []*doctree.Node{
				{Title: "Routing"},
				{Title: "Middleware", Children: []*doctree.Node{{Title: "Auth"}}},
			}},
			{Title: "Operations"},
		},
	}
	doctree.Renumber(b.TOC)
	return b
}

func TestBookContextIncludesTOC(t *testing.T) {
	ctx := BookContext(sampleBook())
	for _, want := range []string{"- Title: Go Services", "- Audience: Backend engineers", "1 Basics", "    1.2.1 Auth", "2 Operations"} {
		if !strings.Contains(ctx, want) {
			t.Errorf("expected context to contain %q, got:\n%s", want, ctx)
		}
	}
}

func TestSummariesListsDescendants(t *testing.T) {
	b := sampleBook()
	p := Summaries(b, b.TOC[0], "", 300)
	for _, want := range []string{"- 1.1 Routing", "- 1.2 Middleware", "  - 1.2.1 Auth", "Summary of the previous main chapter:\n(none)", "between 150 and 300 words"} {
		if !strings.Contains(p, want) {
			t.Errorf("expected prompt to contain %q, got:\n%s", want, p)
		}
	}
}

func TestOverviewAndDetail(t *testing.T) {
	b := sampleBook()
	ov := Overview(b, b.TOC[0], "", 250)
	if !strings.Contains(ov, "**1 — Basics**") || !strings.Contains(ov, "- 1.1 Routing: (none)") {
		t.Errorf("unexpected overview prompt:\n%s", ov)
	}
	if !strings.Contains(ov, "no headings, no bulleted or numbered lists") {
		t.Errorf("expected plain prose constraint in overview prompt:\n%s", ov)
	}
	if !strings.Contains(ov+WeakOverviewAmendment, "Do not enumerate the subchapter titles.") {
		t.Error("expected amendment text")
	}

	leaf := b.TOC[0].Children[0]
	d := Detail(b, leaf, "Foundations.", 900)
	if !strings.Contains(d, "**1.1 — Routing**") || !strings.Contains(d, "900 words") || !strings.Contains(d, "Foundations.") {
		t.Errorf("unexpected detail prompt:\n%s", d)
	}
}

func TestDetailWithoutLengthTarget(t *testing.T) {
	b := sampleBook()
	d := Detail(b, b.TOC[1], "", 0)
	if !strings.Contains(d, "no fixed length target") || strings.Contains(d, "0 words") {
		t.Errorf("expected unbounded length wording, got:\n%s", d)
	}
}

func TestTokenBudget(t *testing.T) {
	if got := TokenBudget(0, 4096); got != 4096 {
		t.Errorf("expected ceiling for zero words, got %d", got)
	}
	if got := TokenBudget(100, 4096); got != 422 {
		t.Errorf("expected 422, got %d", got)
	}
	if got := TokenBudget(10000, 4096); got != 4096 {
		t.Errorf("expected ceiling cap, got %d", got)
	}
}

func TestSchemasAreValidJSON(t *testing.T) {
	for name, raw := range map[string]json.RawMessage{"summaries": SummariesSchema, "diagrams": DiagramPlanSchema} {
		if !json.Valid(raw) {
			t.Errorf("%s schema is not valid JSON", name)
		}
	}
}

func TestDiagramPromptsCoverSections(t *testing.T) {
	b := sampleBook()
	for _, p := range []string{DiagramPlan(b), DiagramSuggestions(b)} {
		if !strings.Contains(p, "- 1.2.1 Auth: (none)") || !strings.Contains(p, "- 1 Basics: Foundations.") {
			t.Errorf("expected section digest, got:\n%s", p)
		}
	}
}
