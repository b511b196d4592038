package outline

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docgen/internal/doctree"
)

// assertTwoByTwo checks the common 2 chapters x 2 subchapters shape.
func assertTwoByTwo(t *testing.T, nodes []*doctree.Node, titles []string) {
	t.Helper()
	doctree.Renumber(nodes)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(nodes))
	}
	var gotNumbers, gotTitles []string
	doctree.Walk(nodes, func(n, _ *doctree.Node) bool {
		gotNumbers = append(gotNumbers, n.Number)
		gotTitles = append(gotTitles, n.Title)
		return true
	})
	wantNumbers := []string{"1", "1.1", "1.2", "2", "2.1", "2.2"}
	if strings.Join(gotNumbers, ",") != strings.Join(wantNumbers, ",") {
		t.Errorf("expected numbers %v, got %v", wantNumbers, gotNumbers)
	}
	if strings.Join(gotTitles, "|") != strings.Join(titles, "|") {
		t.Errorf("expected titles %v, got %v", titles, gotTitles)
	}
}

var wantTitles = []string{"Basics", "Intro", "Setup", "Practice", "Example", "Tips"}

func TestIngestHeadings(t *testing.T) {
	input := `# My Manual

A manual about things.

## Chapter 1: Basics

Covers the basics.

### 1.1 Intro
### 1.2 Setup

` + "```" + `
## not a heading
` + "```" + `

## 2 Practice
### Example
### Tips
`
	o, err := Ingest(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Strategy != StrategyHeadings {
		t.Errorf("expected strategy %q, got %q", StrategyHeadings, o.Strategy)
	}
	if o.Title != "My Manual" {
		t.Errorf("expected title %q, got %q", "My Manual", o.Title)
	}
	if o.Summary != "A manual about things." {
		t.Errorf("expected summary %q, got %q", "A manual about things.", o.Summary)
	}
	assertTwoByTwo(t, o.Nodes, wantTitles)

	if o.Nodes[0].Summary != "Covers the basics." {
		t.Errorf("expected chapter summary, got %q", o.Nodes[0].Summary)
	}
	setup := o.Nodes[0].Children[1]
	if !strings.Contains(setup.Summary, "## not a heading") {
		t.Errorf("expected fenced block kept verbatim in summary, got %q", setup.Summary)
	}
}

func TestIngestBulletFallback(t *testing.T) {
	input := `# Title
  - Basics
    - Intro
      Short note.
    - Setup
  - Practice
    - Example
    - Tips
`
	o, err := Ingest(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Strategy != StrategyBullets {
		t.Errorf("expected strategy %q, got %q", StrategyBullets, o.Strategy)
	}
	if o.Summary != "" {
		t.Errorf("expected H1 summary to stop at bullets, got %q", o.Summary)
	}
	assertTwoByTwo(t, o.Nodes, wantTitles)
	if got := o.Nodes[0].Children[0].Summary; got != "      Short note." {
		t.Errorf("expected inline summary %q, got %q", "      Short note.", got)
	}
}

func TestIngestBulletDepthCap(t *testing.T) {
	var sb strings.Builder
	for i := range 8 {
		sb.WriteString(strings.Repeat("  ", i) + "- Level\n")
	}
	o, err := Ingest(sb.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doctree.MaxDepth(o.Nodes); got != MaxDepth {
		t.Errorf("expected depth capped at %d, got %d", MaxDepth, got)
	}
}

func TestIngestNumberedFallback(t *testing.T) {
	input := `1 Basics
1.1 Intro
This explains the intro.
1.2 Setup
2. Practice
2.1 Example
2.2 Tips
`
	o, err := Ingest(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Strategy != StrategyNumbered {
		t.Errorf("expected strategy %q, got %q", StrategyNumbered, o.Strategy)
	}
	assertTwoByTwo(t, o.Nodes, wantTitles)
	if got := o.Nodes[0].Children[0].Summary; got != "This explains the intro." {
		t.Errorf("expected summary, got %q", got)
	}
}

func TestIngestOrphanHeadingAttachesToNearestAncestor(t *testing.T) {
	o, err := Ingest("### Orphan\n#### Child\n## Chapter\n#### Deep\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(o.Nodes) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(o.Nodes))
	}
	if len(o.Nodes[0].Children) != 1 || o.Nodes[0].Children[0].Title != "Child" {
		t.Errorf("expected Child under Orphan, got %+v", o.Nodes[0].Children)
	}
	if len(o.Nodes[1].Children) != 1 || o.Nodes[1].Children[0].Title != "Deep" {
		t.Errorf("expected Deep under Chapter, got %+v", o.Nodes[1].Children)
	}
}

func TestIngestNoStructure(t *testing.T) {
	_, err := Ingest("just some prose\nwith no outline at all\n")
	if !errors.Is(err, ErrNoStructure) {
		t.Fatalf("expected ErrNoStructure, got %v", err)
	}
}

func TestCleanHeadingText(t *testing.T) {
	cases := []struct {
		in    string
		depth int
		want  string
	}{
		{"1.2 Setup", 2, "Setup"},
		{"Chapter 3: Advanced", 1, "Advanced"},
		{"Capítulo 2 - Práctica", 1, "Práctica"},
		{"Chapter 12", 1, "Chapter 12"},
		{"Chapter 12 Networking", 1, "Networking"},
		{"Chapter 7.", 1, "Chapter 7."},
		{"Chapter 3: Advanced", 2, "Chapter 3: Advanced"},
		{"Overview ##", 1, "Overview"},
		{"2. Practice", 1, "Practice"},
	}
	for _, c := range cases {
		if got := CleanHeadingText(c.in, c.depth); got != c.want {
			t.Errorf("CleanHeadingText(%q, %d): expected %q, got %q", c.in, c.depth, c.want, got)
		}
	}
}

func TestParseProposal(t *testing.T) {
	raw := "Here you go:\n```json\n" + `[
  {"title": "Basics", "subchapters": [{"title": "Intro"}, {"title": "Setup"}]},
  {"title": "Practice", "subchapters": [{"title": "Example"}, {"title": "Tips"}]}
]` + "\n```"
	nodes, err := ParseProposal(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertTwoByTwo(t, nodes, wantTitles)

	wrapped := `{"chapters":[{"title":"Only"}]}`
	nodes, err = ParseProposal(wrapped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Title != "Only" {
		t.Errorf("expected single chapter Only, got %+v", nodes)
	}

	if _, err := ParseProposal("no json here"); !errors.Is(err, ErrMalformedProposal) {
		t.Errorf("expected ErrMalformedProposal, got %v", err)
	}
	if _, err := ParseProposal("[{\"title\": "); !errors.Is(err, ErrMalformedProposal) {
		t.Errorf("expected ErrMalformedProposal for truncated JSON, got %v", err)
	}
}

func TestParseProposalTrailingBrackets(t *testing.T) {
	raw := `[{"title":"Alpha [draft]","subchapters":[{"title":"One"}]}] See note [1] and {2}.`
	nodes, err := ParseProposal(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Title != "Alpha [draft]" || len(nodes[0].Children) != 1 {
		t.Errorf("expected one chapter with one child, got %+v", nodes)
	}

	nodes, err = ParseProposal(`{"chapters":[{"title":"Only"}]} (see [ref] })`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Title != "Only" {
		t.Errorf("expected single chapter Only, got %+v", nodes)
	}
}

func TestDemoTOC(t *testing.T) {
	assertTwoByTwo(t, DemoTOC(), []string{
		"Fundamentals", "Introduction", "Getting Started",
		"Applied Practice", "Guided Example", "Good Practices",
	})
}
