// Package prompt builds the instructions sent to the content provider.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgallion1/docgen/internal/doctree"
)

const SystemPrompt = `You are an expert writer of technical documentation, manuals and proposals.
You produce clear, well structured content adapted to the target audience.
Key rules:
- Keep consistency and follow the requested chapter and subchapter structure.
- When JSON output is requested, return only the JSON, with no additional text.`

// None is the placeholder used when a context value is missing.
const None = "(none)"

// WeakOverviewAmendment is appended once when an overview comes back weak.
const WeakOverviewAmendment = "\n\nAdditional instruction: if the text is too short, expand it with more contextual detail and, " +
	"if it helps, add a short Markdown table summarizing relevant comparisons or categories. " +
	"Do not enumerate the subchapter titles."

// SummariesSchema is the shape of a summaries block answer.
var SummariesSchema = json.RawMessage(`{"type":"object","additionalProperties":{"type":"string"}}`)

// DiagramPlanSchema is the shape of a diagram plan answer.
var DiagramPlanSchema = json.RawMessage(`{"type":"object","properties":{"diagrams":{"type":"array","items":{"type":"object",` +
	`"properties":{"section_number":{"type":"string"},"name":{"type":"string"},"purpose":{"type":"string"},` +
	`"format":{"type":"string","enum":["plantuml","mermaid","text"]},"placement":{"type":"string"},"code":{"type":"string"}},` +
	`"required":["section_number","name"]}}},"required":["diagrams"]}`)

// BookContext is the stable per-run context sent with every request.
func BookContext(b *doctree.Book) string {
	var sb strings.Builder
	sb.WriteString("Book context (stable for this run):\n")
	fmt.Fprintf(&sb, "- Title: %s\n", b.Title)
	fmt.Fprintf(&sb, "- Audience: %s\n", b.Audience)
	fmt.Fprintf(&sb, "- Topic: %s\n", b.Topic)
	sb.WriteString("- TOC:\n")
	sb.WriteString(doctree.TOCString(b.TOC))
	return sb.String()
}

// Index asks for a proposed chapter structure.
func Index(b *doctree.Book) string {
	return fmt.Sprintf(`For a technical document with the given TITLE, TOPIC and TARGET AUDIENCE, propose a hierarchical structure of chapters and subchapters.

- Title: %q
- Topic: %s
- Target audience: %s

Return a JSON array of objects. Each object must have a 'title' key (string) and optionally a 'subchapters' key (an array of objects like this one).
Structure rules:
- A chapter may have between 0 and 6 subchapters.
- Do not include more than 2 levels of nesting (chapters and subchapters).`, b.Title, b.Topic, b.Audience)
}

// Introduction asks for the single introduction paragraph.
func Introduction(b *doctree.Book) string {
	return fmt.Sprintf(`Based on the following structure of a technical document, write a single introduction paragraph (between 100 and 200 words) explaining what the reader will learn or find in the document.

- Title: %q
- Topic: %s
- Target audience: %s
- Chapter structure:
%s
Return only the introduction paragraph, without headings.`, b.Title, b.Topic, b.Audience, doctree.TOCString(b.TOC))
}

// Summaries asks for summaries of one top-level chapter and all of its
// descendants, keyed by section number.
func Summaries(b *doctree.Book, chapter *doctree.Node, previousSummary string, words int) string {
	var subs strings.Builder
	doctree.Walk(chapter.Children, func(n, _ *doctree.Node) bool {
		fmt.Fprintf(&subs, "%s- %s\n", strings.Repeat("  ", n.Level-chapter.Level-1), n.Label())
		return true
	})
	return fmt.Sprintf(`For the following main chapter and its list of subchapters, write a summary for each one.

General context:
- Document title: %q
- Target audience: %s
- Summary of the previous main chapter:
%s

Block to summarize:
- Main chapter: %s — %s
- Subchapters of this block:
%s
Return a single JSON object. Keys must be the section numbers (e.g. "1", "1.1", "1.2") and values their summaries (between %d and %d words each).`,
		b.Title, b.Audience, orNone(previousSummary), chapter.Number, chapter.Title, subs.String(), words/2, words)
}

// ManualOverview asks for the whole-document summary from the chapter summaries.
func ManualOverview(b *doctree.Book, words int) string {
	var sb strings.Builder
	for _, ch := range b.TOC {
		fmt.Fprintf(&sb, "- %s: %s\n", ch.Label(), orNone(oneLine(ch.Summary)))
	}
	return fmt.Sprintf(`Write an overview of the whole document %q of about %d words.

- Topic: %s
- Target audience: %s
- Chapter summaries:
%s
Requirements:
- Explain the purpose of the document and how its chapters build on each other.
- Output Markdown paragraphs only, no headings.`, b.Title, words, b.Topic, b.Audience, sb.String())
}

// Overview asks for the introductory content of an internal node.
func Overview(b *doctree.Book, n *doctree.Node, contextSummary string, words int) string {
	var children strings.Builder
	for _, c := range n.Children {
		fmt.Fprintf(&children, "- %s: %s\n", c.Label(), orNone(oneLine(c.Summary)))
	}
	return fmt.Sprintf(`Write the overview of section **%s — %s**.

Document context:
- Title: %q
- Topic: %s
- Target audience: %s
- Summary of the current section:
%s
- Surrounding context:
%s
- Subsections covered later (do not write them here):
%s
Requirements:
- Introduce what the section covers and why it matters, in about %d words.
- Write plain prose paragraphs only: no headings, no bulleted or numbered lists.
- Start directly with the content; do not repeat the section title.
- Do not list or restate the subsection titles.`,
		n.Number, n.Title, b.Title, b.Topic, b.Audience, orNone(n.Summary), orNone(contextSummary), children.String(), words)
}

// Detail asks for the full content of a leaf node.
func Detail(b *doctree.Book, n *doctree.Node, parentSummary string, words int) string {
	return fmt.Sprintf(`Write the content of section **%s — %s**.

Document context:
- Title: %q
- Topic: %s
- Target audience: %s
- Summary of the current section:
%s
- Summary of the parent chapter (if any):
%s

Requirements:
- Write clear and precise technical content adapted to the audience.
- %s
- The output must be Markdown.
- Start directly with the content; do not repeat the section title.
- For internal subsections use at most fourth level headings (####).`,
		n.Number, n.Title, b.Title, b.Topic, b.Audience, orNone(n.Summary), orNone(parentSummary), lengthTarget(words))
}

// DiagramPlan asks for a JSON plan of diagrams per section.
func DiagramPlan(b *doctree.Book) string {
	return fmt.Sprintf(`Propose diagrams that would help readers of the document %q (topic: %s, audience: %s).

Sections:
%s
Return a JSON object {"diagrams": [...]} where each item has:
- "section_number": the section the diagram belongs to
- "name": short diagram name
- "purpose": what the diagram explains
- "format": one of "plantuml", "mermaid", "text"
- "placement": "start", "end", "before_para:N" or "after_para:N"
- "code": optional diagram source
Propose at most one diagram per section and only where it adds value.`, b.Title, b.Topic, b.Audience, sectionDigest(b))
}

// DiagramSuggestions asks for a readable Markdown document of diagram ideas.
func DiagramSuggestions(b *doctree.Book) string {
	return fmt.Sprintf(`Write a Markdown document suggesting diagrams for the document %q (topic: %s, audience: %s).

Sections:
%s
For each suggested diagram give a "###" heading with the section number and diagram name, one paragraph on its purpose, and a fenced code block with PlantUML or Mermaid source when possible.`,
		b.Title, b.Topic, b.Audience, sectionDigest(b))
}

// sectionDigest lists every section with its summary, in document order.
func sectionDigest(b *doctree.Book) string {
	var sb strings.Builder
	doctree.Walk(b.TOC, func(n, _ *doctree.Node) bool {
		fmt.Fprintf(&sb, "- %s: %s\n", n.Label(), orNone(clip(oneLine(n.Summary), 300)))
		return true
	})
	return sb.String()
}

// TokenBudget converts a word target into a max-token budget: about 1.33
// tokens per word plus a quarter of headroom, capped at ceiling. Zero words
// means the ceiling.
func TokenBudget(words, ceiling int) int {
	if words <= 0 {
		return ceiling
	}
	budget := int(float64(words)*1.33*1.25) + 256
	if ceiling > 0 && budget > ceiling {
		return ceiling
	}
	return budget
}

func lengthTarget(words int) string {
	if words <= 0 {
		return "There is no fixed length target; cover the section as fully as it needs."
	}
	return fmt.Sprintf("The target length is %d words.", words)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return None
	}
	return s
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
