package outline

import (
	"errors"
	"regexp"
	"strings"

	"github.com/dgallion1/docgen/internal/doctree"
	"github.com/dgallion1/docgen/internal/mdnorm"
)

// ErrNoStructure means no parsing strategy found a single top-level node.
// Callers fall back to a demo or proposed outline.
var ErrNoStructure = errors.New("outline: no structure found")

// MaxDepth caps how deep an ingested outline may nest.
const MaxDepth = 5

// Strategy names reported in Outline.Strategy.
const (
	StrategyHeadings = "headings"
	StrategyBullets  = "bullets"
	StrategyNumbered = "numbered"
)

// Outline is the result of ingesting an outline description.
type Outline struct {
	Title    string          // from the level-1 heading, if any
	Summary  string          // text following the level-1 heading
	Nodes    []*doctree.Node // unnumbered tree
	Strategy string
}

var (
	headingRe  = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+(.*\S)\s*$`)
	bulletRe   = regexp.MustCompile(`^(\s*)-\s+(.*\S)\s*$`)
	numberedRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\.?\s+(.*\S)\s*$`)

	closingHashesRe = regexp.MustCompile(`\s+#+$`)
	chapterPrefixRe = regexp.MustCompile(`(?i)^\s*(?:chapter|cap[ií]tulo)\s+\d+\b(?:\s*[:\-.]\s*|\s+)(.+)$`)
	numberPrefixRe  = regexp.MustCompile(`^\s*\d+(?:\.\d+)*\.?\s+`)
)

func isHeading(line string) bool  { return headingRe.MatchString(line) }
func isBullet(line string) bool   { return bulletRe.MatchString(line) }
func isNumbered(line string) bool { return numberedRe.MatchString(line) }

type strategy struct {
	name  string
	stop  func(line string) bool
	parse func(lines []string, stop func(string) bool) []*doctree.Node
}

var strategies = []strategy{
	{name: StrategyHeadings, stop: isHeading, parse: parseHeadings},
	{
		name:  StrategyBullets,
		stop:  func(l string) bool { return isHeading(l) || isBullet(l) },
		parse: parseBullets,
	},
	{
		name:  StrategyNumbered,
		stop:  func(l string) bool { return isHeading(l) || isBullet(l) || isNumbered(l) },
		parse: parseNumbered,
	},
}

// Ingest parses raw outline text. Strategies run in priority order and the
// first one producing at least one top-level node wins.
func Ingest(raw string) (*Outline, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for _, s := range strategies {
		nodes := s.parse(lines, s.stop)
		if len(nodes) == 0 {
			continue
		}
		title, summary := bookHeader(lines, s.stop)
		return &Outline{Title: title, Summary: summary, Nodes: nodes, Strategy: s.name}, nil
	}
	return nil, ErrNoStructure
}

// CleanHeadingText strips numeric prefixes and, for chapters, a leading
// "Chapter N:" label.
func CleanHeadingText(text string, depth int) string {
	text = closingHashesRe.ReplaceAllString(strings.TrimSpace(text), "")
	if depth == 1 {
		if m := chapterPrefixRe.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return strings.TrimSpace(numberPrefixRe.ReplaceAllString(text, ""))
}

// bookHeader returns the first level-1 heading and the text that follows it.
func bookHeader(lines []string, stop func(string) bool) (title, summary string) {
	var f mdnorm.Fence
	for i, line := range lines {
		if f.Next(line).InFence() {
			continue
		}
		m := headingRe.FindStringSubmatch(line)
		if m == nil || len(m[1]) != 1 {
			continue
		}
		return CleanHeadingText(m[2], 0), captureSummary(lines, i+1, stop)
	}
	return "", ""
}

// captureSummary collects the block after a structural line. Leading blank
// lines are skipped, fenced blocks are kept verbatim and other blank lines
// are dropped. Capture ends at the next line accepted by stop.
func captureSummary(lines []string, start int, stop func(string) bool) string {
	var out []string
	var f mdnorm.Fence
	for i := start; i < len(lines); i++ {
		line := lines[i]
		state := f.Next(line)
		if state.InFence() {
			out = append(out, line)
			continue
		}
		if stop(line) {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}

// treeBuilder attaches nodes by source depth the way a heading stack does:
// a node becomes the child of the nearest open node with a shallower depth.
type treeBuilder struct {
	roots []*doctree.Node
	stack []stackEntry
}

type stackEntry struct {
	node  *doctree.Node
	depth int
}

func (b *treeBuilder) add(n *doctree.Node, depth int) {
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].depth >= depth {
		b.stack = b.stack[:len(b.stack)-1]
	}
	if len(b.stack) == 0 {
		b.roots = append(b.roots, n)
	} else {
		parent := b.stack[len(b.stack)-1].node
		parent.Children = append(parent.Children, n)
	}
	b.stack = append(b.stack, stackEntry{node: n, depth: depth})
}

func parseHeadings(lines []string, stop func(string) bool) []*doctree.Node {
	var b treeBuilder
	var f mdnorm.Fence
	for i, line := range lines {
		if f.Next(line).InFence() {
			continue
		}
		m := headingRe.FindStringSubmatch(line)
		if m == nil || len(m[1]) == 1 {
			continue
		}
		depth := min(len(m[1])-1, MaxDepth)
		title := CleanHeadingText(m[2], depth)
		if title == "" {
			continue
		}
		b.add(&doctree.Node{Title: title, Summary: captureSummary(lines, i+1, stop)}, depth)
	}
	return b.roots
}

func parseBullets(lines []string, stop func(string) bool) []*doctree.Node {
	var b treeBuilder
	var f mdnorm.Fence
	base := -1
	for i, line := range lines {
		if f.Next(line).InFence() {
			continue
		}
		m := bulletRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent := len(strings.ReplaceAll(m[1], "\t", "  "))
		if base < 0 {
			base = indent
		}
		depth := 1
		if indent > base {
			depth = min((indent-base)/2+1, MaxDepth)
		}
		title := CleanHeadingText(m[2], depth)
		if title == "" {
			continue
		}
		b.add(&doctree.Node{Title: title, Summary: captureSummary(lines, i+1, stop)}, depth)
	}
	return b.roots
}

func parseNumbered(lines []string, stop func(string) bool) []*doctree.Node {
	var b treeBuilder
	var f mdnorm.Fence
	for i, line := range lines {
		if f.Next(line).InFence() {
			continue
		}
		m := numberedRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		depth := min(strings.Count(m[1], ".")+1, MaxDepth)
		title := CleanHeadingText(m[2], depth)
		if title == "" {
			continue
		}
		b.add(&doctree.Node{Title: title, Summary: captureSummary(lines, i+1, stop)}, depth)
	}
	return b.roots
}
