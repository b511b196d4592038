package mdnorm

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	altBulletRe    = regexp.MustCompile(`^(\s*)[*+](\s+\S)`)
	thematicRe     = regexp.MustCompile(`^\s{0,3}([*\-_])(\s*([*\-_]))+\s*$`)
	atxLineStartRe = regexp.MustCompile(`^\s{0,3}#{1,6}(\s|$)`)
)

var reflowParser = goldmark.New()

type headingSpan struct {
	level int
	text  string
	last  int // last source line, including a setext underline
}

// Reflow re-emits text in a canonical form: top-level headings become ATX
// headings surrounded by blank lines, * and + bullets become -, and runs of
// blank lines collapse to one. Text containing a pipe or grid table is
// returned unchanged so tabular layout is never flattened.
func Reflow(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	if HasPipeTable(src) || HasGridTable(src) {
		return src
	}

	lines := strings.Split(src, "\n")
	headings := findHeadings(src, lines)

	out := make([]string, 0, len(lines))
	lastBlank := func() bool {
		return len(out) == 0 || strings.TrimSpace(out[len(out)-1]) == ""
	}

	var f Fence
	blankAfterHeading := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		state := f.Next(line)
		if state == Outside {
			if h, ok := headings[i]; ok {
				if !lastBlank() {
					out = append(out, "")
				}
				out = append(out, strings.Repeat("#", h.level)+" "+h.text)
				blankAfterHeading = true
				i = h.last
				continue
			}
		}

		if state == Outside && strings.TrimSpace(line) == "" {
			if !lastBlank() {
				out = append(out, "")
			}
			blankAfterHeading = false
			continue
		}
		if blankAfterHeading {
			out = append(out, "")
			blankAfterHeading = false
		}
		if state == Outside && !thematicRe.MatchString(line) {
			line = altBulletRe.ReplaceAllString(line, "$1-$2")
		}
		out = append(out, line)
	}

	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

// findHeadings maps the first source line of each top-level heading to its
// canonical form.
func findHeadings(src string, lines []string) map[int]headingSpan {
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len(l) + 1
	}
	lineOf := func(offset int) int {
		return sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
	}

	source := []byte(src)
	doc := reflowParser.Parser().Parse(text.NewReader(source))
	out := make(map[int]headingSpan)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		segs := h.Lines()
		var parts []string
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			parts = append(parts, strings.TrimSpace(string(seg.Value(source))))
		}
		first := lineOf(segs.At(0).Start)
		last := lineOf(segs.At(segs.Len() - 1).Start)
		if first < 0 {
			continue
		}
		if !atxLineStartRe.MatchString(lines[first]) {
			last++ // setext underline
		}
		if last >= len(lines) {
			continue
		}
		out[first] = headingSpan{level: h.Level, text: strings.Join(parts, " "), last: last}
	}
	return out
}
