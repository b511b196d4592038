package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docgen/internal/doctree"
)

// MinOverviewChars is the shortest overview, after child labels are removed,
// that is not considered weak.
const MinOverviewChars = 60

// IsOverviewWeak reports whether an overview says nothing beyond echoing
// its children. Lines that only repeat a child's "number title", bare or as
// a heading or bullet, are dropped before measuring.
func IsOverviewWeak(content string, n *doctree.Node) bool {
	if strings.TrimSpace(content) == "" {
		return true
	}
	echoes := make([]*regexp.Regexp, 0, len(n.Children))
	for _, c := range n.Children {
		echoes = append(echoes, regexp.MustCompile(
			`^\s*(?:#{1,6}\s+|[-*+]\s+)?`+regexp.QuoteMeta(c.Number)+`\.?\s+`+regexp.QuoteMeta(c.Title)+`\s*$`))
	}

	var kept []string
	for _, line := range strings.Split(content, "\n") {
		echo := false
		for _, re := range echoes {
			if re.MatchString(line) {
				echo = true
				break
			}
		}
		if !echo {
			kept = append(kept, line)
		}
	}
	return utf8.RuneCountInString(strings.TrimSpace(strings.Join(kept, "\n"))) < MinOverviewChars
}
