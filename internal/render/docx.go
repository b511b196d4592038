package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docgen/internal/mdnorm"
)

var (
	docxHeadingRe = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+(.*?)\s*$`)
	docxBulletRe  = regexp.MustCompile(`^(\s*)(?:[-*+]|\d+[.)])\s+(.*)$`)
	strongRe      = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
)

// headingSizes are half-point font sizes for Heading1..Heading6.
var headingSizes = [...]string{"40", "32", "28", "26", "24", "24"}

// WriteDOCX converts a normalized Markdown manuscript into a Word document.
// Headings map to Heading styles, list items to indented bullet paragraphs
// and fenced code to monospace runs. Other Markdown is written as text.
func WriteDOCX(w io.Writer, markdown string) error {
	doc := docx.New().WithDefaultTheme()

	var f mdnorm.Fence
	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		p := doc.AddParagraph()
		addInline(p, strings.Join(para, " "))
		para = nil
	}

	for _, line := range strings.Split(markdown, "\n") {
		state := f.Next(line)
		switch state {
		case mdnorm.Opening, mdnorm.Closing:
			flush()
			continue
		case mdnorm.Inside:
			doc.AddParagraph().AddText(line).Font("Consolas", "Consolas", "Consolas", "default").Size("18")
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case trimmed == "---" || trimmed == "***":
			flush()
		case docxHeadingRe.MatchString(line):
			flush()
			m := docxHeadingRe.FindStringSubmatch(line)
			level := len(m[1])
			doc.AddParagraph().Style(fmt.Sprintf("Heading%d", level)).
				AddText(stripInline(m[2])).Bold().Size(headingSizes[level-1])
		case docxBulletRe.MatchString(line):
			flush()
			m := docxBulletRe.FindStringSubmatch(line)
			indent := strings.Repeat("    ", len(m[1])/2)
			p := doc.AddParagraph()
			p.AddText(indent + "• ")
			addInline(p, m[2])
		default:
			para = append(para, trimmed)
		}
	}
	flush()

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

// addInline writes text as runs, making **strong** spans bold.
func addInline(p *docx.Paragraph, text string) {
	prev := 0
	for _, loc := range strongRe.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > prev {
			p.AddText(stripInline(text[prev:loc[0]]))
		}
		g := 2
		if loc[g] < 0 {
			g = 4
		}
		inner := text[loc[g]:loc[g+1]]
		p.AddText(stripInline(inner)).Bold()
		prev = loc[1]
	}
	if prev < len(text) {
		p.AddText(stripInline(text[prev:]))
	}
}

// stripInline drops inline emphasis and code markers.
func stripInline(s string) string {
	return strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
}
