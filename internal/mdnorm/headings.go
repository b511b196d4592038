package mdnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NodeOptions describe the node whose content is being prepared.
type NodeOptions struct {
	Number       string
	Title        string
	HeadingLevel int  // level the node's own heading is rendered at
	Leaf         bool // leaf content gets list-label promotion
	// PromoteSections turns bare numbered lines and lone section words into
	// headings. Used when the outline numbering is not trusted.
	PromoteSections bool
}

// childLevel is the level internal headings are moved to.
func (o NodeOptions) childLevel() int {
	return min(max(o.HeadingLevel, 1)+1, 6)
}

var (
	atxRe          = regexp.MustCompile(`^\s{0,3}(#{1,6})(?:\s+(.*?))?(?:\s+#+)?\s*$`)
	gluedHeadingRe = regexp.MustCompile(`^(.*[^\s#])\s*(#{2,6})\s+(\S.*)$`)
	numberedLineRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)+\.?|\d+)\s+(\S.*)$`)
	sectionWordRe  = regexp.MustCompile(`(?i)^\s*(?:\*\*|__)?(summary|overview|introduction|conclusion|conclusions|key takeaways|resumen|introducción|conclusión|conclusiones)(?:\*\*|__)?\s*:?\s*$`)
	labelKeywordRe = regexp.MustCompile(`(?i)^(example|examples|steps|benefits|advantages|disadvantages|requirements|key points|tips|best practices|considerations|use cases|features|components|recommendations|ejemplo|ejemplos|pasos|beneficios|ventajas|desventajas|requisitos|recomendaciones)\b`)
	emphasisRe     = regexp.MustCompile(`^(?:\*\*|__)(.*?)(?:\*\*|__)$`)
)

// SanitizeHeadings cleans the headings inside one node's content: it drops
// lines repeating the node's own number and title, splits headings glued to
// prose, optionally promotes section labels, and moves every heading to one
// level below the node heading.
func SanitizeHeadings(content string, opts NodeOptions) string {
	selfRe := selfTitleRegexp(opts.Number, opts.Title)
	level := opts.childLevel()
	prefix := strings.Repeat("#", level) + " "

	lines := splitLines(content)
	out := make([]string, 0, len(lines))
	var f Fence
	for i, line := range lines {
		if f.Next(line).InFence() {
			out = append(out, line)
			continue
		}
		if selfRe != nil && selfRe.MatchString(line) {
			continue
		}

		parts := splitGlued(line)
		for _, part := range parts {
			if m := atxRe.FindStringSubmatch(part); m != nil {
				if m[2] != "" {
					out = append(out, prefix+m[2])
				}
				continue
			}
			if opts.PromoteSections {
				if m := numberedLineRe.FindStringSubmatch(part); m != nil && startsUpper(m[2]) && isLabelText(m[2], 80) {
					out = append(out, prefix+strings.TrimSpace(part))
					continue
				}
				if m := sectionWordRe.FindStringSubmatch(part); m != nil {
					out = append(out, prefix+m[1])
					continue
				}
			}
			if opts.Leaf && len(parts) == 1 && precedesList(lines, i) && isListLabel(part) {
				out = append(out, prefix+labelText(part))
				continue
			}
			out = append(out, part)
		}
	}
	return strings.Join(out, "\n")
}

// selfTitleRegexp matches a heading or bare line equal to "number title",
// case-insensitively, with the number and separator optional.
func selfTitleRegexp(number, title string) *regexp.Regexp {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	num := ""
	if number != "" {
		num = `(?:` + regexp.QuoteMeta(number) + `\.?\s*[:.\-–—]?\s*)?`
	}
	return regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s+)?(?:\*\*|__)?\s*` + num + regexp.QuoteMeta(title) + `\s*(?:\*\*|__)?\s*[:.]?\s*$`)
}

// splitGlued splits "prose ## Heading" into the prose and the heading.
func splitGlued(line string) []string {
	if atxRe.MatchString(line) || strings.Count(line, "`")%2 == 1 {
		return []string{line}
	}
	var tail []string
	for {
		m := gluedHeadingRe.FindStringSubmatch(line)
		if m == nil || strings.Count(m[1], "`")%2 == 1 || strings.HasSuffix(m[1], "|") {
			break
		}
		tail = append([]string{"", m[2] + " " + m[3]}, tail...)
		line = m[1]
	}
	return append([]string{line}, tail...)
}

// precedesList reports whether the next non-blank line after i (allowing a
// single blank line) is a list item.
func precedesList(lines []string, i int) bool {
	for j, skipped := i+1, 0; j < len(lines); j++ {
		if isBlank(lines[j]) {
			if skipped++; skipped > 1 {
				return false
			}
			continue
		}
		return listItemRe.MatchString(lines[j])
	}
	return false
}

// isListLabel decides whether a line introducing a list reads like a label.
func isListLabel(line string) bool {
	if isBlank(line) || listItemRe.MatchString(line) || atxRe.MatchString(line) ||
		pipeRowRe.MatchString(line) || IsFenceLine(line) || strings.HasPrefix(line, " ") ||
		strings.HasPrefix(line, "\t") || strings.HasPrefix(line, ">") {
		return false
	}
	text := labelText(line)
	if text == "" || !isLabelText(text, 60) {
		return false
	}
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasSuffix(trimmed, ":"), strings.HasSuffix(trimmed, ":**"):
		return true
	case labelKeywordRe.MatchString(text):
		return true
	case emphasisRe.MatchString(trimmed):
		return true
	}
	return len(strings.Fields(text)) <= 4
}

// isLabelText is short text without sentence punctuation at the end.
func isLabelText(s string, maxRunes int) bool {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxRunes {
		return false
	}
	return !strings.ContainsAny(s[len(s)-1:], ".!?;,")
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// labelText strips emphasis and a trailing colon from a label line.
func labelText(line string) string {
	s := strings.TrimSpace(line)
	if m := emphasisRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ":"))
	if m := emphasisRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return strings.TrimSpace(s)
}
