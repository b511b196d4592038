package mdnorm

import (
	"regexp"
	"strings"
)

var (
	imageLinkRe  = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	inlineLinkRe = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	refDefRe     = regexp.MustCompile(`^\s{0,3}\[[^\]]+\]:\s*\S+.*$`)
	autolinkRe   = regexp.MustCompile(`<(?:https?|ftp|mailto):[^>\s]+>`)
	bareURLRe    = regexp.MustCompile(`(?i) ?(?:https?|ftp)://[^\s<>()\[\]]+`)
)

// StripLinks removes hyperlink markup for print output: inline, image and
// reference links keep their text, while definitions, autolinks and bare
// URLs are dropped. Inline code and fenced blocks are untouched.
func StripLinks(text string) string {
	lines := splitLines(text)
	out := make([]string, 0, len(lines))
	var f Fence
	for _, line := range lines {
		if f.Next(line).InFence() {
			out = append(out, line)
			continue
		}
		if refDefRe.MatchString(line) {
			continue
		}
		stripped := replaceOutsideCode(line, func(s string) string {
			s = imageLinkRe.ReplaceAllString(s, "$1")
			s = inlineLinkRe.ReplaceAllString(s, "$1")
			s = refLinkRe.ReplaceAllString(s, "$1")
			s = autolinkRe.ReplaceAllString(s, "")
			return bareURLRe.ReplaceAllString(s, "")
		})
		if isBlank(stripped) && !isBlank(line) {
			continue
		}
		out = append(out, stripped)
	}
	return strings.Join(out, "\n")
}

// replaceOutsideCode applies fn to the parts of line not inside inline code.
func replaceOutsideCode(line string, fn func(string) string) string {
	locs := inlineCodeRe.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return fn(line)
	}
	var sb strings.Builder
	prev := 0
	for _, loc := range locs {
		sb.WriteString(fn(line[prev:loc[0]]))
		sb.WriteString(line[loc[0]:loc[1]])
		prev = loc[1]
	}
	sb.WriteString(fn(line[prev:]))
	return sb.String()
}
