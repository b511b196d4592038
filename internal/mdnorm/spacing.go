package mdnorm

import (
	"regexp"
	"strings"
)

var (
	emptyRefDefRe = regexp.MustCompile(`^\s*\[\s*\]\s*:.*$`)
	listItemRe    = regexp.MustCompile(`^(\s*)(?:[-*+]|\d+[.)])\s+`)
)

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// CleanArtifacts drops empty link-reference definitions ("[]: ...") and
// leaves exactly one trailing newline.
func CleanArtifacts(text string) string {
	if isBlank(text) {
		return text
	}
	lines := splitLines(text)
	out := make([]string, 0, len(lines))
	var f Fence
	for _, line := range lines {
		if !f.Next(line).InFence() && emptyRefDefRe.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	for len(out) > 0 && isBlank(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n") + "\n"
}

// FenceSpacing puts a blank line before every opening fence and after every
// closing fence, except at the edges of the document.
func FenceSpacing(text string) string {
	lines := splitLines(text)
	out := make([]string, 0, len(lines)+8)
	var f Fence
	for i, line := range lines {
		switch f.Next(line) {
		case Opening:
			if len(out) > 0 && !isBlank(out[len(out)-1]) {
				out = append(out, "")
			}
			out = append(out, line)
		case Closing:
			out = append(out, line)
			if i+1 < len(lines) && !isBlank(lines[i+1]) {
				out = append(out, "")
			}
		default:
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// ColonSpacing inserts a blank line after a line ending in ":" when the next
// line is not already blank.
func ColonSpacing(text string) string {
	lines := splitLines(text)
	out := make([]string, 0, len(lines)+8)
	var f Fence
	for i, line := range lines {
		state := f.Next(line)
		out = append(out, line)
		if state.InFence() {
			continue
		}
		if strings.HasSuffix(strings.TrimRight(line, " \t"), ":") && i+1 < len(lines) && !isBlank(lines[i+1]) {
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

// BeautifyLists inserts a blank line before a list that follows a paragraph,
// and before a deeper sub-list when its parent item ends with ":".
func BeautifyLists(text string) string {
	lines := splitLines(text)
	out := make([]string, 0, len(lines)+8)
	var f Fence

	prev := ""          // previous non-blank line
	prevInList := false // prev is a list item or its continuation
	prevIndent := -1    // indent of the most recent list item
	lastBlank := true

	for _, line := range lines {
		state := f.Next(line)
		if state.InFence() {
			out = append(out, line)
			prev, prevInList, prevIndent, lastBlank = line, false, -1, false
			continue
		}
		if isBlank(line) {
			out = append(out, line)
			lastBlank = true
			continue
		}

		m := listItemRe.FindStringSubmatch(line)
		if m != nil {
			indent := len(m[1])
			if prev != "" && !lastBlank {
				switch {
				case !prevInList:
					out = append(out, "")
				case indent > prevIndent && strings.HasSuffix(strings.TrimRight(prev, " \t"), ":"):
					out = append(out, "")
				}
			}
			out = append(out, line)
			prev, prevInList, prevIndent, lastBlank = line, true, indent, false
			continue
		}

		continuation := prevInList && !atxLineStartRe.MatchString(line) && (!lastBlank || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t"))
		out = append(out, line)
		prev, prevInList, lastBlank = line, continuation, false
		if !continuation {
			prevIndent = -1
		}
	}
	return strings.Join(out, "\n")
}
