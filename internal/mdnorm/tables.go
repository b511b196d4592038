package mdnorm

import (
	"regexp"
	"strings"
)

var (
	pipeRowRe    = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	pipeSepRe    = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)
	gridBorderRe = regexp.MustCompile(`^\s*\+[-=+:]+\+\s*$`)
)

// HasPipeTable reports whether text outside code fences contains a pipe
// table row and a header separator.
func HasPipeTable(text string) bool {
	var rows, seps bool
	var f Fence
	for _, line := range splitLines(text) {
		if f.Next(line).InFence() {
			continue
		}
		if pipeSepRe.MatchString(line) {
			seps = true
		} else if pipeRowRe.MatchString(line) {
			rows = true
		}
	}
	return rows && seps
}

// HasGridTable reports whether text outside code fences contains a grid
// table border and a pipe row.
func HasGridTable(text string) bool {
	var border, rows bool
	var f Fence
	for _, line := range splitLines(text) {
		if f.Next(line).InFence() {
			continue
		}
		if gridBorderRe.MatchString(line) {
			border = true
		} else if pipeRowRe.MatchString(line) {
			rows = true
		}
	}
	return border && rows
}

// tableBlockEnd returns the index after the table block starting at i, or i
// when no table starts there.
func tableBlockEnd(lines []string, i int) int {
	line := lines[i]
	switch {
	case gridBorderRe.MatchString(line):
		j := i + 1
		for j < len(lines) {
			t := strings.TrimSpace(lines[j])
			if !strings.HasPrefix(t, "+") && !strings.HasPrefix(t, "|") {
				break
			}
			j++
		}
		if j-i < 2 {
			return i
		}
		return j
	case strings.Contains(line, "|") && !pipeSepRe.MatchString(line) &&
		i+1 < len(lines) && pipeSepRe.MatchString(lines[i+1]):
		j := i + 2
		for j < len(lines) && strings.TrimSpace(lines[j]) != "" && strings.Contains(lines[j], "|") {
			j++
		}
		return j
	}
	return i
}

// TableSpacing leaves exactly one blank line before and after every pipe or
// grid table outside code fences.
func TableSpacing(text string) string {
	lines := splitLines(text)
	out := make([]string, 0, len(lines)+4)
	var f Fence
	for i := 0; i < len(lines); i++ {
		if f.Next(lines[i]).InFence() {
			out = append(out, lines[i])
			continue
		}
		end := tableBlockEnd(lines, i)
		if end == i {
			out = append(out, lines[i])
			continue
		}

		for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
			out = out[:len(out)-1]
		}
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, lines[i:end]...)

		i = end
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		if i < len(lines) {
			out = append(out, "")
		} else if end < len(lines) {
			// Keep the final newline when the table ends the document.
			out = append(out, "")
		}
		i--
	}
	return strings.Join(out, "\n")
}
