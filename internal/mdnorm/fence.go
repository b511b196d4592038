package mdnorm

import (
	"regexp"
	"strings"
)

// FenceState classifies a line relative to fenced code blocks.
type FenceState int

const (
	Outside FenceState = iota
	Opening
	Inside
	Closing
)

// InFence reports whether the line belongs to a fenced block, delimiters included.
func (s FenceState) InFence() bool {
	return s != Outside
}

var fenceRe = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})(.*)$")

// Fence tracks ``` and ~~~ blocks line by line. A block closes only on a
// bare delimiter of the same character that is at least as long as the
// opener. The zero value is ready to use.
type Fence struct {
	char byte
	size int
}

// Open reports whether a block is currently open.
func (f *Fence) Open() bool {
	return f.size > 0
}

// Next advances the tracker over one line and classifies it.
func (f *Fence) Next(line string) FenceState {
	m := fenceRe.FindStringSubmatch(line)
	if f.size == 0 {
		if m == nil {
			return Outside
		}
		// Backtick info strings may not contain backticks.
		if m[1][0] == '`' && strings.Contains(m[2], "`") {
			return Outside
		}
		f.char = m[1][0]
		f.size = len(m[1])
		return Opening
	}
	if m != nil && m[1][0] == f.char && len(m[1]) >= f.size && strings.TrimSpace(m[2]) == "" {
		f.size = 0
		return Closing
	}
	return Inside
}

// IsFenceLine reports whether line opens or closes a fence on its own.
func IsFenceLine(line string) bool {
	return fenceRe.MatchString(line)
}

// splitLines normalizes line endings and splits on newlines.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}

// mapOutside applies fn to every line outside fenced blocks.
func mapOutside(s string, fn func(line string) string) string {
	lines := splitLines(s)
	var f Fence
	for i, line := range lines {
		if f.Next(line).InFence() {
			continue
		}
		lines[i] = fn(line)
	}
	return strings.Join(lines, "\n")
}
