package doctree

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DiagramFormat is the notation a proposed diagram is written in.
type DiagramFormat string

const (
	FormatPlantUML DiagramFormat = "plantuml"
	FormatMermaid  DiagramFormat = "mermaid"
	FormatText     DiagramFormat = "text"
)

// ParseFormat maps provider output onto a known format. Unknown values fall
// back to plain text.
func ParseFormat(s string) DiagramFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plantuml", "puml", "uml":
		return FormatPlantUML
	case "mermaid", "mmd":
		return FormatMermaid
	default:
		return FormatText
	}
}

// Diagram is a proposed illustration attached to a node.
type Diagram struct {
	Name      string        `json:"name"`
	Purpose   string        `json:"purpose,omitempty"`
	Format    DiagramFormat `json:"format"`
	Placement string        `json:"placement"`
	Code      string        `json:"code,omitempty"`
}

// Marker is the bracketed annotation rendered after the owning node's
// content. The placement shown is normalized, so unrecognized values read
// as end.
func (d Diagram) Marker() string {
	format := d.Format
	if format == "" {
		format = FormatText
	}
	return fmt.Sprintf("[Diagram: %s (%s, %s)]", d.Name, format, ParsePlacement(d.Placement))
}

var paraPlacementRe = regexp.MustCompile(`^(before|after)_para\s*:\s*(\d+)$`)

// ParsePlacement normalizes a placement to start, end, before_para:N or
// after_para:N. Anything else becomes end.
func ParsePlacement(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "start", "end":
		return s
	}
	if m := paraPlacementRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil && n > 0 {
			return m[1] + "_para:" + strconv.Itoa(n)
		}
	}
	return "end"
}
